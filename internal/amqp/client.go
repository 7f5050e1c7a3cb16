package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetgate/internal/core"

	"github.com/rabbitmq/amqp091-go"
)

// Routing keys on the shared direct exchange. The transaction queue is
// declared and bound here; the presentation layer binds its own queues for
// invalidation and alert events.
const (
	routingKeyInvalidate = "dashboard.invalidate"
	routingKeyAlert      = "budget.alert"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// PublishTransactionCreated publishes a transaction-created event to the
// worker queue.
func (c *Client) PublishTransactionCreated(ctx context.Context, id int64) error {
	body, err := NewTransactionCreatedMessage(id).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, c.queueName, body); err != nil {
		return fmt.Errorf("publish transaction created: %w", err)
	}

	slog.InfoContext(ctx, "Published transaction created event",
		"id", id,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishDashboardInvalidation tells the presentation layer to drop cached
// dashboard renderings for a principal.
func (c *Client) PublishDashboardInvalidation(ctx context.Context, p core.Principal) error {
	body, err := NewDashboardInvalidationMessage(p).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, routingKeyInvalidate, body); err != nil {
		return fmt.Errorf("publish dashboard invalidation: %w", err)
	}

	slog.InfoContext(ctx, "Published dashboard invalidation",
		"principal", string(p),
		"exchange", c.exchangeName)
	return nil
}

// PublishBudgetAlert publishes a spending threshold alert.
func (c *Client) PublishBudgetAlert(ctx context.Context, msg *BudgetAlertMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, routingKeyAlert, body); err != nil {
		return fmt.Errorf("publish budget alert: %w", err)
	}

	slog.InfoContext(ctx, "Published budget alert",
		"principal", string(msg.Principal),
		"month", msg.Month,
		"spent_cents", msg.SpentCents,
		"budget_cents", msg.BudgetCents)
	return nil
}

// ConsumeTransactionCreated consumes transaction-created events until the
// context is cancelled. Failed handlers are requeued; undecodable messages
// are rejected without requeue.
func (c *Client) ConsumeTransactionCreated(ctx context.Context, handler func(*TransactionCreatedMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming transaction events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := TransactionCreatedMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"id", msg.ID)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
