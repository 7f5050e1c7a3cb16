package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetgate/internal/core"
)

const recurringBatchSize = 100

// RecurringProcessor materializes concrete transactions from recurring
// templates whose next occurrence has come due. It runs on a timer in the
// worker, outside the admission pipeline: scheduled work is not a caller.
type RecurringProcessor struct {
	store  RecurringStore
	events EventPublisher
}

func NewRecurringProcessor(store RecurringStore, events EventPublisher) *RecurringProcessor {
	return &RecurringProcessor{store: store, events: events}
}

// ProcessDue creates one concrete transaction per due template, then
// advances the template's schedule. Per-template failures are logged and
// skipped so one bad row cannot stall the whole batch. Returns the number
// of templates materialized.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	due, err := p.store.ListDueRecurring(ctx, now, recurringBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due recurring: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	processed := 0
	for _, tmpl := range due {
		if err := p.materialize(ctx, tmpl, now); err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring template",
				"id", tmpl.ID,
				"principal", string(tmpl.Owner),
				"error", err)
			continue
		}
		processed++
	}

	slog.InfoContext(ctx, "Processed recurring templates",
		"due", len(due),
		"processed", processed)
	return processed, nil
}

func (p *RecurringProcessor) materialize(ctx context.Context, tmpl core.Transaction, now time.Time) error {
	instance := core.Transaction{
		Owner:       tmpl.Owner,
		Account:     tmpl.Account,
		Type:        tmpl.Type,
		Amount:      tmpl.Amount,
		Date:        dateOf(now),
		Category:    tmpl.Category,
		Description: tmpl.Description,
	}

	created, err := p.store.CreateTransaction(ctx, instance)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	next, err := NextOccurrence(now, tmpl.RecurringInterval)
	if err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}
	if err := p.store.UpdateRecurringProgress(ctx, tmpl.ID, now, next); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}

	if p.events != nil {
		if err := p.events.PublishTransactionCreated(ctx, created.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish recurring transaction event",
				"id", created.ID, "error", err)
		}
		if err := p.events.PublishDashboardInvalidation(ctx, tmpl.Owner); err != nil {
			slog.ErrorContext(ctx, "Failed to publish dashboard invalidation",
				"principal", string(tmpl.Owner), "error", err)
		}
	}
	return nil
}

// dateOf truncates a timestamp to its calendar date in UTC, the grain the
// ledger stores.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
