package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetgate/internal/amqp"
	"budgetgate/internal/core"
)

// alertThresholdPercent is the share of the monthly budget at which a
// spending alert fires.
const alertThresholdPercent = 80

// AlertMonitor fires at most one spending alert per principal per month,
// once current-month expenses across all accounts reach the threshold.
type AlertMonitor struct {
	store  AlertStore
	events EventPublisher
}

func NewAlertMonitor(store AlertStore, events EventPublisher) *AlertMonitor {
	return &AlertMonitor{store: store, events: events}
}

// CheckBudgets scans every budget and publishes alerts for principals who
// crossed the threshold this month and have not been alerted yet. Returns
// the number of alerts published.
func (m *AlertMonitor) CheckBudgets(ctx context.Context, now time.Time) (int, error) {
	budgets, err := m.store.ListBudgets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list budgets: %w", err)
	}

	window := core.CurrentMonthWindow(now)
	month := now.UTC().Format("2006-01")

	alerted := 0
	for _, budget := range budgets {
		if budget.Amount.Cents <= 0 || budget.LastAlertMonth == month {
			continue
		}

		spent, err := m.store.SumExpensesAllAccounts(ctx, budget.Owner, window)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sum expenses for alert check",
				"principal", string(budget.Owner), "error", err)
			continue
		}
		if spent.Cents*100 < budget.Amount.Cents*alertThresholdPercent {
			continue
		}

		msg := &amqp.BudgetAlertMessage{
			Principal:   budget.Owner,
			Month:       month,
			SpentCents:  spent.Cents,
			BudgetCents: budget.Amount.Cents,
			Timestamp:   now,
		}
		if err := m.events.PublishBudgetAlert(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish budget alert",
				"principal", string(budget.Owner), "error", err)
			continue
		}
		if err := m.store.MarkBudgetAlerted(ctx, budget.Owner, month); err != nil {
			slog.ErrorContext(ctx, "Failed to mark budget alerted",
				"principal", string(budget.Owner), "error", err)
			continue
		}
		alerted++
	}

	if alerted > 0 {
		slog.InfoContext(ctx, "Published budget alerts", "count", alerted, "month", month)
	}
	return alerted, nil
}
