package services

import (
	"context"
	"log/slog"
	"time"

	"budgetgate/internal/admission"
	"budgetgate/internal/core"
)

// BudgetService performs the idempotent create-or-update of a principal's
// single budget record, guarded by the admission pipeline, and serves the
// ungated dashboard read.
type BudgetService struct {
	store    BudgetStore
	pipeline *admission.Pipeline
	events   EventPublisher

	// now is replaceable in tests.
	now func() time.Time
}

func NewBudgetService(store BudgetStore, pipeline *admission.Pipeline, events EventPublisher) *BudgetService {
	return &BudgetService{
		store:    store,
		pipeline: pipeline,
		events:   events,
		now:      time.Now,
	}
}

// AggregatedBudget pairs a principal's budget (absent when never set) with
// the current-month expense total for one account.
type AggregatedBudget struct {
	Budget          *core.Budget
	CurrentExpenses core.Money
}

// SetBudget upserts the principal's budget amount. The write is gated by
// the admission pipeline; a deny surfaces as RateLimitedError or
// ErrBlockedByScreening, distinct from store failures. On success a
// dashboard invalidation is published for the presentation collaborator.
func (s *BudgetService) SetBudget(ctx context.Context, principal core.Principal, amount core.Money, sig admission.RequestSignals) (core.Budget, error) {
	if principal.IsZero() {
		return core.Budget{}, core.ErrUnauthorized
	}
	if amount.Cents <= 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}

	decision, err := s.pipeline.Check(ctx, principal, admission.ActionBudgetWrite, sig)
	if err != nil {
		return core.Budget{}, err
	}
	if !decision.Allowed {
		return core.Budget{}, decision.Err()
	}

	budget, err := s.store.UpsertBudget(ctx, principal, amount)
	if err != nil {
		return core.Budget{}, &core.StoreError{Op: "upsert budget", Err: err}
	}

	// Invalidation is best effort: the budget row is already committed and
	// the dashboard read path recomputes from the store anyway.
	if s.events != nil {
		if err := s.events.PublishDashboardInvalidation(ctx, principal); err != nil {
			slog.ErrorContext(ctx, "Failed to publish dashboard invalidation",
				"principal", string(principal), "error", err)
		}
	}

	slog.InfoContext(ctx, "Budget set",
		"principal", string(principal),
		"amount_cents", amount.Cents)

	return budget, nil
}

// GetAggregatedBudget returns the principal's budget together with the
// current-month expense total for the account. The read path bypasses
// admission control, and the month window is recomputed on every call so
// the result tracks wall-clock month rollover. No caching: the display
// must reflect the latest committed mutation.
func (s *BudgetService) GetAggregatedBudget(ctx context.Context, principal core.Principal, account core.AccountID) (AggregatedBudget, error) {
	if principal.IsZero() {
		return AggregatedBudget{}, core.ErrUnauthorized
	}

	budget, err := s.store.FindBudget(ctx, principal)
	if err != nil {
		return AggregatedBudget{}, &core.StoreError{Op: "find budget", Err: err}
	}

	window := core.CurrentMonthWindow(s.now())
	expenses, err := s.store.SumExpenses(ctx, principal, account, window)
	if err != nil {
		return AggregatedBudget{}, &core.StoreError{Op: "sum expenses", Err: err}
	}

	return AggregatedBudget{Budget: budget, CurrentExpenses: expenses}, nil
}
