package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetgate/internal/admission"
	"budgetgate/internal/core"
)

// TransactionService records income and expense transactions through the
// admission pipeline. Validation runs after admission so screened or
// rate-limited callers cannot probe the validator.
type TransactionService struct {
	store    TransactionStore
	pipeline *admission.Pipeline
	events   EventPublisher
}

func NewTransactionService(store TransactionStore, pipeline *admission.Pipeline, events EventPublisher) *TransactionService {
	return &TransactionService{
		store:    store,
		pipeline: pipeline,
		events:   events,
	}
}

// CreateTransaction admits, validates, and persists a draft. Recurring
// drafts get their first next-occurrence date computed from the
// transaction date; non-recurring drafts keep any interval value inert.
func (s *TransactionService) CreateTransaction(ctx context.Context, principal core.Principal, draft core.TransactionDraft, sig admission.RequestSignals) (core.Transaction, error) {
	if principal.IsZero() {
		return core.Transaction{}, core.ErrUnauthorized
	}

	decision, err := s.pipeline.Check(ctx, principal, admission.ActionTransactionWrite, sig)
	if err != nil {
		return core.Transaction{}, err
	}
	if !decision.Allowed {
		return core.Transaction{}, decision.Err()
	}

	if ferr := draft.Validate(); ferr != nil {
		return core.Transaction{}, ferr
	}

	tx := core.Transaction{
		Owner:             principal,
		Account:           draft.Account,
		Type:              draft.Type,
		Amount:            draft.Amount,
		Date:              draft.Date,
		Category:          draft.Category,
		Description:       draft.Description,
		IsRecurring:       draft.IsRecurring,
		RecurringInterval: draft.RecurringInterval,
	}
	if draft.IsRecurring {
		next, err := NextOccurrence(draft.Date, draft.RecurringInterval)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("compute next occurrence: %w", err)
		}
		tx.NextRecurringDate = next
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, &core.StoreError{Op: "create transaction", Err: err}
	}

	if s.events != nil {
		if err := s.events.PublishTransactionCreated(ctx, created.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction created event",
				"id", created.ID, "error", err)
		}
		if err := s.events.PublishDashboardInvalidation(ctx, principal); err != nil {
			slog.ErrorContext(ctx, "Failed to publish dashboard invalidation",
				"principal", string(principal), "error", err)
		}
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", created.ID,
		"principal", string(principal),
		"type", string(created.Type),
		"amount_cents", created.Amount.Cents,
		"recurring", created.IsRecurring)

	return created, nil
}
