// Package services orchestrates the admission-gated mutation pipeline and
// the read-side aggregation over the store and event collaborators.
package services

import (
	"context"
	"time"

	"budgetgate/internal/amqp"
	"budgetgate/internal/core"
)

// BudgetStore is the outbound port for budget rows and expense aggregation.
type BudgetStore interface {
	FindBudget(ctx context.Context, owner core.Principal) (*core.Budget, error)
	UpsertBudget(ctx context.Context, owner core.Principal, amount core.Money) (core.Budget, error)
	SumExpenses(ctx context.Context, owner core.Principal, account core.AccountID, w core.MonthWindow) (core.Money, error)
}

// TransactionStore is the outbound port for the transaction ledger.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
}

// RecurringStore is the outbound port used by the recurring materializer.
type RecurringStore interface {
	TransactionStore
	ListDueRecurring(ctx context.Context, asOf time.Time, limit int) ([]core.Transaction, error)
	UpdateRecurringProgress(ctx context.Context, id int64, lastProcessed, next time.Time) error
}

// AlertStore is the outbound port used by the budget alert monitor.
type AlertStore interface {
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	SumExpensesAllAccounts(ctx context.Context, owner core.Principal, w core.MonthWindow) (core.Money, error)
	MarkBudgetAlerted(ctx context.Context, owner core.Principal, month string) error
}

// EventPublisher is the outbound port to the presentation and worker
// collaborators. Publish failures never fail the guarded mutation: the
// store commit is the source of truth.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, id int64) error
	PublishDashboardInvalidation(ctx context.Context, p core.Principal) error
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}
