package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"budgetgate/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestUpsertBudget_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.UpsertBudget(ctx, "user-1", core.Money{Cents: 50000}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := repo.UpsertBudget(ctx, "user-1", core.Money{Cents: 50000}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	budgets, err := repo.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("list budgets: %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("budget rows = %d, want exactly 1", len(budgets))
	}
	if budgets[0].Amount.Cents != 50000 {
		t.Errorf("amount = %d, want 50000", budgets[0].Amount.Cents)
	}
}

func TestUpsertBudget_Overwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.UpsertBudget(ctx, "user-1", core.Money{Cents: 10000})
	repo.UpsertBudget(ctx, "user-1", core.Money{Cents: 25000})

	b, err := repo.FindBudget(ctx, "user-1")
	if err != nil {
		t.Fatalf("find budget: %v", err)
	}
	if b == nil {
		t.Fatal("budget not found after upsert")
	}
	if b.Amount.Cents != 25000 {
		t.Errorf("amount = %d, want 25000", b.Amount.Cents)
	}
}

func TestFindBudget_AbsentIsNil(t *testing.T) {
	repo := newTestRepo(t)

	b, err := repo.FindBudget(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("find budget: %v", err)
	}
	if b != nil {
		t.Errorf("budget = %+v, want nil for absent row", b)
	}
}

func TestSumExpenses_WindowScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mk := func(owner core.Principal, account core.AccountID, txType core.TransactionType, cents int64, date time.Time) {
		t.Helper()
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			Owner:    owner,
			Account:  account,
			Type:     txType,
			Amount:   core.Money{Cents: cents},
			Date:     date,
			Category: "groceries",
		})
		if err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	june := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	w := core.CurrentMonthWindow(june)

	// In window, in scope.
	mk("u", "acct-1", core.Expense, 1000, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	mk("u", "acct-1", core.Expense, 2500, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	// Excluded: wrong month even though within 31 days of "now".
	mk("u", "acct-1", core.Expense, 9999, time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC))
	mk("u", "acct-1", core.Expense, 9999, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	// Excluded: income, other account, other owner.
	mk("u", "acct-1", core.Income, 9999, june)
	mk("u", "acct-2", core.Expense, 9999, june)
	mk("v", "acct-1", core.Expense, 9999, june)

	total, err := repo.SumExpenses(ctx, "u", "acct-1", w)
	if err != nil {
		t.Fatalf("sum expenses: %v", err)
	}
	if total.Cents != 3500 {
		t.Errorf("total = %d, want 3500", total.Cents)
	}
}

func TestSumExpenses_NoRowsIsZero(t *testing.T) {
	repo := newTestRepo(t)

	total, err := repo.SumExpenses(context.Background(), "u", "acct-1",
		core.CurrentMonthWindow(time.Now()))
	if err != nil {
		t.Fatalf("sum expenses: %v", err)
	}
	if total.Cents != 0 {
		t.Errorf("total = %d, want 0 for no matching rows", total.Cents)
	}
}

func TestGetTransaction_AbsentIsNil(t *testing.T) {
	repo := newTestRepo(t)

	// Absence must be (nil, nil), like FindBudget: the export worker relies
	// on it to ack events for rows deleted between publish and consume,
	// instead of requeueing them forever.
	tx, err := repo.GetTransaction(context.Background(), 12345)
	if err != nil {
		t.Fatalf("get transaction: %v, want nil error for absent row", err)
	}
	if tx != nil {
		t.Errorf("transaction = %+v, want nil for absent row", tx)
	}
}

func TestListDueRecurring_MostOverdueFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mkTemplate := func(next time.Time) int64 {
		t.Helper()
		tx, err := repo.CreateTransaction(ctx, core.Transaction{
			Owner:             "u",
			Account:           "acct-1",
			Type:              core.Expense,
			Amount:            core.Money{Cents: 1000},
			Date:              next,
			Category:          "subscriptions",
			IsRecurring:       true,
			RecurringInterval: core.Monthly,
			NextRecurringDate: next,
		})
		if err != nil {
			t.Fatalf("create template: %v", err)
		}
		return tx.ID
	}

	// Inserted newest-due first so insertion order cannot mask the ordering.
	newest := mkTemplate(time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))
	oldest := mkTemplate(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	middle := mkTemplate(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))

	due, err := repo.ListDueRecurring(ctx, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), 2)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due = %d templates, want batch of 2", len(due))
	}
	if due[0].ID != oldest || due[1].ID != middle {
		t.Errorf("batch = [%d %d], want most overdue first [%d %d]",
			due[0].ID, due[1].ID, oldest, middle)
	}
	for _, tx := range due {
		if tx.ID == newest {
			t.Errorf("newest-due template %d must wait for the next batch", newest)
		}
	}
}

func TestRecurringLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tmpl, err := repo.CreateTransaction(ctx, core.Transaction{
		Owner:             "u",
		Account:           "acct-1",
		Type:              core.Expense,
		Amount:            core.Money{Cents: 1200},
		Date:              start,
		Category:          "subscriptions",
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
		NextRecurringDate: start,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	due, err := repo.ListDueRecurring(ctx, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), 100)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != tmpl.ID {
		t.Fatalf("due = %+v, want the template", due)
	}
	if due[0].RecurringInterval != core.Monthly {
		t.Errorf("interval round-trip = %q, want MONTHLY", due[0].RecurringInterval)
	}

	next := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.UpdateRecurringProgress(ctx, tmpl.ID, start, next); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	due, err = repo.ListDueRecurring(ctx, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 100)
	if err != nil {
		t.Fatalf("list due after advance: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due after advance = %d templates, want 0", len(due))
	}

	got, err := repo.GetTransaction(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if !got.NextRecurringDate.Equal(next) {
		t.Errorf("next recurring date = %v, want %v", got.NextRecurringDate, next)
	}
	if !got.LastProcessed.Equal(start) {
		t.Errorf("last processed = %v, want %v", got.LastProcessed, start)
	}
}

func TestMarkBudgetAlerted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	repo.UpsertBudget(ctx, "u", core.Money{Cents: 100000})
	if err := repo.MarkBudgetAlerted(ctx, "u", "2025-06"); err != nil {
		t.Fatalf("mark alerted: %v", err)
	}

	b, err := repo.FindBudget(ctx, "u")
	if err != nil || b == nil {
		t.Fatalf("find budget: %v %v", b, err)
	}
	if b.LastAlertMonth != "2025-06" {
		t.Errorf("last alert month = %q, want 2025-06", b.LastAlertMonth)
	}
}
