// Package storage is the adapter to the persistent store collaborator: a
// SQLite ledger of transactions and a single budget row per principal.
// Calls are coarse-grained and transactional at single-statement
// granularity; failures surface to the services layer, which wraps them as
// store errors and never retries here.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budgetgate/internal/core"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dateLayout is how calendar dates are stored; lexicographic order matches
// chronological order, so range scans work on plain string comparison.
const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// runMigrations brings the schema up to date from the embedded migration
// files, on a dedicated connection that is closed before the repository
// starts serving queries.
func runMigrations(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("embedded migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FindBudget returns the principal's budget, or nil when none exists yet.
func (r *SQLiteRepository) FindBudget(ctx context.Context, owner core.Principal) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT owner, amount_cents, last_alert_month FROM budgets WHERE owner = ?`, string(owner))

	var b core.Budget
	var ownerStr string
	if err := row.Scan(&ownerStr, &b.Amount.Cents, &b.LastAlertMonth); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find budget: %w", err)
	}
	b.Owner = core.Principal(ownerStr)
	return &b, nil
}

// UpsertBudget creates or overwrites the single budget row for a principal.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, owner core.Principal, amount core.Money) (core.Budget, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (owner, amount_cents)
		VALUES (?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			updated_at = CURRENT_TIMESTAMP`,
		string(owner), amount.Cents)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget upserted",
		"owner", string(owner),
		"amount_cents", amount.Cents)

	return core.Budget{Owner: owner, Amount: amount}, nil
}

// ListBudgets returns every budget row. Used by the alert monitor.
func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner, amount_cents, last_alert_month FROM budgets`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		var owner string
		if err := rows.Scan(&owner, &b.Amount.Cents, &b.LastAlertMonth); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Owner = core.Principal(owner)
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// MarkBudgetAlerted records the month for which a threshold alert was sent,
// so the monitor alerts at most once per month per principal.
func (r *SQLiteRepository) MarkBudgetAlerted(ctx context.Context, owner core.Principal, month string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET last_alert_month = ? WHERE owner = ?`, month, string(owner))
	if err != nil {
		return fmt.Errorf("mark budget alerted: %w", err)
	}
	return nil
}

// SumExpenses returns the total of EXPENSE transactions for one account of
// a principal, dated within the window (inclusive both ends). Zero rows sum
// to zero, not an error.
func (r *SQLiteRepository) SumExpenses(ctx context.Context, owner core.Principal, account core.AccountID, w core.MonthWindow) (core.Money, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE owner = ? AND account = ? AND type = 'EXPENSE'
		  AND date >= ? AND date <= ?`,
		string(owner), string(account), w.Start.Format(dateLayout), w.End.Format(dateLayout))

	var total int64
	if err := row.Scan(&total); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: total}, nil
}

// SumExpensesAllAccounts is SumExpenses without the account scope. The
// alert monitor compares whole-principal spending against the budget.
func (r *SQLiteRepository) SumExpensesAllAccounts(ctx context.Context, owner core.Principal, w core.MonthWindow) (core.Money, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE owner = ? AND type = 'EXPENSE'
		  AND date >= ? AND date <= ?`,
		string(owner), w.Start.Format(dateLayout), w.End.Format(dateLayout))

	var total int64
	if err := row.Scan(&total); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses all accounts: %w", err)
	}
	return core.Money{Cents: total}, nil
}

// CreateTransaction inserts a committed transaction and returns it with the
// assigned ID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(owner, account, type, amount_cents, date, category, description,
			 is_recurring, recurring_interval, next_recurring_date, last_processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Owner), string(t.Account), string(t.Type), t.Amount.Cents,
		t.Date.Format(dateLayout), t.Category, t.Description,
		boolToInt(t.IsRecurring), nullString(string(t.RecurringInterval)),
		nullDate(t.NextRecurringDate), nullDate(t.LastProcessed))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"owner", string(t.Owner),
		"account", string(t.Account),
		"type", string(t.Type),
		"amount_cents", t.Amount.Cents,
		"is_recurring", t.IsRecurring)

	return t, nil
}

// GetTransaction retrieves a single transaction by ID, or nil when no such
// row exists. Absence is not an error: consumers see it when a transaction
// is deleted between event publish and consume.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner, account, type, amount_cents, date, category, description,
		       is_recurring, recurring_interval, next_recurring_date, last_processed
		FROM transactions WHERE id = ?`, id)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// ListDueRecurring returns recurring templates whose next occurrence is on
// or before asOf, most overdue first so a backlog larger than the batch
// cannot starve old templates. NULL next dates sort first: they are due
// immediately.
func (r *SQLiteRepository) ListDueRecurring(ctx context.Context, asOf time.Time, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, account, type, amount_cents, date, category, description,
		       is_recurring, recurring_interval, next_recurring_date, last_processed
		FROM transactions
		WHERE is_recurring = 1
		  AND (next_recurring_date IS NULL OR next_recurring_date <= ?)
		ORDER BY next_recurring_date
		LIMIT ?`,
		asOf.Format(dateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("list due recurring: %w", err)
	}
	defer rows.Close()

	var due []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		due = append(due, *t)
	}
	return due, rows.Err()
}

// UpdateRecurringProgress advances a template after materialization.
func (r *SQLiteRepository) UpdateRecurringProgress(ctx context.Context, id int64, lastProcessed, next time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET last_processed = ?, next_recurring_date = ?
		WHERE id = ?`,
		lastProcessed.Format(dateLayout), next.Format(dateLayout), id)
	if err != nil {
		return fmt.Errorf("update recurring progress: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var t core.Transaction
	var owner, account, txType, date string
	var recurring int
	var interval, nextDate, lastProcessed sql.NullString

	err := row.Scan(&t.ID, &owner, &account, &txType, &t.Amount.Cents, &date,
		&t.Category, &t.Description, &recurring, &interval, &nextDate, &lastProcessed)
	if err != nil {
		return nil, err
	}

	t.Owner = core.Principal(owner)
	t.Account = core.AccountID(account)
	t.Type = core.TransactionType(txType)
	t.IsRecurring = recurring != 0
	if interval.Valid {
		t.RecurringInterval = core.RecurringInterval(interval.String)
	}

	if t.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	if nextDate.Valid && nextDate.String != "" {
		if t.NextRecurringDate, err = time.Parse(dateLayout, nextDate.String); err != nil {
			return nil, fmt.Errorf("parse next recurring date %q: %w", nextDate.String, err)
		}
	}
	if lastProcessed.Valid && lastProcessed.String != "" {
		if t.LastProcessed, err = time.Parse(dateLayout, lastProcessed.String); err != nil {
			return nil, fmt.Errorf("parse last processed %q: %w", lastProcessed.String, err)
		}
	}

	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}
