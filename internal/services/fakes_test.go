package services

import (
	"context"
	"time"

	"budgetgate/internal/admission"
	"budgetgate/internal/amqp"
	"budgetgate/internal/core"
	"budgetgate/internal/ratelimit"
)

// memStore is an in-memory implementation of the store ports.
type memStore struct {
	budgets      map[core.Principal]core.Budget
	transactions []core.Transaction
	nextID       int64

	upsertErr error
	createErr error
	sumErr    error
}

func newMemStore() *memStore {
	return &memStore{budgets: make(map[core.Principal]core.Budget)}
}

func (s *memStore) FindBudget(_ context.Context, owner core.Principal) (*core.Budget, error) {
	b, ok := s.budgets[owner]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *memStore) UpsertBudget(_ context.Context, owner core.Principal, amount core.Money) (core.Budget, error) {
	if s.upsertErr != nil {
		return core.Budget{}, s.upsertErr
	}
	b := s.budgets[owner]
	b.Owner = owner
	b.Amount = amount
	s.budgets[owner] = b
	return b, nil
}

func (s *memStore) ListBudgets(context.Context) ([]core.Budget, error) {
	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b)
	}
	return out, nil
}

func (s *memStore) MarkBudgetAlerted(_ context.Context, owner core.Principal, month string) error {
	b := s.budgets[owner]
	b.LastAlertMonth = month
	s.budgets[owner] = b
	return nil
}

func (s *memStore) SumExpenses(_ context.Context, owner core.Principal, account core.AccountID, w core.MonthWindow) (core.Money, error) {
	if s.sumErr != nil {
		return core.Money{}, s.sumErr
	}
	var total int64
	for _, tx := range s.transactions {
		if tx.Owner == owner && tx.Account == account && tx.Type == core.Expense && w.Contains(tx.Date) {
			total += tx.Amount.Cents
		}
	}
	return core.Money{Cents: total}, nil
}

func (s *memStore) SumExpensesAllAccounts(_ context.Context, owner core.Principal, w core.MonthWindow) (core.Money, error) {
	if s.sumErr != nil {
		return core.Money{}, s.sumErr
	}
	var total int64
	for _, tx := range s.transactions {
		if tx.Owner == owner && tx.Type == core.Expense && w.Contains(tx.Date) {
			total += tx.Amount.Cents
		}
	}
	return core.Money{Cents: total}, nil
}

func (s *memStore) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if s.createErr != nil {
		return core.Transaction{}, s.createErr
	}
	s.nextID++
	tx.ID = s.nextID
	s.transactions = append(s.transactions, tx)
	return tx, nil
}

func (s *memStore) ListDueRecurring(_ context.Context, asOf time.Time, limit int) ([]core.Transaction, error) {
	var due []core.Transaction
	for _, tx := range s.transactions {
		if !tx.IsRecurring {
			continue
		}
		if tx.NextRecurringDate.IsZero() || !tx.NextRecurringDate.After(asOf) {
			due = append(due, tx)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (s *memStore) UpdateRecurringProgress(_ context.Context, id int64, lastProcessed, next time.Time) error {
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			s.transactions[i].LastProcessed = lastProcessed
			s.transactions[i].NextRecurringDate = next
			return nil
		}
	}
	return nil
}

func (s *memStore) find(id int64) *core.Transaction {
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			return &s.transactions[i]
		}
	}
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	txCreated   []int64
	invalidated []core.Principal
	alerts      []*amqp.BudgetAlertMessage

	publishErr error
}

func (p *fakePublisher) PublishTransactionCreated(_ context.Context, id int64) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.txCreated = append(p.txCreated, id)
	return nil
}

func (p *fakePublisher) PublishDashboardInvalidation(_ context.Context, principal core.Principal) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.invalidated = append(p.invalidated, principal)
	return nil
}

func (p *fakePublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.alerts = append(p.alerts, msg)
	return nil
}

// denyScreener rejects every request.
type denyScreener struct{}

func (denyScreener) Screen(context.Context, admission.RequestSignals) bool { return false }

// openPipeline admits freely up to the bucket capacity.
func openPipeline(capacity float64) *admission.Pipeline {
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Capacity:        capacity,
		RefillPerSecond: 1.0 / 3600.0,
	})
	return admission.NewPipeline(nil, limiter, nil)
}
