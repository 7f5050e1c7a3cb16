package core

import (
	"errors"
	"testing"
	"time"
)

func baseDraft() TransactionDraft {
	return TransactionDraft{
		Account:  "acct-1",
		Type:     Expense,
		Amount:   Money{Cents: 2500},
		Date:     time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Category: "groceries",
	}
}

func TestTransactionDraftValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*TransactionDraft)
		wantField string // empty means valid
	}{
		{"valid", func(d *TransactionDraft) {}, ""},
		{"valid income", func(d *TransactionDraft) { d.Type = Income }, ""},
		{"valid recurring", func(d *TransactionDraft) {
			d.IsRecurring = true
			d.RecurringInterval = Monthly
		}, ""},
		{"inert interval on non-recurring", func(d *TransactionDraft) {
			d.RecurringInterval = Weekly
		}, ""},
		{"missing account", func(d *TransactionDraft) { d.Account = "  " }, "account"},
		{"unknown type", func(d *TransactionDraft) { d.Type = "TRANSFER" }, "type"},
		{"zero amount", func(d *TransactionDraft) { d.Amount = Money{} }, "amount"},
		{"negative amount", func(d *TransactionDraft) { d.Amount = Money{Cents: -100} }, "amount"},
		{"missing date", func(d *TransactionDraft) { d.Date = time.Time{} }, "date"},
		{"missing category", func(d *TransactionDraft) { d.Category = "" }, "category"},
		{"description too long", func(d *TransactionDraft) {
			d.Description = string(make([]byte, 201))
		}, "description"},
		{"recurring without interval", func(d *TransactionDraft) {
			d.IsRecurring = true
		}, "recurringInterval"},
		{"recurring with unknown interval", func(d *TransactionDraft) {
			d.IsRecurring = true
			d.RecurringInterval = "FORTNIGHTLY"
		}, "recurringInterval"},
		{"inert interval must still be a known value", func(d *TransactionDraft) {
			d.RecurringInterval = "SOMETIMES"
		}, "recurringInterval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := baseDraft()
			tt.mutate(&d)

			err := d.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("validate: %v, want ok", err)
				}
				return
			}

			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want FieldError", err)
			}
			if fe.Field != tt.wantField {
				t.Errorf("field = %q, want %q", fe.Field, tt.wantField)
			}
		})
	}
}

func TestPrincipalIsZero(t *testing.T) {
	if !Principal("").IsZero() || !Principal("   ").IsZero() {
		t.Error("blank principals must be zero")
	}
	if Principal("user-1").IsZero() {
		t.Error("non-blank principal must not be zero")
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := &StoreError{Op: "upsert budget", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("StoreError must unwrap to the underlying failure")
	}
}
