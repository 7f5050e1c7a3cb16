package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

type (
	// Principal is the opaque identifier of an authenticated actor. It is
	// established by the identity collaborator and never interpreted here.
	Principal string

	// AccountID identifies one of a principal's accounts.
	AccountID string

	TransactionType string

	// RecurringInterval is the cadence of a recurring transaction template.
	// The empty value means "not set".
	RecurringInterval string

	Money struct {
		Cents int64
	}

	// Budget is the single monthly spending budget of a principal.
	// At most one Budget row exists per principal; writes are upserts.
	Budget struct {
		Owner          Principal
		Amount         Money
		LastAlertMonth string // "2006-01" of the last threshold alert, empty if none
	}

	// Transaction is a committed ledger entry. Recurring templates carry
	// IsRecurring plus an interval; materialized instances do not.
	Transaction struct {
		ID                int64
		Owner             Principal
		Account           AccountID
		Type              TransactionType
		Amount            Money
		Date              time.Time
		Category          string
		Description       string
		IsRecurring       bool
		RecurringInterval RecurringInterval
		NextRecurringDate time.Time
		LastProcessed     time.Time
	}

	// TransactionDraft is user-submitted input for a new transaction,
	// validated before it reaches the store.
	TransactionDraft struct {
		Account           AccountID
		Type              TransactionType
		Amount            Money
		Date              time.Time
		Category          string
		Description       string
		IsRecurring       bool
		RecurringInterval RecurringInterval
	}
)

func (p Principal) IsZero() bool {
	return strings.TrimSpace(string(p)) == ""
}

// Valid reports whether the transaction type is one of the known values.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Valid reports whether the interval is one of the known cadences.
// The empty value is not valid; absence is checked separately.
func (ri RecurringInterval) Valid() bool {
	switch ri {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// Validate checks a draft against the stated invariants. It returns a
// *FieldError naming the first offending field so callers can surface it
// as a user-correctable validation failure.
func (d TransactionDraft) Validate() error {
	if strings.TrimSpace(string(d.Account)) == "" {
		return &FieldError{Field: "account", Reason: "required"}
	}
	if !d.Type.Valid() {
		return &FieldError{Field: "type", Reason: "must be INCOME or EXPENSE"}
	}
	if d.Amount.Cents <= 0 {
		return &FieldError{Field: "amount", Reason: "must be positive"}
	}
	if d.Date.IsZero() {
		return &FieldError{Field: "date", Reason: "required"}
	}
	if strings.TrimSpace(d.Category) == "" {
		return &FieldError{Field: "category", Reason: "required"}
	}
	if len(d.Description) > 200 {
		return &FieldError{Field: "description", Reason: "too long (max 200 characters)"}
	}
	// Cross-field rule: a recurring transaction must declare its cadence.
	// An interval on a non-recurring draft is stored as-is but stays inert.
	if d.IsRecurring {
		if d.RecurringInterval == "" {
			return &FieldError{Field: "recurringInterval", Reason: "required when isRecurring"}
		}
		if !d.RecurringInterval.Valid() {
			return &FieldError{Field: "recurringInterval", Reason: "must be DAILY, WEEKLY, MONTHLY or YEARLY"}
		}
	} else if d.RecurringInterval != "" && !d.RecurringInterval.Valid() {
		return &FieldError{Field: "recurringInterval", Reason: "must be DAILY, WEEKLY, MONTHLY or YEARLY"}
	}
	return nil
}
