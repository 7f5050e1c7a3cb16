package amqp

import (
	"encoding/json"
	"time"

	"budgetgate/internal/core"
)

// TransactionCreatedMessage is the lightweight event published after a
// transaction commits. It carries only the ID; consumers fetch the full row
// from the store.
type TransactionCreatedMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionCreatedMessage creates a new transaction event.
func NewTransactionCreatedMessage(id int64) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{ID: id, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON creates a message from JSON bytes.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DashboardInvalidationMessage tells the presentation collaborator to drop
// any cached rendering for a principal. The core holds no render cache of
// its own.
type DashboardInvalidationMessage struct {
	Principal core.Principal `json:"principal"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewDashboardInvalidationMessage creates a new invalidation event.
func NewDashboardInvalidationMessage(p core.Principal) *DashboardInvalidationMessage {
	return &DashboardInvalidationMessage{Principal: p, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes.
func (m *DashboardInvalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessage notifies the presentation collaborator that a
// principal crossed the spending threshold for the month.
type BudgetAlertMessage struct {
	Principal   core.Principal `json:"principal"`
	Month       string         `json:"month"` // "2006-01"
	SpentCents  int64          `json:"spent_cents"`
	BudgetCents int64          `json:"budget_cents"`
	Timestamp   time.Time      `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes.
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
