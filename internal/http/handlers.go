package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budgetgate/internal/core"
)

type setBudgetRequest struct {
	// Amount is a decimal string, e.g. "450.00". Comma separators accepted.
	Amount string `json:"amount"`
}

type budgetPayload struct {
	Owner          string `json:"owner"`
	AmountCents    int64  `json:"amountCents"`
	LastAlertMonth string `json:"lastAlertMonth,omitempty"`
}

type aggregatedBudgetResponse struct {
	Budget               *budgetPayload `json:"budget"`
	CurrentExpensesCents int64          `json:"currentExpensesCents"`
}

type createTransactionRequest struct {
	Account           string `json:"account"`
	Type              string `json:"type"`
	Amount            string `json:"amount"`
	Date              string `json:"date"` // "2006-01-02"
	Category          string `json:"category"`
	Description       string `json:"description"`
	IsRecurring       bool   `json:"isRecurring"`
	RecurringInterval string `json:"recurringInterval"`
}

type transactionPayload struct {
	ID                int64  `json:"id"`
	Account           string `json:"account"`
	Type              string `json:"type"`
	AmountCents       int64  `json:"amountCents"`
	Date              string `json:"date"`
	Category          string `json:"category"`
	Description       string `json:"description,omitempty"`
	IsRecurring       bool   `json:"isRecurring"`
	RecurringInterval string `json:"recurringInterval,omitempty"`
	NextRecurringDate string `json:"nextRecurringDate,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetBudget(w, r)
	case http.MethodPost:
		s.handleSetBudget(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	principal, err := s.resolver.Resolve(r.Context(), r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req setBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, r, core.ErrInvalidAmount)
		return
	}

	budget, err := s.budgets.SetBudget(r.Context(), principal, core.Money{Cents: cents}, signalsFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBudgetPayload(&budget))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	principal, err := s.resolver.Resolve(r.Context(), r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	account := core.AccountID(strings.TrimSpace(r.URL.Query().Get("account")))
	if account == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing account parameter"})
		return
	}

	agg, err := s.budgets.GetAggregatedBudget(r.Context(), principal, account)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, aggregatedBudgetResponse{
		Budget:               toBudgetPayload(agg.Budget),
		CurrentExpensesCents: agg.CurrentExpenses.Cents,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	principal, err := s.resolver.Resolve(r.Context(), r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	draft, ferr := toDraft(req)
	if ferr != nil {
		writeError(w, r, ferr)
		return
	}

	created, err := s.transactions.CreateTransaction(r.Context(), principal, draft, signalsFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionPayload(created))
}

// toDraft parses wire fields into a draft; format errors surface as
// FieldError just like semantic validation failures.
func toDraft(req createTransactionRequest) (core.TransactionDraft, *core.FieldError) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(req.Amount))
	if err != nil {
		return core.TransactionDraft{}, &core.FieldError{Field: "amount", Reason: "invalid decimal"}
	}

	var date time.Time
	if strings.TrimSpace(req.Date) != "" {
		date, err = time.Parse(time.DateOnly, strings.TrimSpace(req.Date))
		if err != nil {
			return core.TransactionDraft{}, &core.FieldError{Field: "date", Reason: "must be YYYY-MM-DD"}
		}
	}

	return core.TransactionDraft{
		Account:           core.AccountID(strings.TrimSpace(req.Account)),
		Type:              core.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Amount:            core.Money{Cents: cents},
		Date:              date,
		Category:          strings.TrimSpace(req.Category),
		Description:       strings.TrimSpace(req.Description),
		IsRecurring:       req.IsRecurring,
		RecurringInterval: core.RecurringInterval(strings.ToUpper(strings.TrimSpace(req.RecurringInterval))),
	}, nil
}

func toBudgetPayload(b *core.Budget) *budgetPayload {
	if b == nil {
		return nil
	}
	return &budgetPayload{
		Owner:          string(b.Owner),
		AmountCents:    b.Amount.Cents,
		LastAlertMonth: b.LastAlertMonth,
	}
}

func toTransactionPayload(t core.Transaction) transactionPayload {
	p := transactionPayload{
		ID:                t.ID,
		Account:           string(t.Account),
		Type:              string(t.Type),
		AmountCents:       t.Amount.Cents,
		Date:              t.Date.Format(time.DateOnly),
		Category:          t.Category,
		Description:       t.Description,
		IsRecurring:       t.IsRecurring,
		RecurringInterval: string(t.RecurringInterval),
	}
	if !t.NextRecurringDate.IsZero() {
		p.NextRecurringDate = t.NextRecurringDate.Format(time.DateOnly)
	}
	return p
}

// writeError maps the error taxonomy onto HTTP statuses. Admission denials
// and validation failures carry distinct statuses so clients can tell a
// correctable request from one that must back off.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *core.FieldError
	var rle *core.RateLimitedError
	var se *core.StoreError

	switch {
	case errors.Is(err, core.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.As(err, &fe):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: fe.Reason, Field: fe.Field})
	case errors.Is(err, core.ErrInvalidAmount):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid amount", Field: "amount"})
	case errors.As(err, &rle):
		seconds := int(math.Ceil(rle.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limited"})
	case errors.Is(err, core.ErrBlockedByScreening):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.As(err, &se):
		slog.ErrorContext(r.Context(), "Store failure", "op", se.Op, "error", se.Err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "storage unavailable"})
	default:
		slog.ErrorContext(r.Context(), "Unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
