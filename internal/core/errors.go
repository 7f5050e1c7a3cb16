package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized means no principal could be resolved for the request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidAmount means a monetary amount violates a stated invariant.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrBlockedByScreening means the shield stage classified the request as
	// hostile traffic. Terminal: retrying does not change the classification,
	// so no retry hint is attached.
	ErrBlockedByScreening = errors.New("blocked by request screening")
)

// FieldError reports an input field that violates a validation rule.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// RateLimitedError reports an admission denial by the token bucket, with a
// hint for when retrying may succeed. The core never retries on its own.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

// StoreError wraps a failure of the persistence collaborator. It is surfaced
// as transient; whether to retry is the caller's decision.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
