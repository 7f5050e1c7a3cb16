// Package admission orders the request filters that gate mutation actions:
// shield/bot screening first, then the per-principal token bucket. The first
// deny wins and no later stage runs.
package admission

import (
	"context"
	"log/slog"
	"time"

	"budgetgate/internal/core"
	"budgetgate/internal/ratelimit"
)

// ActionKind identifies the class of mutation being gated. The pipeline can
// be enabled or disabled per kind from configuration.
type ActionKind string

const (
	ActionBudgetWrite      ActionKind = "budget_write"
	ActionTransactionWrite ActionKind = "transaction_write"
)

// DenyReason says which stage denied admission.
type DenyReason string

const (
	DenyScreening   DenyReason = "screening"
	DenyRateLimited DenyReason = "rate_limited"
)

// Decision is the pipeline outcome for one request.
type Decision struct {
	Allowed    bool
	Reason     DenyReason    // set when denied
	RetryAfter time.Duration // set only for rate-limit denials
}

// RequestSignals are the transport-level properties the screening stage
// classifies on. Building them is the transport adapter's job, so the
// pipeline itself stays independent of net/http.
type RequestSignals struct {
	ClientIP      string
	UserAgent     string
	Method        string
	Path          string
	RawQuery      string
	URLLength     int
	ForwardedHops int
}

// Screener is the pluggable bot/shield classifier. Implementations are
// stateless pass/fail filters over transport signals.
type Screener interface {
	// Screen returns false when the request should be rejected outright.
	Screen(ctx context.Context, sig RequestSignals) bool
}

// Pipeline runs screening then rate limiting, in that fixed order. Cheap
// structural rejection of bot traffic must not consume rate-limit budget
// belonging to legitimate principals behind the same infrastructure noise.
type Pipeline struct {
	screener Screener
	limiter  *ratelimit.Limiter
	gates    map[ActionKind]bool
}

// NewPipeline builds a pipeline. gates maps each action kind to whether it
// is admission-controlled; kinds missing from the map are gated.
func NewPipeline(screener Screener, limiter *ratelimit.Limiter, gates map[ActionKind]bool) *Pipeline {
	return &Pipeline{
		screener: screener,
		limiter:  limiter,
		gates:    gates,
	}
}

// Check decides whether the principal's action may proceed. The token bucket
// stage is never consulted when screening denies. Only mutation actions go
// through here; read paths are never gated.
func (p *Pipeline) Check(ctx context.Context, principal core.Principal, action ActionKind, sig RequestSignals) (Decision, error) {
	if enabled, ok := p.gates[action]; ok && !enabled {
		return Decision{Allowed: true}, nil
	}

	if p.screener != nil && !p.screener.Screen(ctx, sig) {
		slog.WarnContext(ctx, "Request blocked by screening",
			"principal", principal,
			"action", string(action),
			"client_ip", sig.ClientIP,
			"user_agent", sig.UserAgent)
		return Decision{Allowed: false, Reason: DenyScreening}, nil
	}

	d, err := p.limiter.Admit(principal, 1)
	if err != nil {
		return Decision{}, err
	}
	if !d.Allowed {
		slog.InfoContext(ctx, "Request rate limited",
			"principal", principal,
			"action", string(action),
			"retry_after", d.RetryAfter.Round(time.Second).String())
		return Decision{Allowed: false, Reason: DenyRateLimited, RetryAfter: d.RetryAfter}, nil
	}

	return Decision{Allowed: true}, nil
}

// Err converts a deny decision into the matching error from the taxonomy.
// Calling it on an allowed decision returns nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case DenyScreening:
		return core.ErrBlockedByScreening
	case DenyRateLimited:
		return &core.RateLimitedError{RetryAfter: d.RetryAfter}
	default:
		return core.ErrBlockedByScreening
	}
}
