// Package ratelimit implements the per-principal token-bucket admission
// controller that guards mutation actions.
package ratelimit

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgetgate/internal/core"
)

// ErrCostExceedsCapacity means a caller asked for more tokens than a full
// bucket can ever hold. That is a configuration error, not a deny: returning
// a retry hint would promise an admission that can never happen.
var ErrCostExceedsCapacity = errors.New("cost exceeds bucket capacity")

// Decision is the outcome of a single admit call.
type Decision struct {
	Allowed bool
	// RetryAfter is the time until enough tokens will have refilled for the
	// denied cost. Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// Config holds limiter configuration. Values are fixed per deployment.
type Config struct {
	// Capacity is the maximum token balance of a bucket. A new bucket
	// starts full, so a fresh principal can burst up to Capacity actions.
	Capacity float64
	// RefillPerSecond is the continuous refill rate. The default of
	// 10/3600 allows 10 actions per hour.
	RefillPerSecond float64
	// MaxPrincipals bounds the number of tracked buckets. The least
	// recently used bucket is evicted past this limit; a re-created
	// bucket starts full again, never starved.
	MaxPrincipals int
}

// DefaultConfig returns the deployment defaults: burst of 10, 10 actions/hour.
func DefaultConfig() Config {
	return Config{
		Capacity:        10,
		RefillPerSecond: 10.0 / 3600.0,
		MaxPrincipals:   10000,
	}
}

// Limiter maintains one refillable token bucket per principal and decides
// admit/deny for unit-cost (or larger) actions.
//
// All bucket state is guarded by a single mutex so refill-and-spend is one
// atomic critical section: two concurrent requests from the same principal
// can never both observe sufficient tokens before either decrements.
// Eviction runs inside the same section, so no admit call can observe a
// half-evicted bucket.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[core.Principal]*list.Element
	lru     *list.List // front = most recently used

	// now is replaceable in tests.
	now func() time.Time
}

type bucket struct {
	principal  core.Principal
	tokens     float64
	lastRefill time.Time
}

// NewLimiter creates a limiter with the given configuration. Non-positive
// fields fall back to the defaults.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.RefillPerSecond <= 0 {
		cfg.RefillPerSecond = def.RefillPerSecond
	}
	if cfg.MaxPrincipals <= 0 {
		cfg.MaxPrincipals = def.MaxPrincipals
	}
	return &Limiter{
		cfg:     cfg,
		buckets: make(map[core.Principal]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Admit refills the principal's bucket for the elapsed time, then tries to
// spend cost tokens. On deny the Decision carries the retry hint
// (cost - tokens) / refillRate. Buckets are created lazily and start full.
func (l *Limiter) Admit(principal core.Principal, cost float64) (Decision, error) {
	if cost <= 0 {
		return Decision{}, fmt.Errorf("invalid cost %v: must be positive", cost)
	}
	if cost > l.cfg.Capacity {
		return Decision{}, fmt.Errorf("%w: cost %v, capacity %v", ErrCostExceedsCapacity, cost, l.cfg.Capacity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.bucketFor(principal, now)

	// Refill before evaluating cost, capped at capacity so a bucket
	// observed long after its last refill does not accrue unbounded tokens.
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.cfg.RefillPerSecond
		if b.tokens > l.cfg.Capacity {
			b.tokens = l.cfg.Capacity
		}
	}
	b.lastRefill = now

	if b.tokens >= cost {
		b.tokens -= cost
		return Decision{Allowed: true}, nil
	}

	deficit := cost - b.tokens
	retryAfter := time.Duration(deficit / l.cfg.RefillPerSecond * float64(time.Second))
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}

// bucketFor returns the principal's bucket, creating it full if absent, and
// marks it most recently used. Must be called with l.mu held.
func (l *Limiter) bucketFor(principal core.Principal, now time.Time) *bucket {
	if elem, ok := l.buckets[principal]; ok {
		l.lru.MoveToFront(elem)
		return elem.Value.(*bucket)
	}

	b := &bucket{principal: principal, tokens: l.cfg.Capacity, lastRefill: now}
	l.buckets[principal] = l.lru.PushFront(b)

	// Evict the least recently used bucket past the bound.
	if l.lru.Len() > l.cfg.MaxPrincipals {
		oldest := l.lru.Back()
		if oldest != nil {
			evicted := oldest.Value.(*bucket)
			delete(l.buckets, evicted.principal)
			l.lru.Remove(oldest)
		}
	}
	return b
}

// ActivePrincipals returns the number of currently tracked buckets.
func (l *Limiter) ActivePrincipals() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Tokens reports the current balance for a principal without refilling.
// Returns the full capacity for unknown principals, since a fresh bucket
// would start full. Intended for observability endpoints and tests.
func (l *Limiter) Tokens(principal core.Principal) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if elem, ok := l.buckets[principal]; ok {
		return elem.Value.(*bucket).tokens
	}
	return l.cfg.Capacity
}
