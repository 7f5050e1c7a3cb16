// Package identity resolves the authenticated principal for a request. The
// identity provider itself is an external collaborator; this package only
// maps its already-validated credentials onto a core.Principal.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"budgetgate/internal/cache"
	"budgetgate/internal/core"
)

// Resolver maps an incoming request to the principal acting on it.
type Resolver interface {
	// Resolve returns the principal or core.ErrUnauthorized.
	Resolve(ctx context.Context, r *http.Request) (core.Principal, error)
}

// Verifier is the outbound port to the identity provider: it validates a
// session token and returns the stable principal it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (core.Principal, error)
}

// HeaderResolver trusts a gateway-injected principal header when present,
// and otherwise verifies the session token with the identity provider.
// Verified tokens are cached with a bounded TTL so the provider is not
// consulted on every mutation.
type HeaderResolver struct {
	principalHeader string
	tokenHeader     string
	verifier        Verifier
	sessions        *cache.LRUCache[core.Principal]
}

// NewHeaderResolver builds a resolver. verifier may be nil when deployments
// run entirely behind a trusted gateway that always injects the header.
func NewHeaderResolver(principalHeader string, verifier Verifier, cacheSize int, cacheTTL time.Duration) *HeaderResolver {
	if principalHeader == "" {
		principalHeader = "X-Auth-Principal"
	}
	return &HeaderResolver{
		principalHeader: principalHeader,
		tokenHeader:     "X-Session-Token",
		verifier:        verifier,
		sessions:        cache.NewLRUCache[core.Principal](cacheSize, cacheTTL),
	}
}

// SessionCache exposes the resolver's cache for lifecycle management.
func (h *HeaderResolver) SessionCache() *cache.LRUCache[core.Principal] {
	return h.sessions
}

// Resolve implements Resolver.
func (h *HeaderResolver) Resolve(ctx context.Context, r *http.Request) (core.Principal, error) {
	if v := strings.TrimSpace(r.Header.Get(h.principalHeader)); v != "" {
		return core.Principal(v), nil
	}

	token := strings.TrimSpace(r.Header.Get(h.tokenHeader))
	if token == "" || h.verifier == nil {
		return "", core.ErrUnauthorized
	}

	if p, ok := h.sessions.Get(token); ok {
		return p, nil
	}

	p, err := h.verifier.Verify(ctx, token)
	if err != nil {
		slog.WarnContext(ctx, "Session token verification failed", "error", err)
		return "", fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	if p.IsZero() {
		return "", core.ErrUnauthorized
	}

	h.sessions.Set(token, p)
	return p, nil
}
