package http

import (
	"net"
	"net/http"
	"strings"

	"budgetgate/internal/admission"
)

// signalsFromRequest collects the transport-level properties the screening
// stage classifies on.
func signalsFromRequest(r *http.Request) admission.RequestSignals {
	return admission.RequestSignals{
		ClientIP:      extractClientIP(r),
		UserAgent:     r.Header.Get("User-Agent"),
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		URLLength:     len(r.URL.String()),
		ForwardedHops: forwardedHops(r),
	}
}

// extractClientIP resolves the originating client address, preferring proxy
// headers over the socket peer.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry is the originating client.
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func forwardedHops(r *http.Request) int {
	xff := r.Header.Get("X-Forwarded-For")
	if strings.TrimSpace(xff) == "" {
		return 0
	}
	return len(strings.Split(xff, ","))
}
