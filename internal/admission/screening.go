package admission

import (
	"context"
	"strings"
	"sync/atomic"
)

// ScreeningMetrics tracks screening outcomes.
type ScreeningMetrics struct {
	Screened int64
	Blocked  int64
}

// HeuristicScreener is the built-in shield implementation: a stateless
// classifier over transport-level signals. It stands in for an external
// screening capability and can be swapped behind the Screener interface.
type HeuristicScreener struct {
	metrics ScreeningMetrics
}

// NewHeuristicScreener creates a screener with the default rule set.
func NewHeuristicScreener() *HeuristicScreener {
	return &HeuristicScreener{}
}

// suspiciousPatterns flag common probe and injection attempts in the path
// or query string.
var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

// suspiciousAgents flag automation tooling in the User-Agent header.
var suspiciousAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb",
	"python-requests", "scanner",
	"bot", "crawler", "spider", "scraper",
}

// Screen classifies the request. Returns false for traffic that should be
// rejected before it can consume any principal's rate-limit budget.
func (s *HeuristicScreener) Screen(_ context.Context, sig RequestSignals) bool {
	atomic.AddInt64(&s.metrics.Screened, 1)

	blocked := false

	path := strings.ToLower(sig.Path)
	query := strings.ToLower(sig.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			blocked = true
			break
		}
	}

	if !blocked {
		agent := strings.ToLower(sig.UserAgent)
		for _, marker := range suspiciousAgents {
			if strings.Contains(agent, marker) {
				blocked = true
				break
			}
		}
	}

	if !blocked {
		switch sig.Method {
		case "TRACE", "TRACK", "DEBUG", "CONNECT":
			blocked = true
		}
	}

	// Excessively long URLs suggest an overflow attempt.
	if sig.URLLength > 2048 {
		blocked = true
	}

	// More than 5 proxy hops suggests forwarding-header manipulation.
	if sig.ForwardedHops > 5 {
		blocked = true
	}

	if blocked {
		atomic.AddInt64(&s.metrics.Blocked, 1)
		return false
	}
	return true
}

// Metrics returns a snapshot of screening counters.
func (s *HeuristicScreener) Metrics() ScreeningMetrics {
	return ScreeningMetrics{
		Screened: atomic.LoadInt64(&s.metrics.Screened),
		Blocked:  atomic.LoadInt64(&s.metrics.Blocked),
	}
}
