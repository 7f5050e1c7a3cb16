package http

import (
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		realIP string
		remote string
		want   string
	}{
		{"forwarded chain uses first entry", "203.0.113.9, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.9"},
		{"real ip fallback", "", "203.0.113.9", "10.0.0.2:1234", "203.0.113.9"},
		{"remote addr fallback strips port", "", "", "10.0.0.2:1234", "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/budget", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("client ip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSignalsFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/transactions?x=1", nil)
	r.Header.Set("User-Agent", "budget-cli/1.0")
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1, 10.0.0.2")

	sig := signalsFromRequest(r)
	if sig.Method != "POST" || sig.Path != "/api/transactions" || sig.RawQuery != "x=1" {
		t.Errorf("signals = %+v, want request line fields", sig)
	}
	if sig.ForwardedHops != 3 {
		t.Errorf("forwarded hops = %d, want 3", sig.ForwardedHops)
	}
	if sig.UserAgent != "budget-cli/1.0" {
		t.Errorf("user agent = %q", sig.UserAgent)
	}
	if sig.URLLength == 0 {
		t.Error("url length not populated")
	}
}
