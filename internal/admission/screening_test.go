package admission

import (
	"context"
	"testing"
)

func TestHeuristicScreener(t *testing.T) {
	tests := []struct {
		name string
		sig  RequestSignals
		want bool
	}{
		{
			name: "clean browser request",
			sig: RequestSignals{
				Method:    "POST",
				Path:      "/api/budget",
				UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
				URLLength: 20,
			},
			want: true,
		},
		{
			name: "path traversal",
			sig:  RequestSignals{Method: "GET", Path: "/api/../../etc/passwd"},
			want: false,
		},
		{
			name: "sql injection in query",
			sig:  RequestSignals{Method: "GET", Path: "/api/budget", RawQuery: "account=1 union select *"},
			want: false,
		},
		{
			name: "scraper user agent",
			sig:  RequestSignals{Method: "POST", Path: "/api/budget", UserAgent: "FancyScraper/1.0"},
			want: false,
		},
		{
			name: "unusual method",
			sig:  RequestSignals{Method: "TRACE", Path: "/api/budget"},
			want: false,
		},
		{
			name: "oversized url",
			sig:  RequestSignals{Method: "GET", Path: "/api/budget", URLLength: 4096},
			want: false,
		},
		{
			name: "too many proxy hops",
			sig:  RequestSignals{Method: "POST", Path: "/api/budget", ForwardedHops: 9},
			want: false,
		},
	}

	s := NewHeuristicScreener()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Screen(context.Background(), tt.sig); got != tt.want {
				t.Errorf("Screen() = %v, want %v", got, tt.want)
			}
		})
	}

	m := s.Metrics()
	if m.Screened != int64(len(tests)) {
		t.Errorf("screened = %d, want %d", m.Screened, len(tests))
	}
	if m.Blocked != 6 {
		t.Errorf("blocked = %d, want 6", m.Blocked)
	}
}
