package core

import (
	"testing"
	"time"
)

func TestCurrentMonthWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			"mid june",
			time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC),
			time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			"leap february",
			time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			"non-leap february",
			time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			"december",
			time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
			time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := CurrentMonthWindow(tt.now)
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", w.Start, tt.wantStart)
			}
			if !w.End.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", w.End, tt.wantEnd)
			}
		})
	}
}

func TestMonthWindow_Contains(t *testing.T) {
	w := CurrentMonthWindow(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"first day", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"last day late evening", time.Date(2025, 6, 30, 23, 59, 0, 0, time.UTC), true},
		{"last instant of previous month", time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC), false},
		{"first instant of next month", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.t); got != tt.want {
				t.Errorf("contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestCurrentMonthWindow_Rollover(t *testing.T) {
	// A transaction dated June 30 is in scope on June 30 but out of scope
	// the moment July begins, because the window is recomputed per call.
	txDate := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	june := CurrentMonthWindow(time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC))
	if !june.Contains(txDate) {
		t.Error("transaction should be inside its own month")
	}

	july := CurrentMonthWindow(time.Date(2025, 7, 1, 0, 0, 1, 0, time.UTC))
	if july.Contains(txDate) {
		t.Error("transaction must leave scope at month rollover")
	}
}
