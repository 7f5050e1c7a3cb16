package core

import "time"

// MonthWindow is the inclusive calendar-month date range used to scope
// expense aggregation. It is derived, never stored: "current month" moves
// with wall-clock time, so callers recompute it on every aggregation call.
type MonthWindow struct {
	Start time.Time // first calendar day of the month, midnight
	End   time.Time // last calendar day of the month, midnight
}

// CurrentMonthWindow computes the window containing now, in now's location.
func CurrentMonthWindow(now time.Time) MonthWindow {
	year, month, _ := now.Date()
	start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	// Day zero of the next month is the last day of this one.
	end := time.Date(year, month+1, 0, 0, 0, 0, 0, now.Location())
	return MonthWindow{Start: start, End: end}
}

// Contains reports whether the calendar date of t falls inside the window,
// inclusive on both ends. Time-of-day is ignored.
func (w MonthWindow) Contains(t time.Time) bool {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, w.Start.Location())
	return !day.Before(w.Start) && !day.After(w.End)
}
