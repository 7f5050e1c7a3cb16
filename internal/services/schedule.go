package services

import (
	"fmt"
	"time"

	"budgetgate/internal/core"
)

// IntervalStepper computes the next occurrence date for one recurrence
// interval.
type IntervalStepper interface {
	Next(from time.Time) time.Time
}

// DailyStepper advances by one calendar day.
type DailyStepper struct{}

func (DailyStepper) Next(from time.Time) time.Time {
	return from.AddDate(0, 0, 1)
}

// WeeklyStepper advances by seven calendar days.
type WeeklyStepper struct{}

func (WeeklyStepper) Next(from time.Time) time.Time {
	return from.AddDate(0, 0, 7)
}

// MonthlyStepper advances by one month, clamping to the last day of the
// target month so a Jan 31 schedule fires on Feb 28 rather than spilling
// into March.
type MonthlyStepper struct{}

func (MonthlyStepper) Next(from time.Time) time.Time {
	return addMonthsClamped(from, 1)
}

// YearlyStepper advances by one year, clamping Feb 29 to Feb 28 in
// non-leap years.
type YearlyStepper struct{}

func (YearlyStepper) Next(from time.Time) time.Time {
	y, m, d := from.Date()
	last := daysIn(y+1, m)
	if d > last {
		d = last
	}
	return time.Date(y+1, m, d, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

var intervalSteppers = map[core.RecurringInterval]IntervalStepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// NextOccurrence returns the next fire date for a recurring schedule.
func NextOccurrence(from time.Time, interval core.RecurringInterval) (time.Time, error) {
	stepper, ok := intervalSteppers[interval]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown recurring interval: %q", interval)
	}
	return stepper.Next(from), nil
}

func addMonthsClamped(from time.Time, months int) time.Time {
	y, m, d := from.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, from.Location())
	last := daysIn(target.Year(), target.Month())
	if d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

// daysIn returns the number of days in a month. Day zero of the following
// month normalizes to the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
