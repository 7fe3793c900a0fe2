// Package clock abstracts wall time so jobs and window math are testable.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func NewSystemClock() Clock { return systemClock{} }

// StartOfMonth truncates t to the first instant of its UTC month.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// StartOfPreviousMonth returns the first instant of the month before t's.
func StartOfPreviousMonth(t time.Time) time.Time {
	return StartOfMonth(StartOfMonth(t).Add(-time.Hour))
}
