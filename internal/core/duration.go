package core

import (
	"fmt"
	"time"
)

// DurationMinutes returns the worked minutes between start and end as
// (end − start) mod 24h. An end before the start is read as an overnight
// entry and wraps once; this replaces the old implicit +24h heuristic
// with an explicit rule.
func DurationMinutes(start, end time.Time) int {
	minutes := int(end.Sub(start).Minutes())
	const day = 24 * 60
	minutes %= day
	if minutes < 0 {
		minutes += day
	}
	return minutes
}

// Minutes is DurationMinutes over the entry's own bounds.
func (e TimeEntry) Minutes() int {
	return DurationMinutes(e.Start, e.End)
}

// Cost prices the entry at its hourly rate, rounded to whole cents.
func (e TimeEntry) Cost() Money {
	cents := int64(e.Minutes()) * e.HourlyRate.Cents
	// half-up on the per-hour division
	return Money{Cents: (cents + 30) / 60}
}

// FormatMinutes renders a duration as "4h 15m". Zero formats as "0h 0m".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
