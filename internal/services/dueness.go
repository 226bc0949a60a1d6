// Package services holds the business logic between the HTTP layer and
// storage: invoice lifecycle, the merged finance ledger and the
// recurring transaction processor.
package services

import (
	"fmt"
	"time"

	"rechnerei/internal/core"
)

// DuenessChecker decides whether a recurring transaction is due, given
// when it last executed.
type DuenessChecker interface {
	IsDue(lastExecution, now time.Time, startDate time.Time) bool
}

type DailyChecker struct{}

// IsDue returns true if the last execution was before today.
func (DailyChecker) IsDue(lastExecution, now time.Time, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return lastExecution.Format("2006-01-02") != now.Format("2006-01-02")
}

type WeeklyChecker struct{}

// IsDue returns true if 7 or more days have passed since last execution.
func (WeeklyChecker) IsDue(lastExecution, now time.Time, _ time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	return now.Sub(lastExecution).Hours()/24 >= 7
}

type MonthlyChecker struct{}

// IsDue returns true in a new month once the start date's day of month
// is reached. A target day past the month's end clamps to its last day.
func (MonthlyChecker) IsDue(lastExecution, now time.Time, startDate time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() && lastExecution.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(startDate.Day(), now)
}

type YearlyChecker struct{}

// IsDue returns true in a new year once the start date's month and day
// are reached.
func (YearlyChecker) IsDue(lastExecution, now time.Time, startDate time.Time) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() {
		return false
	}
	if now.Month() < startDate.Month() {
		return false
	}
	if now.Month() == startDate.Month() {
		return now.Day() >= clampDay(startDate.Day(), now)
	}
	return true
}

func clampDay(targetDay int, now time.Time) int {
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		return lastDayOfMonth
	}
	return targetDay
}

var duenessStrategies = map[core.Interval]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

func GetDuenessChecker(every core.Interval) (DuenessChecker, error) {
	checker, ok := duenessStrategies[every]
	if !ok {
		return nil, fmt.Errorf("unknown repetition interval: %s", every)
	}
	return checker, nil
}
