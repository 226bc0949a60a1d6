package services

import (
	"testing"
	"time"

	"rechnerei/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestDailyChecker(t *testing.T) {
	checker := DailyChecker{}
	now := date(2025, 10, 15)

	if !checker.IsDue(time.Time{}, now, time.Time{}) {
		t.Error("never executed should be due")
	}
	if checker.IsDue(date(2025, 10, 15), now, time.Time{}) {
		t.Error("already executed today should not be due")
	}
	if !checker.IsDue(date(2025, 10, 14), now, time.Time{}) {
		t.Error("executed yesterday should be due")
	}
}

func TestWeeklyChecker(t *testing.T) {
	checker := WeeklyChecker{}
	now := date(2025, 10, 15)

	if checker.IsDue(date(2025, 10, 10), now, time.Time{}) {
		t.Error("5 days since execution should not be due")
	}
	if !checker.IsDue(date(2025, 10, 8), now, time.Time{}) {
		t.Error("7 days since execution should be due")
	}
}

func TestMonthlyChecker(t *testing.T) {
	checker := MonthlyChecker{}
	start := date(2025, 1, 31)

	if checker.IsDue(date(2025, 10, 1), date(2025, 10, 20), start) {
		t.Error("already executed this month should not be due")
	}
	if checker.IsDue(date(2025, 10, 31), date(2025, 11, 15), start) {
		t.Error("target day 31 not reached on Nov 15")
	}
	// November has 30 days, so day 31 clamps to 30.
	if !checker.IsDue(date(2025, 10, 31), date(2025, 11, 30), start) {
		t.Error("clamped target day should fire on Nov 30")
	}
}

func TestYearlyChecker(t *testing.T) {
	checker := YearlyChecker{}
	start := date(2020, 3, 15)

	if checker.IsDue(date(2025, 3, 15), date(2025, 12, 1), start) {
		t.Error("already executed this year should not be due")
	}
	if checker.IsDue(date(2024, 3, 15), date(2025, 2, 1), start) {
		t.Error("before target month should not be due")
	}
	if !checker.IsDue(date(2024, 3, 15), date(2025, 3, 15), start) {
		t.Error("on target day should be due")
	}
	if !checker.IsDue(date(2024, 3, 15), date(2025, 4, 1), start) {
		t.Error("past target month should be due")
	}
}

func TestGetDuenessChecker(t *testing.T) {
	for _, every := range []core.Interval{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetDuenessChecker(every); err != nil {
			t.Errorf("GetDuenessChecker(%s): %v", every, err)
		}
	}
	if _, err := GetDuenessChecker(core.Interval("hourly")); err == nil {
		t.Error("expected an error for an unknown interval")
	}
}
