package calendar

import (
	"testing"
	"time"

	"rechnerei/internal/core"
)

func TestSummarizeWeek(t *testing.T) {
	ref := date(2025, time.October, 15)
	entries := []core.TimeEntry{
		entryAt(date(2025, time.October, 13).Add(9*time.Hour), 90, "Website"),
		entryAt(date(2025, time.October, 13).Add(13*time.Hour), 30, "Shooting"),
		entryAt(date(2025, time.October, 15).Add(10*time.Hour), 60, "Website"),
		entryAt(date(2025, time.October, 16).Add(10*time.Hour), 45, ""),
	}
	s := SummarizeWeek(entries, ref, time.Monday)

	if len(s.Series) != 3 {
		t.Fatalf("expected 3 series, got %d", len(s.Series))
	}
	// First-seen order: Website (Mon), Shooting (Mon), Unbekannt (Thu)
	if s.Series[0].Project != "Website" || s.Series[1].Project != "Shooting" || s.Series[2].Project != "Unbekannt" {
		t.Fatalf("unexpected series order: %v, %v, %v",
			s.Series[0].Project, s.Series[1].Project, s.Series[2].Project)
	}
	if s.Series[0].Color != Palette[0] || s.Series[1].Color != Palette[1] {
		t.Fatalf("colors not assigned in first-seen order")
	}
	if got := s.Series[0].Hours[0]; got != 1.5 {
		t.Fatalf("Website Monday hours: expected 1.5, got %v", got)
	}
	if got := s.Series[0].Hours[2]; got != 1.0 {
		t.Fatalf("Website Wednesday hours: expected 1.0, got %v", got)
	}
	if s.TotalMinutes != 90+30+60+45 {
		t.Fatalf("total minutes: expected %d, got %d", 90+30+60+45, s.TotalMinutes)
	}
}

func TestSummarizeWeekEmpty(t *testing.T) {
	s := SummarizeWeek(nil, date(2025, time.October, 15), time.Monday)
	if len(s.Series) != 0 || s.TotalMinutes != 0 {
		t.Fatalf("empty week: expected no series and zero total, got %+v", s)
	}
}

func TestSummarizeWeekPaletteCycles(t *testing.T) {
	day := date(2025, time.October, 13)
	var entries []core.TimeEntry
	names := []string{"P1", "P2", "P3", "P4", "P5", "P6"}
	for i, n := range names {
		entries = append(entries, entryAt(day.Add(time.Duration(8+i)*time.Hour), 30, n))
	}
	s := SummarizeWeek(entries, day, time.Monday)
	if len(s.Series) != 6 {
		t.Fatalf("expected 6 series, got %d", len(s.Series))
	}
	if s.Series[5].Color != Palette[0] {
		t.Fatalf("sixth project should cycle back to first color, got %q", s.Series[5].Color)
	}
}

func TestTotalMinutes(t *testing.T) {
	entries := []core.TimeEntry{
		entryAt(date(2025, time.October, 13).Add(9*time.Hour), 255, "A"),
		entryAt(date(2025, time.October, 14).Add(9*time.Hour), 0, "A"),
	}
	if got := TotalMinutes(entries); got != 255 {
		t.Fatalf("expected 255, got %d", got)
	}
	if got := core.FormatMinutes(TotalMinutes(entries)); got != "4h 15m" {
		t.Fatalf("expected 4h 15m, got %q", got)
	}
}
