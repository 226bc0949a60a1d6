package calendar

import (
	"time"

	"rechnerei/internal/core"
)

// Palette is the fixed chart palette; colors are assigned to projects in
// first-seen order and cycle once exhausted.
var Palette = []string{
	"var(--chart-1)",
	"var(--chart-2)",
	"var(--chart-3)",
	"var(--chart-4)",
	"var(--chart-5)",
}

// fallbackProject labels entries whose project join came back empty.
const fallbackProject = "Unbekannt"

type (
	// ProjectSeries is one stacked-bar series: a project with its color
	// and one hour value per day of the week.
	ProjectSeries struct {
		Project string
		Color   string
		Hours   [7]float64
	}

	// WeekSummary drives the weekly stacked-bar chart.
	WeekSummary struct {
		Days         [7]time.Time
		Series       []ProjectSeries
		TotalMinutes int
	}
)

// SummarizeWeek aggregates entry durations per day and project for the
// week containing ref. Projects appear in first-seen order across the
// week; a week with no entries yields no series and a zero total.
func SummarizeWeek(entries []core.TimeEntry, ref time.Time, weekStart time.Weekday) WeekSummary {
	days := WeekRange(ref, weekStart)
	buckets := BucketByDay(entries, days[:])

	summary := WeekSummary{Days: days}
	seriesIdx := make(map[string]int)

	for dayIdx, day := range days {
		for _, e := range buckets[StartOfDay(day)] {
			name := e.ProjectName
			if name == "" {
				name = fallbackProject
			}
			idx, ok := seriesIdx[name]
			if !ok {
				idx = len(summary.Series)
				seriesIdx[name] = idx
				summary.Series = append(summary.Series, ProjectSeries{
					Project: name,
					Color:   Palette[idx%len(Palette)],
				})
			}
			minutes := e.Minutes()
			summary.Series[idx].Hours[dayIdx] += float64(minutes) / 60
			summary.TotalMinutes += minutes
		}
	}
	return summary
}
