// Package calendar partitions time entries into calendar-month grids and
// week groups for the time-tracking views. All bucketing happens on the
// local calendar date of an entry's start time.
package calendar

import (
	"time"

	"rechnerei/internal/core"
)

// Cell is one day of a rendered month grid.
type Cell struct {
	Date            time.Time
	InCurrentPeriod bool
	Today           bool
	Entries         []core.TimeEntry
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same local calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// startOfWeek returns the most recent weekStart on or before t.
func startOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	t = StartOfDay(t)
	diff := (int(t.Weekday()) - int(weekStart) + 7) % 7
	return t.AddDate(0, 0, -diff)
}

// WeekRange returns the seven days of the week containing ref, starting
// on weekStart. The business default is Monday (ISO weeks); the start
// day is configuration, not a constant, because some installations want
// Sunday-first.
func WeekRange(ref time.Time, weekStart time.Weekday) [7]time.Time {
	var days [7]time.Time
	first := startOfWeek(ref, weekStart)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return days
}

// MonthGrid produces every day from the start of the week containing the
// first of ref's month through the end of the week containing its last
// day — always a whole number of 7-day rows. Cells are tagged with
// whether they belong to the displayed month and whether they are today.
func MonthGrid(ref, today time.Time, weekStart time.Weekday) []Cell {
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	monthEnd := monthStart.AddDate(0, 1, -1)

	first := startOfWeek(monthStart, weekStart)
	last := startOfWeek(monthEnd, weekStart).AddDate(0, 0, 6)

	var cells []Cell
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		cells = append(cells, Cell{
			Date:            d,
			InCurrentPeriod: d.Month() == ref.Month() && d.Year() == ref.Year(),
			Today:           SameDay(d, today),
		})
	}
	return cells
}

// GridRange returns the first and last day a month grid for ref covers,
// used to fetch exactly the entries the view will show.
func GridRange(ref time.Time, weekStart time.Weekday) (first, last time.Time) {
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	monthEnd := monthStart.AddDate(0, 1, -1)
	first = startOfWeek(monthStart, weekStart)
	last = startOfWeek(monthEnd, weekStart).AddDate(0, 0, 6)
	return first, last
}

// BucketByDay groups entries by the local date of their start time onto
// the given target days. Every target day gets a bucket, empty or not;
// entries outside the target set are simply not shown. Within a bucket
// the input order is preserved.
func BucketByDay(entries []core.TimeEntry, days []time.Time) map[time.Time][]core.TimeEntry {
	buckets := make(map[time.Time][]core.TimeEntry, len(days))
	index := make(map[time.Time]time.Time, len(days))
	for _, d := range days {
		key := StartOfDay(d)
		buckets[key] = nil
		index[key] = key
	}
	for _, e := range entries {
		key := StartOfDay(e.Start)
		if _, ok := index[key]; ok {
			buckets[key] = append(buckets[key], e)
		}
	}
	return buckets
}

// FillGrid attaches entries to the matching cells of a month grid.
func FillGrid(cells []Cell, entries []core.TimeEntry) []Cell {
	days := make([]time.Time, len(cells))
	for i, c := range cells {
		days[i] = c.Date
	}
	buckets := BucketByDay(entries, days)
	for i := range cells {
		cells[i].Entries = buckets[StartOfDay(cells[i].Date)]
	}
	return cells
}

// TotalMinutes sums the duration of all entries.
func TotalMinutes(entries []core.TimeEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Minutes()
	}
	return total
}
