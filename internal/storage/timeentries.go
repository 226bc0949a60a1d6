package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rechnerei/internal/core"
)

const timeEntrySelect = `SELECT e.id, e.project_id, p.name, e.catalog_item_id, COALESCE(ci.name, ''),
	e.hourly_rate_cents, e.start_time, e.end_time, e.note, e.invoice_id
FROM time_entries e
JOIN projects p ON p.id = e.project_id
LEFT JOIN catalog_items ci ON ci.id = e.catalog_item_id`

func scanTimeEntry(row interface{ Scan(...any) error }) (core.TimeEntry, error) {
	var e core.TimeEntry
	var catalogID, invoiceID sql.NullInt64
	var start, end string
	err := row.Scan(&e.ID, &e.ProjectID, &e.ProjectName, &catalogID, &e.CatalogName,
		&e.HourlyRate.Cents, &start, &end, &e.Note, &invoiceID)
	if err != nil {
		return core.TimeEntry{}, err
	}
	e.CatalogItemID = catalogID.Int64
	e.InvoiceID = invoiceID.Int64
	e.Start = parseTime(start)
	e.End = parseTime(end)
	return e, nil
}

func (r *Repository) CreateTimeEntry(ctx context.Context, e core.TimeEntry) (core.TimeEntry, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO time_entries (project_id, catalog_item_id, hourly_rate_cents, start_time, end_time, note)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ProjectID, nullID(e.CatalogItemID), e.HourlyRate.Cents,
		formatTime(e.Start), formatTime(e.End), e.Note)
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("create time entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("time entry insert id: %w", err)
	}

	slog.InfoContext(ctx, "Time entry created", "id", id, "project_id", e.ProjectID, "minutes", e.Minutes())
	return r.GetTimeEntry(ctx, id)
}

func (r *Repository) GetTimeEntry(ctx context.Context, id int64) (core.TimeEntry, error) {
	e, err := scanTimeEntry(r.db.QueryRowContext(ctx, timeEntrySelect+` WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.TimeEntry{}, fmt.Errorf("time entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("get time entry: %w", err)
	}
	return e, nil
}

// ListTimeEntriesInRange returns entries whose start lies in [from, to),
// oldest first. The calendar views hand in whole grid ranges.
func (r *Repository) ListTimeEntriesInRange(ctx context.Context, from, to time.Time) ([]core.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		timeEntrySelect+` WHERE e.start_time >= ? AND e.start_time < ? ORDER BY e.start_time, e.id`,
		formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()
	return collectTimeEntries(rows)
}

// ListUnbilledTimeEntries returns a project's entries not yet linked to
// an invoice, oldest first.
func (r *Repository) ListUnbilledTimeEntries(ctx context.Context, projectID int64) ([]core.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		timeEntrySelect+` WHERE e.project_id = ? AND e.invoice_id IS NULL ORDER BY e.start_time, e.id`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list unbilled time entries: %w", err)
	}
	defer rows.Close()
	return collectTimeEntries(rows)
}

func collectTimeEntries(rows *sql.Rows) ([]core.TimeEntry, error) {
	var entries []core.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) UpdateTimeEntry(ctx context.Context, e core.TimeEntry) (core.TimeEntry, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE time_entries SET project_id = ?, catalog_item_id = ?, hourly_rate_cents = ?,
		 start_time = ?, end_time = ?, note = ? WHERE id = ?`,
		e.ProjectID, nullID(e.CatalogItemID), e.HourlyRate.Cents,
		formatTime(e.Start), formatTime(e.End), e.Note, e.ID)
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("update time entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.TimeEntry{}, fmt.Errorf("time entry %d: %w", e.ID, ErrNotFound)
	}
	return r.GetTimeEntry(ctx, e.ID)
}

func (r *Repository) DeleteTimeEntry(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete time entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("time entry %d: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Time entry deleted", "id", id)
	return nil
}
