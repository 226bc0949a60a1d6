package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"rechnerei/internal/core"
)

func (r *Repository) CreateRecurringTransaction(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions (start_date, end_date, every, description, amount_cents, type, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatDate(rt.StartDate), formatDate(rt.EndDate), string(rt.Every),
		rt.Description, rt.Amount.Cents, string(rt.Type), rt.Category)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("recurring transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Recurring transaction created",
		"id", id, "every", string(rt.Every), "amount_cents", rt.Amount.Cents)
	return r.GetRecurringTransaction(ctx, id)
}

func scanRecurring(row interface{ Scan(...any) error }) (core.RecurringTransaction, error) {
	var rt core.RecurringTransaction
	var startDate, endDate, every, txType, lastExecution string
	err := row.Scan(&rt.ID, &startDate, &endDate, &every, &rt.Description,
		&rt.Amount.Cents, &txType, &rt.Category, &lastExecution)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.StartDate = parseDate(startDate)
	rt.EndDate = parseDate(endDate)
	rt.Every = core.Interval(every)
	rt.Type = core.TransactionType(txType)
	rt.LastExecution = parseDate(lastExecution)
	return rt, nil
}

const recurringSelect = `SELECT id, start_date, end_date, every, description, amount_cents, type, category, last_execution
FROM recurring_transactions`

func (r *Repository) GetRecurringTransaction(ctx context.Context, id int64) (core.RecurringTransaction, error) {
	rt, err := scanRecurring(r.db.QueryRowContext(ctx, recurringSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, fmt.Errorf("recurring transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("get recurring transaction: %w", err)
	}
	return rt, nil
}

func (r *Repository) ListRecurringTransactions(ctx context.Context) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, recurringSelect+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	var recurring []core.RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		recurring = append(recurring, rt)
	}
	return recurring, rows.Err()
}

func (r *Repository) UpdateRecurringTransaction(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET start_date = ?, end_date = ?, every = ?, description = ?,
		 amount_cents = ?, type = ?, category = ? WHERE id = ?`,
		formatDate(rt.StartDate), formatDate(rt.EndDate), string(rt.Every),
		rt.Description, rt.Amount.Cents, string(rt.Type), rt.Category, rt.ID)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("update recurring transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.RecurringTransaction{}, fmt.Errorf("recurring transaction %d: %w", rt.ID, ErrNotFound)
	}
	return r.GetRecurringTransaction(ctx, rt.ID)
}

func (r *Repository) DeleteRecurringTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recurring transaction %d: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Recurring transaction deleted", "id", id)
	return nil
}

// ExecuteRecurringTransaction materializes one due occurrence: it
// inserts the concrete ledger row and advances last_execution in the
// same transaction, so a crash between the two cannot double-book.
func (r *Repository) ExecuteRecurringTransaction(ctx context.Context, rt core.RecurringTransaction, executionDate string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin execute tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (tx_date, description, amount_cents, type, category)
		 VALUES (?, ?, ?, ?, ?)`,
		executionDate, rt.Description, rt.Amount.Cents, string(rt.Type), rt.Category); err != nil {
		return fmt.Errorf("insert recurring occurrence: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE recurring_transactions SET last_execution = ? WHERE id = ?`,
		executionDate, rt.ID)
	if err != nil {
		return fmt.Errorf("advance last execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recurring transaction %d: %w", rt.ID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit execute tx: %w", err)
	}

	slog.InfoContext(ctx, "Recurring transaction executed",
		"id", rt.ID, "date", executionDate, "amount_cents", rt.Amount.Cents)
	return nil
}
