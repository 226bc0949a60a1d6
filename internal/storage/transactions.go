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

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (tx_date, description, amount_cents, type, category, receipt_url)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		formatDate(t.Date), t.Description, t.Amount.Cents, string(t.Type), t.Category, t.ReceiptURL)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", id, "type", string(t.Type), "amount_cents", t.Amount.Cents, "category", t.Category)
	return r.GetTransaction(ctx, id)
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var t core.Transaction
	var date, txType string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tx_date, description, amount_cents, type, category, receipt_url
		 FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &date, &t.Description, &t.Amount.Cents, &txType, &t.Category, &t.ReceiptURL)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.Date = parseDate(date)
	t.Type = core.TransactionType(txType)
	return t, nil
}

// ListTransactionsInRange returns manual ledger rows with a date in
// [from, to), newest first.
func (r *Repository) ListTransactionsInRange(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tx_date, description, amount_cents, type, category, receipt_url
		 FROM transactions WHERE tx_date >= ? AND tx_date < ?
		 ORDER BY tx_date DESC, id DESC`,
		formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date, txType string
		if err := rows.Scan(&t.ID, &date, &t.Description, &t.Amount.Cents, &txType, &t.Category, &t.ReceiptURL); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date = parseDate(date)
		t.Type = core.TransactionType(txType)
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET tx_date = ?, description = ?, amount_cents = ?, type = ?, category = ?, receipt_url = ?
		 WHERE id = ?`,
		formatDate(t.Date), t.Description, t.Amount.Cents, string(t.Type), t.Category, t.ReceiptURL, t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, ErrNotFound)
	}
	return r.GetTransaction(ctx, t.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// ListTransactionsPendingExport returns rows not yet appended to the
// ledger sheet, oldest first.
func (r *Repository) ListTransactionsPendingExport(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tx_date, description, amount_cents, type, category, receipt_url
		 FROM transactions WHERE ledger_exported = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions pending export: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date, txType string
		if err := rows.Scan(&t.ID, &date, &t.Description, &t.Amount.Cents, &txType, &t.Category, &t.ReceiptURL); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date = parseDate(date)
		t.Type = core.TransactionType(txType)
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *Repository) MarkTransactionExported(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET ledger_exported = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return nil
}
