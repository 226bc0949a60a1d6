package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"rechnerei/internal/core"
)

// AllocateInvoiceNumber reserves the next sequence value for year and
// returns the formatted number. The upsert-returning statement is a
// single atomic step, so two concurrent allocations can never observe
// the same value.
func (r *Repository) AllocateInvoiceNumber(ctx context.Context, year int) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin allocate tx: %w", err)
	}
	defer tx.Rollback()

	number, err := allocateInvoiceNumber(ctx, tx, year)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit allocate tx: %w", err)
	}
	return number, nil
}

func allocateInvoiceNumber(ctx context.Context, tx *sql.Tx, year int) (string, error) {
	var seq int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO invoice_sequences (year, last_value) VALUES (?, 1)
		 ON CONFLICT(year) DO UPDATE SET
		   last_value = last_value + 1,
		   updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		 RETURNING last_value`, year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("allocate invoice number for %d: %w", year, err)
	}
	return core.FormatInvoiceNumber(year, int(seq)), nil
}

// ListInvoiceNumbersForYear returns the numbers already issued for
// year, used for the non-binding preview of the next number.
func (r *Repository) ListInvoiceNumbersForYear(ctx context.Context, year int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT number FROM invoices WHERE number LIKE ? ORDER BY number`,
		fmt.Sprintf("%d-%%", year))
	if err != nil {
		return nil, fmt.Errorf("list invoice numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan invoice number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// CreateInvoice writes the invoice, its line items and the time entry
// links in one transaction. The number must already be allocated; the
// caller snapshots totals before handing the invoice in.
func (r *Repository) CreateInvoice(ctx context.Context, inv core.Invoice, entryIDs []int64) (core.Invoice, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("begin invoice tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (number, customer_id, project_id, issue_date, due_date,
		   performance_period, recipient_name, recipient_address,
		   net_cents, tax_cents, gross_cents, tax_rate, small_business, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number, nullID(inv.CustomerID), nullID(inv.ProjectID),
		formatDate(inv.IssueDate), formatDate(inv.DueDate),
		inv.PerformancePeriod, inv.RecipientName, inv.RecipientAddress,
		inv.Net.Cents, inv.Tax.Cents, inv.Gross.Cents,
		inv.TaxRate.String(), inv.SmallBusiness, string(inv.Status))
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invoice insert id: %w", err)
	}

	if err := insertInvoiceItems(ctx, tx, id, inv.Items); err != nil {
		return core.Invoice{}, err
	}

	for _, entryID := range entryIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE time_entries SET invoice_id = ? WHERE id = ? AND invoice_id IS NULL`,
			id, entryID); err != nil {
			return core.Invoice{}, fmt.Errorf("link time entry %d: %w", entryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Invoice{}, fmt.Errorf("commit invoice tx: %w", err)
	}

	slog.InfoContext(ctx, "Invoice created",
		"id", id, "number", inv.Number, "gross_cents", inv.Gross.Cents, "items", len(inv.Items))
	return r.GetInvoice(ctx, id)
}

func insertInvoiceItems(ctx context.Context, tx *sql.Tx, invoiceID int64, items []core.LineItem) error {
	for i, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO invoice_items (invoice_id, description, quantity, unit_price_cents, amount_cents, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			invoiceID, item.Description, item.Quantity.String(),
			item.UnitPrice.Cents, item.Amount().Cents, i); err != nil {
			return fmt.Errorf("insert invoice item %d: %w", i, err)
		}
	}
	return nil
}

const invoiceSelect = `SELECT id, number, customer_id, project_id, issue_date, due_date,
	performance_period, recipient_name, recipient_address,
	net_cents, tax_cents, gross_cents, tax_rate, small_business, status,
	document_path, created_at
FROM invoices`

func scanInvoice(row interface{ Scan(...any) error }) (core.Invoice, error) {
	var inv core.Invoice
	var customerID, projectID sql.NullInt64
	var issueDate, dueDate, taxRate, status, createdAt string
	err := row.Scan(&inv.ID, &inv.Number, &customerID, &projectID, &issueDate, &dueDate,
		&inv.PerformancePeriod, &inv.RecipientName, &inv.RecipientAddress,
		&inv.Net.Cents, &inv.Tax.Cents, &inv.Gross.Cents, &taxRate, &inv.SmallBusiness, &status,
		&inv.DocumentPath, &createdAt)
	if err != nil {
		return core.Invoice{}, err
	}
	inv.CustomerID = customerID.Int64
	inv.ProjectID = projectID.Int64
	inv.IssueDate = parseDate(issueDate)
	inv.DueDate = parseDate(dueDate)
	inv.TaxRate, _ = decimal.NewFromString(taxRate)
	inv.Status = core.InvoiceStatus(status)
	inv.CreatedAt = parseTime(createdAt)
	return inv, nil
}

func (r *Repository) GetInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, invoiceSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}

	inv.Items, err = r.listInvoiceItems(ctx, id)
	if err != nil {
		return core.Invoice{}, err
	}
	return inv, nil
}

func (r *Repository) listInvoiceItems(ctx context.Context, invoiceID int64) ([]core.LineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT description, quantity, unit_price_cents, position
		 FROM invoice_items WHERE invoice_id = ? ORDER BY position, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()

	var items []core.LineItem
	for rows.Next() {
		var item core.LineItem
		var quantity string
		if err := rows.Scan(&item.Description, &quantity, &item.UnitPrice.Cents, &item.Position); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		item.Quantity, err = decimal.NewFromString(quantity)
		if err != nil {
			return nil, fmt.Errorf("parse item quantity %q: %w", quantity, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListInvoices returns all invoices without their items, newest number
// first.
func (r *Repository) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, invoiceSelect+` ORDER BY number DESC`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// ListPaidInvoicesInRange returns paid invoices whose issue date lies
// in [from, to). The ledger merges them with manual transactions.
func (r *Repository) ListPaidInvoicesInRange(ctx context.Context, from, to string) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		invoiceSelect+` WHERE status = 'paid' AND issue_date >= ? AND issue_date < ? ORDER BY issue_date DESC, id DESC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("list paid invoices: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// ListInvoicesPendingRender returns issued invoices that have no
// document yet, oldest first. The worker drains this in batches.
// Drafts still change and cancelled invoices never went out, so
// neither gets a document.
func (r *Repository) ListInvoicesPendingRender(ctx context.Context, limit int) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		invoiceSelect+` WHERE status NOT IN ('draft', 'cancelled') AND document_path = '' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list invoices pending render: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// ListInvoicesPendingExport returns paid invoices not yet appended to
// the ledger sheet.
func (r *Repository) ListInvoicesPendingExport(ctx context.Context, limit int) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		invoiceSelect+` WHERE status = 'paid' AND ledger_exported = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list invoices pending export: %w", err)
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func collectInvoices(rows *sql.Rows) ([]core.Invoice, error) {
	var invoices []core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *Repository) UpdateInvoiceStatus(ctx context.Context, id int64, status core.InvoiceStatus) error {
	if !core.ValidStatus(status) {
		return core.ErrInvalidStatus
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Invoice status updated", "id", id, "status", string(status))
	return nil
}

func (r *Repository) SetInvoiceDocumentPath(ctx context.Context, id int64, path string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET document_path = ? WHERE id = ?`, path, id)
	if err != nil {
		return fmt.Errorf("set invoice document path: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *Repository) MarkInvoiceExported(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET ledger_exported = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark invoice exported: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteInvoice removes the invoice and its items; linked time entries
// fall back to unbilled through the ON DELETE SET NULL constraint.
func (r *Repository) DeleteInvoice(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Invoice deleted", "id", id)
	return nil
}
