// Package worker runs the background side of the invoice lifecycle:
// rendering documents and exporting paid invoices and ledger rows to
// the bookkeeping sheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"rechnerei/internal/amqp"
	"rechnerei/internal/core"
	"rechnerei/internal/document"
	"rechnerei/internal/export"
	"rechnerei/internal/storage"
)

type InvoiceWorker struct {
	repo      *storage.Repository
	renderer  *document.Renderer
	ledger    export.LedgerWriter // nil when the export is not configured
	batchSize int
}

func NewInvoiceWorker(repo *storage.Repository, renderer *document.Renderer, ledger export.LedgerWriter, batchSize int) *InvoiceWorker {
	return &InvoiceWorker{
		repo:      repo,
		renderer:  renderer,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleJob processes a single queued invoice job.
func (w *InvoiceWorker) HandleJob(ctx context.Context, msg *amqp.InvoiceJobMessage) error {
	switch msg.Kind {
	case amqp.JobRender:
		return w.renderInvoice(ctx, msg.InvoiceID)
	case amqp.JobExport:
		return w.exportInvoice(ctx, msg.InvoiceID)
	default:
		return fmt.Errorf("unknown job kind %q", msg.Kind)
	}
}

func (w *InvoiceWorker) renderInvoice(ctx context.Context, id int64) error {
	inv, err := w.repo.GetInvoice(ctx, id)
	if err != nil {
		return fmt.Errorf("get invoice for render: %w", err)
	}
	// Drafts change until issued; rendering them would archive stale
	// numbers and totals.
	if inv.Status == core.StatusDraft {
		slog.WarnContext(ctx, "Skipping render of draft invoice", "invoice_id", id)
		return nil
	}

	settings, err := w.repo.GetCompanySettings(ctx)
	if err != nil {
		return fmt.Errorf("get company settings: %w", err)
	}

	path, err := w.renderer.Render(ctx, inv, settings)
	if err != nil {
		return fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}

	if err := w.repo.SetInvoiceDocumentPath(ctx, id, path); err != nil {
		return fmt.Errorf("record document path: %w", err)
	}
	return nil
}

func (w *InvoiceWorker) exportInvoice(ctx context.Context, id int64) error {
	if w.ledger == nil {
		slog.WarnContext(ctx, "Ledger export not configured, skipping", "invoice_id", id)
		return nil
	}

	inv, err := w.repo.GetInvoice(ctx, id)
	if err != nil {
		return fmt.Errorf("get invoice for export: %w", err)
	}
	if inv.Status != core.StatusPaid {
		slog.WarnContext(ctx, "Skipping export of unpaid invoice",
			"invoice_id", id, "status", string(inv.Status))
		return nil
	}

	row := export.LedgerRow{
		Date:        inv.IssueDate,
		Description: fmt.Sprintf("Rechnung %s – %s", inv.Number, inv.RecipientName),
		Cents:       inv.Gross.Cents,
		Category:    "Rechnungen",
		Source:      "Rechnung",
	}
	if err := w.ledger.AppendRow(ctx, row); err != nil {
		return fmt.Errorf("export invoice %s: %w", inv.Number, err)
	}

	if err := w.repo.MarkInvoiceExported(ctx, id); err != nil {
		return fmt.Errorf("mark invoice exported: %w", err)
	}
	return nil
}

func (w *InvoiceWorker) exportTransaction(ctx context.Context, t core.Transaction) error {
	cents := t.Amount.Cents
	if t.Type == core.Expense {
		cents = -cents
	}
	row := export.LedgerRow{
		Date:        t.Date,
		Description: t.Description,
		Cents:       cents,
		Category:    t.Category,
		Source:      "Buchung",
	}
	if err := w.ledger.AppendRow(ctx, row); err != nil {
		return fmt.Errorf("export transaction %d: %w", t.ID, err)
	}
	if err := w.repo.MarkTransactionExported(ctx, t.ID); err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}
	return nil
}

// ProcessPending drains the render and export backlogs. It is the
// safety net behind the AMQP path: a lost message is picked up on the
// next tick.
func (w *InvoiceWorker) ProcessPending(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupCheck runs one oversized pending pass so downtime is caught
// up before the consumer starts.
func (w *InvoiceWorker) StartupCheck(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize*5)
}

func (w *InvoiceWorker) processPending(ctx context.Context, batch int) error {
	pendingRender, err := w.repo.ListInvoicesPendingRender(ctx, batch)
	if err != nil {
		return fmt.Errorf("list pending renders: %w", err)
	}
	for _, inv := range pendingRender {
		if err := w.renderInvoice(ctx, inv.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to render pending invoice",
				"invoice_id", inv.ID, "error", err)
		}
	}

	if w.ledger == nil {
		if len(pendingRender) > 0 {
			slog.InfoContext(ctx, "Pending pass complete", "rendered", len(pendingRender))
		}
		return nil
	}

	pendingExport, err := w.repo.ListInvoicesPendingExport(ctx, batch)
	if err != nil {
		return fmt.Errorf("list pending invoice exports: %w", err)
	}
	for _, inv := range pendingExport {
		if err := w.exportInvoice(ctx, inv.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending invoice",
				"invoice_id", inv.ID, "error", err)
		}
	}

	pendingTx, err := w.repo.ListTransactionsPendingExport(ctx, batch)
	if err != nil {
		return fmt.Errorf("list pending transaction exports: %w", err)
	}
	for _, t := range pendingTx {
		if err := w.exportTransaction(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction",
				"transaction_id", t.ID, "error", err)
		}
	}

	if len(pendingRender)+len(pendingExport)+len(pendingTx) > 0 {
		slog.InfoContext(ctx, "Pending pass complete",
			"rendered", len(pendingRender),
			"invoices_exported", len(pendingExport),
			"transactions_exported", len(pendingTx))
	}
	return nil
}
