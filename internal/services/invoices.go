package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"rechnerei/internal/amqp"
	"rechnerei/internal/core"
	"rechnerei/internal/storage"
)

// JobPublisher hands invoice jobs to the worker. The AMQP client
// implements it; tests plug in a recorder.
type JobPublisher interface {
	PublishInvoiceJob(ctx context.Context, kind amqp.JobKind, invoiceID int64) error
}

type InvoiceService struct {
	repo      *storage.Repository
	publisher JobPublisher
	dueDays   int
}

func NewInvoiceService(repo *storage.Repository, publisher JobPublisher, dueDays int) *InvoiceService {
	return &InvoiceService{repo: repo, publisher: publisher, dueDays: dueDays}
}

// PreviewNextNumber returns the number the next invoice of year would
// likely get. It is a plain read; only CreateInvoice reserves numbers.
func (s *InvoiceService) PreviewNextNumber(ctx context.Context, year int) (string, error) {
	numbers, err := s.repo.ListInvoiceNumbersForYear(ctx, year)
	if err != nil {
		return "", err
	}
	return core.NextInvoiceNumber(numbers, year), nil
}

// CreateInvoice allocates the number, snapshots the tax policy and
// totals, and stores the invoice as a draft. entryIDs are unbilled time
// entries to link.
func (s *InvoiceService) CreateInvoice(ctx context.Context, draft core.Invoice, entryIDs []int64) (core.Invoice, error) {
	for _, item := range draft.Items {
		if err := item.Validate(); err != nil {
			return core.Invoice{}, err
		}
	}

	settings, err := s.repo.GetCompanySettings(ctx)
	if err != nil {
		return core.Invoice{}, err
	}

	draft.SmallBusiness = settings.SmallBusiness
	if draft.TaxRate.IsZero() {
		draft.TaxRate = settings.DefaultTaxRate
	}
	if draft.IssueDate.IsZero() {
		draft.IssueDate = time.Now()
	}
	if draft.DueDate.IsZero() && s.dueDays > 0 {
		draft.DueDate = draft.IssueDate.AddDate(0, 0, s.dueDays)
	}
	draft.Status = core.StatusDraft

	totals := core.ComputeTotals(draft.Items, core.TaxPolicy{
		SmallBusiness: draft.SmallBusiness,
		RatePercent:   draft.TaxRate,
	})
	draft.Net = totals.Net
	draft.Tax = totals.Tax
	draft.Gross = totals.Gross

	if err := draft.Validate(); err != nil {
		return core.Invoice{}, err
	}

	draft.Number, err = s.repo.AllocateInvoiceNumber(ctx, draft.IssueDate.Year())
	if err != nil {
		return core.Invoice{}, err
	}

	return s.repo.CreateInvoice(ctx, draft, entryIDs)
}

// ItemsFromTimeEntries folds time entries into line items, one item per
// service and hourly rate, with the worked hours as quantity.
func ItemsFromTimeEntries(entries []core.TimeEntry) []core.LineItem {
	type key struct {
		name  string
		cents int64
	}
	index := make(map[key]int)
	var items []core.LineItem

	for _, e := range entries {
		name := e.CatalogName
		if name == "" {
			name = e.ProjectName
		}
		k := key{name: name, cents: e.HourlyRate.Cents}
		i, ok := index[k]
		if !ok {
			i = len(items)
			index[k] = i
			items = append(items, core.LineItem{
				Description: name,
				UnitPrice:   e.HourlyRate,
				Position:    i,
			})
		}
		minutes := decimal.NewFromInt(int64(e.Minutes()))
		items[i].Quantity = items[i].Quantity.Add(minutes.Div(decimal.NewFromInt(60)).Round(2))
	}
	return items
}

// SetStatus flips the invoice state and kicks off the matching worker
// job: leaving draft queues the document render, paid queues the
// ledger export.
func (s *InvoiceService) SetStatus(ctx context.Context, id int64, status core.InvoiceStatus) error {
	if !core.ValidStatus(status) {
		return core.ErrInvalidStatus
	}

	before, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateInvoiceStatus(ctx, id, status); err != nil {
		return err
	}

	if s.publisher == nil {
		return nil
	}
	if before.Status == core.StatusDraft && status != core.StatusDraft && status != core.StatusCancelled {
		if err := s.publisher.PublishInvoiceJob(ctx, amqp.JobRender, id); err != nil {
			slog.ErrorContext(ctx, "Failed to queue document render",
				"invoice_id", id, "error", err)
		}
	}
	if status == core.StatusPaid {
		if err := s.publisher.PublishInvoiceJob(ctx, amqp.JobExport, id); err != nil {
			slog.ErrorContext(ctx, "Failed to queue ledger export",
				"invoice_id", id, "error", err)
		}
	}
	return nil
}

// RefreshOverdue flips sent invoices whose due date has passed. It runs
// on every finance page load; nothing else advances invoice state.
func (s *InvoiceService) RefreshOverdue(ctx context.Context, now time.Time) error {
	invoices, err := s.repo.ListInvoices(ctx)
	if err != nil {
		return err
	}
	for _, inv := range invoices {
		if inv.Status != core.StatusSent || inv.DueDate.IsZero() {
			continue
		}
		if now.Before(inv.DueDate.AddDate(0, 0, 1)) {
			continue
		}
		if err := s.repo.UpdateInvoiceStatus(ctx, inv.ID, core.StatusOverdue); err != nil {
			return fmt.Errorf("mark invoice %d overdue: %w", inv.ID, err)
		}
	}
	return nil
}

// DeleteDraft removes a draft invoice. Issued invoices can only be
// cancelled, not deleted.
func (s *InvoiceService) DeleteDraft(ctx context.Context, id int64) error {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != core.StatusDraft {
		return fmt.Errorf("invoice %s is not a draft", inv.Number)
	}
	return s.repo.DeleteInvoice(ctx, id)
}
