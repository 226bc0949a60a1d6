package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rechnerei/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCustomerCRUD(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateCustomer(ctx, core.Customer{Name: "Fotostudio Huber", Email: "office@huber.at"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := repo.GetCustomer(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if got.Name != "Fotostudio Huber" || got.Email != "office@huber.at" {
		t.Fatalf("unexpected customer: %+v", got)
	}

	got.Phone = "+43 660 1234567"
	updated, err := repo.UpdateCustomer(ctx, got)
	if err != nil {
		t.Fatalf("UpdateCustomer: %v", err)
	}
	if updated.Phone != "+43 660 1234567" {
		t.Fatalf("phone not updated: %+v", updated)
	}

	if err := repo.DeleteCustomer(ctx, created.ID); err != nil {
		t.Fatalf("DeleteCustomer: %v", err)
	}
	if _, err := repo.GetCustomer(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetMissingRowsReturnErrNotFound(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.GetProject(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProject: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetInvoice(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetInvoice: expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateInvoiceStatus(ctx, 99, core.StatusPaid); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateInvoiceStatus: expected ErrNotFound, got %v", err)
	}
}

func TestAllocateInvoiceNumberSequence(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i, want := range []string{"2025-001", "2025-002", "2025-003"} {
		got, err := repo.AllocateInvoiceNumber(ctx, 2025)
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
		if got != want {
			t.Errorf("allocation %d = %q, want %q", i, got, want)
		}
	}

	// A new year starts its own sequence.
	got, err := repo.AllocateInvoiceNumber(ctx, 2026)
	if err != nil {
		t.Fatalf("AllocateInvoiceNumber 2026: %v", err)
	}
	if got != "2026-001" {
		t.Errorf("2026 allocation = %q, want 2026-001", got)
	}
}

func TestAllocateInvoiceNumberConcurrent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	const workers = 10
	numbers := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := repo.AllocateInvoiceNumber(ctx, 2025)
			if err != nil {
				t.Errorf("AllocateInvoiceNumber: %v", err)
				return
			}
			numbers <- n
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for n := range numbers {
		if seen[n] {
			t.Fatalf("number %q allocated twice", n)
		}
		seen[n] = true
	}
	if len(seen) != workers {
		t.Fatalf("got %d distinct numbers, want %d", len(seen), workers)
	}
}

func TestCreateInvoiceWithItemsAndEntryLinks(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	customer, err := repo.CreateCustomer(ctx, core.Customer{Name: "Fotostudio Huber"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	project, err := repo.CreateProject(ctx, core.Project{CustomerID: customer.ID, Name: "Website"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	start := time.Date(2025, 10, 6, 9, 0, 0, 0, time.Local)
	entry, err := repo.CreateTimeEntry(ctx, core.TimeEntry{
		ProjectID:  project.ID,
		HourlyRate: core.Money{Cents: 9000},
		Start:      start,
		End:        start.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateTimeEntry: %v", err)
	}

	number, err := repo.AllocateInvoiceNumber(ctx, 2025)
	if err != nil {
		t.Fatalf("AllocateInvoiceNumber: %v", err)
	}

	inv := core.Invoice{
		Number:        number,
		CustomerID:    customer.ID,
		ProjectID:     project.ID,
		IssueDate:     time.Date(2025, 10, 7, 0, 0, 0, 0, time.Local),
		RecipientName: "Fotostudio Huber",
		Net:           core.Money{Cents: 18000},
		Gross:         core.Money{Cents: 18000},
		TaxRate:       decimal.NewFromInt(20),
		SmallBusiness: true,
		Status:        core.StatusDraft,
		Items: []core.LineItem{
			{Description: "Webdesign", Quantity: decimal.NewFromInt(2), UnitPrice: core.Money{Cents: 9000}},
		},
	}
	created, err := repo.CreateInvoice(ctx, inv, []int64{entry.ID})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if created.Number != number {
		t.Errorf("number = %q, want %q", created.Number, number)
	}
	if len(created.Items) != 1 || created.Items[0].Description != "Webdesign" {
		t.Fatalf("unexpected items: %+v", created.Items)
	}
	if created.Items[0].Amount().Cents != 18000 {
		t.Errorf("item amount = %d cents, want 18000", created.Items[0].Amount().Cents)
	}

	linked, err := repo.GetTimeEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetTimeEntry: %v", err)
	}
	if linked.InvoiceID != created.ID {
		t.Errorf("entry invoice id = %d, want %d", linked.InvoiceID, created.ID)
	}

	unbilled, err := repo.ListUnbilledTimeEntries(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListUnbilledTimeEntries: %v", err)
	}
	if len(unbilled) != 0 {
		t.Errorf("expected no unbilled entries, got %d", len(unbilled))
	}

	// Deleting the invoice frees the entry again.
	if err := repo.DeleteInvoice(ctx, created.ID); err != nil {
		t.Fatalf("DeleteInvoice: %v", err)
	}
	freed, err := repo.GetTimeEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetTimeEntry after delete: %v", err)
	}
	if freed.InvoiceID != 0 {
		t.Errorf("entry still linked to invoice %d", freed.InvoiceID)
	}
}

func TestListTimeEntriesInRange(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	customer, _ := repo.CreateCustomer(ctx, core.Customer{Name: "Kunde"})
	project, _ := repo.CreateProject(ctx, core.Project{CustomerID: customer.ID, Name: "Projekt"})

	mkEntry := func(start time.Time) {
		t.Helper()
		_, err := repo.CreateTimeEntry(ctx, core.TimeEntry{
			ProjectID: project.ID,
			Start:     start,
			End:       start.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateTimeEntry: %v", err)
		}
	}

	inside := time.Date(2025, 10, 15, 10, 0, 0, 0, time.Local)
	mkEntry(inside)
	mkEntry(time.Date(2025, 9, 30, 10, 0, 0, 0, time.Local))
	mkEntry(time.Date(2025, 11, 1, 10, 0, 0, 0, time.Local))

	from := time.Date(2025, 10, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2025, 11, 1, 0, 0, 0, 0, time.Local)
	entries, err := repo.ListTimeEntriesInRange(ctx, from, to)
	if err != nil {
		t.Fatalf("ListTimeEntriesInRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if !entries[0].Start.Equal(inside) {
		t.Errorf("start = %v, want %v", entries[0].Start, inside)
	}
	if entries[0].ProjectName != "Projekt" {
		t.Errorf("project name = %q, want Projekt", entries[0].ProjectName)
	}
}

func TestExecuteRecurringTransaction(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rt, err := repo.CreateRecurringTransaction(ctx, core.RecurringTransaction{
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local),
		Every:       core.Monthly,
		Description: "Miete Studio",
		Amount:      core.Money{Cents: 45000},
		Type:        core.Expense,
		Category:    "Miete",
	})
	if err != nil {
		t.Fatalf("CreateRecurringTransaction: %v", err)
	}

	if err := repo.ExecuteRecurringTransaction(ctx, rt, "2025-10-01"); err != nil {
		t.Fatalf("ExecuteRecurringTransaction: %v", err)
	}

	got, err := repo.GetRecurringTransaction(ctx, rt.ID)
	if err != nil {
		t.Fatalf("GetRecurringTransaction: %v", err)
	}
	want := time.Date(2025, 10, 1, 0, 0, 0, 0, time.Local)
	if !got.LastExecution.Equal(want) {
		t.Errorf("last execution = %v, want %v", got.LastExecution, want)
	}

	from := time.Date(2025, 10, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2025, 11, 1, 0, 0, 0, 0, time.Local)
	transactions, err := repo.ListTransactionsInRange(ctx, from, to)
	if err != nil {
		t.Fatalf("ListTransactionsInRange: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(transactions))
	}
	if transactions[0].Description != "Miete Studio" || transactions[0].Amount.Cents != 45000 {
		t.Errorf("unexpected transaction: %+v", transactions[0])
	}
}

func TestCompanySettingsUpsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// Fresh database falls back to defaults.
	s, err := repo.GetCompanySettings(ctx)
	if err != nil {
		t.Fatalf("GetCompanySettings: %v", err)
	}
	if !s.SmallBusiness {
		t.Error("default settings should mark small business")
	}

	s.CompanyName = "Lichtblick Fotografie"
	s.SmallBusiness = false
	s.DefaultTaxRate = decimal.NewFromInt(20)
	if err := repo.SaveCompanySettings(ctx, s); err != nil {
		t.Fatalf("SaveCompanySettings: %v", err)
	}

	s.IBAN = "AT61 1904 3002 3457 3201"
	if err := repo.SaveCompanySettings(ctx, s); err != nil {
		t.Fatalf("SaveCompanySettings update: %v", err)
	}

	got, err := repo.GetCompanySettings(ctx)
	if err != nil {
		t.Fatalf("GetCompanySettings after save: %v", err)
	}
	if got.CompanyName != "Lichtblick Fotografie" || got.IBAN != "AT61 1904 3002 3457 3201" {
		t.Fatalf("unexpected settings: %+v", got)
	}
	if got.SmallBusiness {
		t.Error("small business flag should be off after update")
	}
}

func TestInvoicePendingQueues(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	mkInvoice := func(number string, status core.InvoiceStatus) core.Invoice {
		t.Helper()
		inv, err := repo.CreateInvoice(ctx, core.Invoice{
			Number:        number,
			IssueDate:     time.Date(2025, 10, 1, 0, 0, 0, 0, time.Local),
			RecipientName: "Kunde",
			TaxRate:       decimal.NewFromInt(20),
			Status:        status,
		}, nil)
		if err != nil {
			t.Fatalf("CreateInvoice %s: %v", number, err)
		}
		return inv
	}

	mkInvoice("2025-001", core.StatusDraft)
	sent := mkInvoice("2025-002", core.StatusSent)
	paid := mkInvoice("2025-003", core.StatusPaid)
	mkInvoice("2025-004", core.StatusCancelled)

	pending, err := repo.ListInvoicesPendingRender(ctx, 10)
	if err != nil {
		t.Fatalf("ListInvoicesPendingRender: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending render, want 2 (draft and cancelled excluded)", len(pending))
	}

	if err := repo.SetInvoiceDocumentPath(ctx, sent.ID, "documents/2025-002.html"); err != nil {
		t.Fatalf("SetInvoiceDocumentPath: %v", err)
	}
	pending, err = repo.ListInvoicesPendingRender(ctx, 10)
	if err != nil {
		t.Fatalf("ListInvoicesPendingRender after render: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != paid.ID {
		t.Fatalf("unexpected pending render set: %+v", pending)
	}

	exportable, err := repo.ListInvoicesPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("ListInvoicesPendingExport: %v", err)
	}
	if len(exportable) != 1 || exportable[0].ID != paid.ID {
		t.Fatalf("unexpected pending export set: %+v", exportable)
	}

	if err := repo.MarkInvoiceExported(ctx, paid.ID); err != nil {
		t.Fatalf("MarkInvoiceExported: %v", err)
	}
	exportable, err = repo.ListInvoicesPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("ListInvoicesPendingExport after mark: %v", err)
	}
	if len(exportable) != 0 {
		t.Fatalf("expected empty export queue, got %+v", exportable)
	}
}
