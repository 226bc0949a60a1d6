package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rechnerei/internal/core"
	"rechnerei/internal/document"
	"rechnerei/internal/services"
	"rechnerei/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Repository) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	renderer, err := document.NewRenderer(t.TempDir())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	invoiceSvc := services.NewInvoiceService(repo, nil, 14)
	ledgerSvc := services.NewLedgerService(repo)

	s := NewServer(":0", repo, invoiceSvc, ledgerSvc, renderer, time.Monday)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, repo
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func doPost(t *testing.T, s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func createTestProject(t *testing.T, repo *storage.Repository) core.Project {
	t.Helper()
	ctx := context.Background()
	customer, err := repo.CreateCustomer(ctx, core.Customer{Name: "Fotostudio Huber"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	project, err := repo.CreateProject(ctx, core.Project{CustomerID: customer.ID, Name: "Website Relaunch"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return project
}

func TestIndexServesDashboard(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doGet(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Rechnerei") {
		t.Error("dashboard shell missing from response")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
}

func TestCreateCustomerAndList(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doPost(t, s, "/customers", url.Values{
		"name":  {"Tischlerei Moser"},
		"email": {"office@moser.example"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "customers:refresh") {
		t.Errorf("missing refresh trigger, got %q", rec.Header().Get("HX-Trigger"))
	}

	rec = doGet(t, s, "/customers")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Tischlerei Moser") {
		t.Error("created customer missing from list")
	}
}

func TestCreateCustomerRejectsEmptyName(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doPost(t, s, "/customers", url.Values{"name": {"   "}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestCalendarShowsEntries(t *testing.T) {
	s, repo := newTestServer(t)
	project := createTestProject(t, repo)

	_, err := repo.CreateTimeEntry(context.Background(), core.TimeEntry{
		ProjectID: project.ID,
		Start:     time.Date(2025, 10, 7, 9, 0, 0, 0, time.Local),
		End:       time.Date(2025, 10, 7, 11, 30, 0, 0, time.Local),
	})
	if err != nil {
		t.Fatalf("CreateTimeEntry: %v", err)
	}

	rec := doGet(t, s, "/ui/calendar?year=2025&month=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Website Relaunch") {
		t.Error("entry project missing from calendar")
	}
	if !strings.Contains(body, "2h 30m") {
		t.Error("entry duration missing from calendar")
	}
	if !strings.Contains(body, "Oktober 2025") {
		t.Error("month heading missing")
	}
}

func TestCreateTimeEntryUsesCatalogRate(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()
	project := createTestProject(t, repo)

	item, err := repo.CreateCatalogItem(ctx, core.CatalogItem{
		Name: "Fotobearbeitung", Unit: "h", Price: core.Money{Cents: 9000},
	})
	if err != nil {
		t.Fatalf("CreateCatalogItem: %v", err)
	}

	rec := doPost(t, s, "/time-entries", url.Values{
		"project_id":      {"1"},
		"catalog_item_id": {"1"},
		"start":           {"2025-10-07T09:00"},
		"end":             {"2025-10-07T10:00"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	entries, err := repo.ListTimeEntriesInRange(ctx,
		time.Date(2025, 10, 1, 0, 0, 0, 0, time.Local),
		time.Date(2025, 11, 1, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("ListTimeEntriesInRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].HourlyRate.Cents != item.Price.Cents {
		t.Errorf("hourly rate = %d, want %d", entries[0].HourlyRate.Cents, item.Price.Cents)
	}
	if entries[0].ProjectID != project.ID {
		t.Errorf("project id = %d", entries[0].ProjectID)
	}
}

func TestInvoiceNumberPreview(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doGet(t, s, "/ui/invoice-number?year=2025")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "2025-001") {
		t.Errorf("preview = %q", rec.Body.String())
	}
}

func TestCreateInvoiceFromForm(t *testing.T) {
	s, repo := newTestServer(t)
	createTestProject(t, repo)

	rec := doPost(t, s, "/invoices", url.Values{
		"customer_id":      {"1"},
		"issue_date":       {"2025-10-07"},
		"item_description": {"Shooting", "Bildbearbeitung"},
		"item_quantity":    {"1", "3,5"},
		"item_price":       {"450", "90"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	invoices, err := repo.ListInvoices(context.Background())
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("got %d invoices, want 1", len(invoices))
	}
	inv := invoices[0]
	if inv.Number != "2025-001" {
		t.Errorf("number = %q", inv.Number)
	}
	if inv.RecipientName != "Fotostudio Huber" {
		t.Errorf("recipient = %q", inv.RecipientName)
	}
	// 450 + 3.5 × 90 = 765; default settings are small business, no tax.
	if inv.Gross.Cents != 76500 {
		t.Errorf("gross = %d, want 76500", inv.Gross.Cents)
	}
	if inv.Status != core.StatusDraft {
		t.Errorf("status = %q", inv.Status)
	}
}

func TestCreateInvoiceRequiresItems(t *testing.T) {
	s, repo := newTestServer(t)
	createTestProject(t, repo)

	rec := doPost(t, s, "/invoices", url.Values{"customer_id": {"1"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestPaidInvoiceAppearsInLedger(t *testing.T) {
	s, repo := newTestServer(t)
	createTestProject(t, repo)

	doPost(t, s, "/invoices", url.Values{
		"customer_id":      {"1"},
		"issue_date":       {"2025-10-07"},
		"item_description": {"Shooting"},
		"item_quantity":    {"1"},
		"item_price":       {"500"},
	})

	// Warm the cache, then flip to paid; the ledger must pick it up.
	rec := doGet(t, s, "/ui/ledger?year=2025&month=10")
	if strings.Contains(rec.Body.String(), "Rechnung 2025-001") {
		t.Fatal("draft must not appear in the ledger")
	}

	rec = doPost(t, s, "/invoices/status", url.Values{
		"id": {"1"}, "status": {"paid"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status change = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doGet(t, s, "/ui/ledger?year=2025&month=10")
	if !strings.Contains(rec.Body.String(), "Rechnung 2025-001") {
		t.Error("paid invoice missing from ledger")
	}
}

func TestTransactionInvalidatesLedgerCache(t *testing.T) {
	s, _ := newTestServer(t)

	doGet(t, s, "/ui/ledger?year=2025&month=10")

	rec := doPost(t, s, "/transactions", url.Values{
		"date":        {"2025-10-05"},
		"description": {"Objektiv"},
		"amount":      {"450,00"},
		"type":        {"expense"},
		"category":    {"Equipment"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doGet(t, s, "/ui/ledger?year=2025&month=10")
	if !strings.Contains(rec.Body.String(), "Objektiv") {
		t.Error("new transaction missing, cache not invalidated")
	}
}

func TestDeleteDraftInvoiceOnly(t *testing.T) {
	s, repo := newTestServer(t)
	createTestProject(t, repo)

	doPost(t, s, "/invoices", url.Values{
		"customer_id":      {"1"},
		"item_description": {"Shooting"},
		"item_quantity":    {"1"},
		"item_price":       {"500"},
	})
	doPost(t, s, "/invoices/status", url.Values{"id": {"1"}, "status": {"sent"}})

	rec := doPost(t, s, "/invoices/delete", url.Values{"id": {"1"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("deleting a sent invoice = %d, want 422", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s, repo := newTestServer(t)

	rec := doPost(t, s, "/settings", url.Values{
		"company_name":     {"Lichtbild Steiner e.U."},
		"iban":             {"AT61 1904 3002 3457 3201"},
		"default_tax_rate": {"20"},
		// small_business unchecked
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save = %d, body %s", rec.Code, rec.Body.String())
	}

	settings, err := repo.GetCompanySettings(context.Background())
	if err != nil {
		t.Fatalf("GetCompanySettings: %v", err)
	}
	if settings.SmallBusiness {
		t.Error("small business flag should be off")
	}
	if settings.CompanyName != "Lichtbild Steiner e.U." {
		t.Errorf("company name = %q", settings.CompanyName)
	}

	rec = doGet(t, s, "/settings")
	if !strings.Contains(rec.Body.String(), "Lichtbild Steiner e.U.") {
		t.Error("saved settings missing from form")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/invoices", nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
