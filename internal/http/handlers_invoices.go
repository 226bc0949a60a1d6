package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"rechnerei/internal/core"
	"rechnerei/internal/services"
	"rechnerei/internal/storage"
)

type invoicesView struct {
	Invoices  []core.Invoice
	Customers []core.Customer
	Projects  []core.Project
	Year      int
}

// handleInvoiceList renders the invoice table with the creation form.
func (s *Server) handleInvoiceList(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	invoices, err := s.repo.ListInvoices(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list invoices", "error", err)
		InternalServerError("Rechnungen konnten nicht geladen werden").Write(w)
		return
	}
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list customers", "error", err)
		InternalServerError("Kunden konnten nicht geladen werden").Write(w)
		return
	}
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list projects", "error", err)
		InternalServerError("Projekte konnten nicht geladen werden").Write(w)
		return
	}

	s.render(w, r, "invoices", invoicesView{
		Invoices:  invoices,
		Customers: customers,
		Projects:  projects,
		Year:      time.Now().Year(),
	})
}

// handleInvoiceNumberPreview shows the number the next invoice would get.
// Nothing is reserved until the invoice is actually created.
func (s *Server) handleInvoiceNumberPreview(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	year := time.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}

	number, err := s.invoiceSvc.PreviewNextNumber(r.Context(), year)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to preview invoice number", "year", year, "error", err)
		InternalServerError("Rechnungsnummer konnte nicht ermittelt werden").Write(w)
		return
	}

	NewHTMXResponse().BodyHTML(`<span class="invoice-number-preview">` + number + `</span>`).Write(w)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	draft := core.Invoice{
		RecipientName:     sanitizeInput(r.FormValue("recipient_name")),
		RecipientAddress:  sanitizeInput(r.FormValue("recipient_address")),
		PerformancePeriod: sanitizeInput(r.FormValue("performance_period")),
	}

	if id, ok := parseID(r, "customer_id"); ok {
		customer, err := s.repo.GetCustomer(ctx, id)
		if err != nil {
			UnprocessableEntityError("Kunde nicht gefunden").Write(w)
			return
		}
		draft.CustomerID = customer.ID
		if draft.RecipientName == "" {
			draft.RecipientName = customer.Name
		}
		if draft.RecipientAddress == "" {
			draft.RecipientAddress = customer.Address
		}
	}
	if id, ok := parseID(r, "project_id"); ok {
		draft.ProjectID = id
	}
	if v := r.FormValue("issue_date"); v != "" {
		d, err := parseDateValue(v)
		if err != nil {
			UnprocessableEntityError("Ungültiges Rechnungsdatum").Write(w)
			return
		}
		draft.IssueDate = d
	}
	if v := r.FormValue("due_date"); v != "" {
		d, err := parseDateValue(v)
		if err != nil {
			UnprocessableEntityError("Ungültiges Zahlungsziel").Write(w)
			return
		}
		draft.DueDate = d
	}
	if v := r.FormValue("tax_rate"); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil || rate.IsNegative() {
			UnprocessableEntityError("Ungültiger Steuersatz").Write(w)
			return
		}
		draft.TaxRate = rate
	}

	items, resp := parseLineItems(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	// Optionally bill all open time entries of the selected project. The
	// entries are linked to the invoice and excluded from future billing.
	var entryIDs []int64
	if r.FormValue("from_entries") == "1" && draft.ProjectID > 0 {
		entries, err := s.repo.ListUnbilledTimeEntries(ctx, draft.ProjectID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to list unbilled entries", "project_id", draft.ProjectID, "error", err)
			InternalServerError("Offene Zeiteinträge konnten nicht geladen werden").Write(w)
			return
		}
		items = append(items, services.ItemsFromTimeEntries(entries)...)
		for _, e := range entries {
			entryIDs = append(entryIDs, e.ID)
		}
	}
	if len(items) == 0 {
		UnprocessableEntityError("Eine Rechnung braucht mindestens eine Position").Write(w)
		return
	}
	draft.Items = items

	created, err := s.invoiceSvc.CreateInvoice(ctx, draft, entryIDs)
	if err != nil {
		if errors.Is(err, core.ErrEmptyRecipient) {
			UnprocessableEntityError("Bitte einen Empfänger angeben").Write(w)
			return
		}
		if errors.Is(err, core.ErrEmptyDescription) {
			UnprocessableEntityError("Jede Position braucht eine Beschreibung").Write(w)
			return
		}
		slog.ErrorContext(ctx, "Failed to create invoice", "error", err)
		InternalServerError("Rechnung konnte nicht erstellt werden").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerInvoicesRefresh().
		TriggerCalendarRefresh(created.IssueDate.Year(), int(created.IssueDate.Month())).
		TriggerFormReset().
		TriggerSuccessNotification("Rechnung " + created.Number + " erstellt").
		Write(w)
}

// parseLineItems reads the parallel item_* form arrays. Rows with an
// empty description are skipped so unused form rows do not error.
func parseLineItems(r *http.Request) ([]core.LineItem, *HTMXResponseBuilder) {
	descriptions := r.Form["item_description"]
	quantities := r.Form["item_quantity"]
	prices := r.Form["item_price"]

	var items []core.LineItem
	for i, desc := range descriptions {
		desc = sanitizeInput(desc)
		if desc == "" {
			continue
		}
		if i >= len(quantities) || i >= len(prices) {
			return nil, UnprocessableEntityError("Unvollständige Rechnungsposition")
		}

		qty, err := decimal.NewFromString(normalizeDecimal(quantities[i]))
		if err != nil {
			return nil, UnprocessableEntityError("Ungültige Menge in Position " + strconv.Itoa(i+1))
		}
		cents, err := core.ParseSignedDecimalToCents(prices[i])
		if err != nil {
			return nil, UnprocessableEntityError("Ungültiger Preis in Position " + strconv.Itoa(i+1))
		}
		items = append(items, core.LineItem{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   core.Money{Cents: cents},
			Position:    len(items),
		})
	}
	return items, nil
}

func (s *Server) handleInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		BadRequestError("Ungültige Rechnungs-ID").Write(w)
		return
	}
	status := core.InvoiceStatus(r.FormValue("status"))

	if err := s.invoiceSvc.SetStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, core.ErrInvalidStatus) {
			UnprocessableEntityError("Ungültiger Status").Write(w)
			return
		}
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Rechnung nicht gefunden").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update invoice status",
			"invoice_id", id, "status", string(status), "error", err)
		InternalServerError("Status konnte nicht geändert werden").Write(w)
		return
	}

	builder := NewHTMXResponse().TriggerInvoicesRefresh()
	// Paid invoices appear in the finance ledger of their issue month.
	if status == core.StatusPaid {
		if inv, err := s.repo.GetInvoice(r.Context(), id); err == nil {
			s.invalidateLedger(inv.IssueDate)
			builder.TriggerLedgerRefresh(inv.IssueDate.Year(), int(inv.IssueDate.Month()))
		}
	}
	builder.TriggerSuccessNotification("Status aktualisiert").Write(w)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		BadRequestError("Ungültige Rechnungs-ID").Write(w)
		return
	}

	if err := s.invoiceSvc.DeleteDraft(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Rechnung nicht gefunden").Write(w)
			return
		}
		UnprocessableEntityError("Nur Entwürfe können gelöscht werden").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerInvoicesRefresh().
		TriggerSuccessNotification("Entwurf gelöscht").
		Write(w)
}

// handleInvoiceDocument streams the rendered invoice document.
func (s *Server) handleInvoiceDocument(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		BadRequestError("Ungültige Rechnungs-ID").Write(w)
		return
	}

	inv, err := s.repo.GetInvoice(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Rechnung nicht gefunden").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load invoice", "invoice_id", id, "error", err)
		InternalServerError("Rechnung konnte nicht geladen werden").Write(w)
		return
	}
	if inv.DocumentPath == "" {
		NotFoundError("Dokument noch nicht erstellt").Write(w)
		return
	}

	f, err := s.documents.Open(inv.DocumentPath)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to open invoice document",
			"invoice_id", id, "path", inv.DocumentPath, "error", err)
		NotFoundError("Dokument nicht gefunden").Write(w)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		InternalServerError("Dokument konnte nicht gelesen werden").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, inv.DocumentPath, info.ModTime(), f)
}
