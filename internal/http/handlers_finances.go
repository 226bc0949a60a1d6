package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"rechnerei/internal/core"
	"rechnerei/internal/services"
	"rechnerei/internal/storage"
)

type ledgerView struct {
	Ledger    services.MonthLedger
	Recurring []core.RecurringTransaction
	MonthName string
	PrevYear  int
	PrevMonth int
	NextYear  int
	NextMonth int
}

// handleLedger renders the finance view of one month: manual
// transactions merged with paid invoices, plus the recurring rules.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	year, month := parseYearMonth(r)

	// Overdue invoices are recomputed lazily on page load.
	if err := s.invoiceSvc.RefreshOverdue(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Failed to refresh overdue invoices", "error", err)
	}

	key := ledgerCacheKey(year, month)
	ledger, ok := s.ledgerCache.Get(key)
	if !ok {
		var err error
		ledger, err = s.ledgerSvc.Month(ctx, year, month)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to build month ledger",
				"year", year, "month", int(month), "error", err)
			InternalServerError("Finanzübersicht konnte nicht geladen werden").Write(w)
			return
		}
		s.ledgerCache.Set(key, ledger)
	}

	recurring, err := s.repo.ListRecurringTransactions(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list recurring transactions", "error", err)
		InternalServerError("Daueraufträge konnten nicht geladen werden").Write(w)
		return
	}

	ref := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	prev := ref.AddDate(0, -1, 0)
	next := ref.AddDate(0, 1, 0)
	s.render(w, r, "ledger", ledgerView{
		Ledger:    ledger,
		Recurring: recurring,
		MonthName: germanMonths[month],
		PrevYear:  prev.Year(),
		PrevMonth: int(prev.Month()),
		NextYear:  next.Year(),
		NextMonth: int(next.Month()),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	date, err := parseDateValue(r.FormValue("date"))
	if err != nil {
		UnprocessableEntityError("Ungültiges Datum").Write(w)
		return
	}
	cents, err := core.ParseDecimalToCents(r.FormValue("amount"))
	if err != nil {
		UnprocessableEntityError("Ungültiger Betrag").Write(w)
		return
	}

	tx := core.Transaction{
		Date:        date,
		Description: sanitizeInput(r.FormValue("description")),
		Amount:      core.Money{Cents: cents},
		Type:        core.TransactionType(r.FormValue("type")),
		Category:    sanitizeInput(r.FormValue("category")),
		ReceiptURL:  sanitizeInput(r.FormValue("receipt_url")),
	}
	if err := tx.Validate(); err != nil {
		UnprocessableEntityError("Ungültige Buchung: Beschreibung und Art prüfen").Write(w)
		return
	}

	created, err := s.repo.CreateTransaction(r.Context(), tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create transaction", "error", err)
		InternalServerError("Buchung konnte nicht gespeichert werden").Write(w)
		return
	}

	s.invalidateLedger(created.Date)
	NewHTMXResponse().
		TriggerLedgerRefresh(created.Date.Year(), int(created.Date.Month())).
		TriggerFormReset().
		TriggerSuccessNotification("Buchung gespeichert").
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Ungültige Buchungs-ID").Write(w)
		return
	}

	tx, err := s.repo.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Buchung nicht gefunden").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load transaction", "transaction_id", id, "error", err)
		InternalServerError("Buchung konnte nicht geladen werden").Write(w)
		return
	}

	if err := s.repo.DeleteTransaction(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "transaction_id", id, "error", err)
		InternalServerError("Buchung konnte nicht gelöscht werden").Write(w)
		return
	}

	s.invalidateLedger(tx.Date)
	NewHTMXResponse().
		TriggerLedgerRefresh(tx.Date.Year(), int(tx.Date.Month())).
		TriggerSuccessNotification("Buchung gelöscht").
		Write(w)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	start, err := parseDateValue(r.FormValue("start_date"))
	if err != nil {
		UnprocessableEntityError("Ungültiges Startdatum").Write(w)
		return
	}
	var end time.Time
	if v := r.FormValue("end_date"); v != "" {
		end, err = parseDateValue(v)
		if err != nil {
			UnprocessableEntityError("Ungültiges Enddatum").Write(w)
			return
		}
	}
	cents, err := core.ParseDecimalToCents(r.FormValue("amount"))
	if err != nil {
		UnprocessableEntityError("Ungültiger Betrag").Write(w)
		return
	}

	rt := core.RecurringTransaction{
		StartDate:   start,
		EndDate:     end,
		Every:       core.Interval(r.FormValue("interval")),
		Description: sanitizeInput(r.FormValue("description")),
		Amount:      core.Money{Cents: cents},
		Type:        core.TransactionType(r.FormValue("type")),
		Category:    sanitizeInput(r.FormValue("category")),
	}
	if err := rt.Validate(); err != nil {
		if errors.Is(err, core.ErrInvalidInterval) {
			UnprocessableEntityError("Ungültiges Wiederholungsintervall").Write(w)
			return
		}
		UnprocessableEntityError("Ungültiger Dauerauftrag").Write(w)
		return
	}

	if _, err := s.repo.CreateRecurringTransaction(r.Context(), rt); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create recurring transaction", "error", err)
		InternalServerError("Dauerauftrag konnte nicht gespeichert werden").Write(w)
		return
	}

	now := time.Now()
	NewHTMXResponse().
		TriggerLedgerRefresh(now.Year(), int(now.Month())).
		TriggerFormReset().
		TriggerSuccessNotification("Dauerauftrag gespeichert").
		Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Ungültige Dauerauftrags-ID").Write(w)
		return
	}

	if err := s.repo.DeleteRecurringTransaction(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Dauerauftrag nicht gefunden").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete recurring transaction", "recurring_id", id, "error", err)
		InternalServerError("Dauerauftrag konnte nicht gelöscht werden").Write(w)
		return
	}

	now := time.Now()
	NewHTMXResponse().
		TriggerLedgerRefresh(now.Year(), int(now.Month())).
		TriggerSuccessNotification("Dauerauftrag gelöscht").
		Write(w)
}
