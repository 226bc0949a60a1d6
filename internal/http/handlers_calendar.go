package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"rechnerei/internal/calendar"
	"rechnerei/internal/core"
	"rechnerei/internal/storage"
)

type indexView struct {
	Year      int
	Month     int
	Today     string
	Customers []core.Customer
	Projects  []core.Project
	Catalog   []core.CatalogItem
	Settings  core.CompanySettings
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list customers", "error", err)
	}
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list projects", "error", err)
	}
	catalog, err := s.repo.ListCatalogItems(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list catalog items", "error", err)
	}
	settings, err := s.repo.GetCompanySettings(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load company settings", "error", err)
	}

	now := time.Now()
	s.render(w, r, "index", indexView{
		Year:      now.Year(),
		Month:     int(now.Month()),
		Today:     now.Format("2006-01-02"),
		Customers: customers,
		Projects:  projects,
		Catalog:   catalog,
		Settings:  settings,
	})
}

type calendarView struct {
	Year         int
	Month        int
	MonthName    string
	PrevYear     int
	PrevMonth    int
	NextYear     int
	NextMonth    int
	Weekdays     []time.Weekday
	Weeks        [][]calendar.Cell
	TotalMinutes int
}

// germanMonths indexes time.Month values, position 0 is unused.
var germanMonths = [...]string{"", "Jänner", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember"}

// handleCalendar renders the month grid partial with the time entries of
// every visible day, including the leading and trailing out-of-month days.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	year, month := parseYearMonth(r)
	ref := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)

	first, last := calendar.GridRange(ref, s.weekStart)
	entries, err := s.repo.ListTimeEntriesInRange(r.Context(), first, last.AddDate(0, 0, 1))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list time entries", "error", err)
		InternalServerError("Zeiteinträge konnten nicht geladen werden").Write(w)
		return
	}

	cells := calendar.FillGrid(calendar.MonthGrid(ref, time.Now(), s.weekStart), entries)

	var weeks [][]calendar.Cell
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}
	var monthMinutes int
	for _, c := range cells {
		if c.InCurrentPeriod {
			monthMinutes += calendar.TotalMinutes(c.Entries)
		}
	}

	weekdays := make([]time.Weekday, 7)
	for i := range weekdays {
		weekdays[i] = time.Weekday((int(s.weekStart) + i) % 7)
	}

	prev := ref.AddDate(0, -1, 0)
	next := ref.AddDate(0, 1, 0)
	s.render(w, r, "calendar", calendarView{
		Year:         year,
		Month:        int(month),
		MonthName:    germanMonths[month],
		PrevYear:     prev.Year(),
		PrevMonth:    int(prev.Month()),
		NextYear:     next.Year(),
		NextMonth:    int(next.Month()),
		Weekdays:     weekdays,
		Weeks:        weeks,
		TotalMinutes: monthMinutes,
	})
}

// handleWeekSummary renders the stacked-bar chart of hours per project
// for the week containing the requested date.
func (s *Server) handleWeekSummary(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	ref := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		if d, err := parseDateValue(v); err == nil {
			ref = d
		}
	}

	days := calendar.WeekRange(ref, s.weekStart)
	entries, err := s.repo.ListTimeEntriesInRange(r.Context(), days[0], days[6].AddDate(0, 0, 1))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list time entries", "error", err)
		InternalServerError("Zeiteinträge konnten nicht geladen werden").Write(w)
		return
	}

	s.render(w, r, "week-summary", calendar.SummarizeWeek(entries, ref, s.weekStart))
}

func (s *Server) handleCreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	projectID, ok := parseID(r, "project_id")
	if !ok {
		UnprocessableEntityError("Bitte ein Projekt auswählen").Write(w)
		return
	}
	start, err := parseDateTimeValue(r.FormValue("start"))
	if err != nil {
		UnprocessableEntityError("Ungültige Startzeit").Write(w)
		return
	}
	end, err := parseDateTimeValue(r.FormValue("end"))
	if err != nil {
		UnprocessableEntityError("Ungültige Endzeit").Write(w)
		return
	}

	entry := core.TimeEntry{
		ProjectID: projectID,
		Start:     start,
		End:       end,
		Note:      sanitizeInput(r.FormValue("note")),
	}
	if id, ok := parseID(r, "catalog_item_id"); ok {
		entry.CatalogItemID = id
	}

	// Explicit rate wins; otherwise the linked service's price applies.
	if v := r.FormValue("hourly_rate"); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			UnprocessableEntityError("Ungültiger Stundensatz").Write(w)
			return
		}
		entry.HourlyRate = core.Money{Cents: cents}
	} else if entry.CatalogItemID > 0 {
		item, err := s.repo.GetCatalogItem(r.Context(), entry.CatalogItemID)
		if err != nil {
			UnprocessableEntityError("Leistung nicht gefunden").Write(w)
			return
		}
		entry.HourlyRate = item.Price
	}

	if err := entry.Validate(); err != nil {
		UnprocessableEntityError("Ungültiger Zeiteintrag").Write(w)
		return
	}

	created, err := s.repo.CreateTimeEntry(r.Context(), entry)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create time entry", "error", err)
		InternalServerError("Zeiteintrag konnte nicht gespeichert werden").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerCalendarRefresh(created.Start.Year(), int(created.Start.Month())).
		TriggerFormReset().
		TriggerSuccessNotification(core.FormatMinutes(created.Minutes()) + " erfasst").
		Write(w)
}

func (s *Server) handleDeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Ungültige Eintrags-ID").Write(w)
		return
	}

	entry, err := s.repo.GetTimeEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Zeiteintrag nicht gefunden").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load time entry", "entry_id", id, "error", err)
		InternalServerError("Zeiteintrag konnte nicht geladen werden").Write(w)
		return
	}
	if entry.InvoiceID > 0 {
		UnprocessableEntityError("Abgerechnete Einträge können nicht gelöscht werden").Write(w)
		return
	}

	if err := s.repo.DeleteTimeEntry(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete time entry", "entry_id", id, "error", err)
		InternalServerError("Zeiteintrag konnte nicht gelöscht werden").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerCalendarRefresh(entry.Start.Year(), int(entry.Start.Month())).
		TriggerSuccessNotification("Zeiteintrag gelöscht").
		Write(w)
}
