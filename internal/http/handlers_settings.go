package http

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"rechnerei/internal/core"
)

type settingsView struct {
	Settings core.CompanySettings
}

// handleSettings serves and saves the company settings form. The
// small-business flag set here is snapshotted onto invoices at creation;
// changing it never touches existing invoices.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.repo.GetCompanySettings(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to load company settings", "error", err)
			InternalServerError("Einstellungen konnten nicht geladen werden").Write(w)
			return
		}
		s.render(w, r, "settings", settingsView{Settings: settings})
	case http.MethodPost:
		s.handleSaveSettings(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	taxRate := decimal.NewFromInt(20)
	if v := r.FormValue("default_tax_rate"); v != "" {
		rate, err := decimal.NewFromString(normalizeDecimal(v))
		if err != nil || rate.IsNegative() {
			UnprocessableEntityError("Ungültiger Steuersatz").Write(w)
			return
		}
		taxRate = rate
	}

	settings := core.CompanySettings{
		CompanyName:       sanitizeInput(r.FormValue("company_name")),
		FirstName:         sanitizeInput(r.FormValue("first_name")),
		LastName:          sanitizeInput(r.FormValue("last_name")),
		Address:           sanitizeInput(r.FormValue("address")),
		LegalForm:         sanitizeInput(r.FormValue("legal_form")),
		RegisterNumber:    sanitizeInput(r.FormValue("register_number")),
		RegistrationCourt: sanitizeInput(r.FormValue("registration_court")),
		SmallBusiness:     r.FormValue("small_business") != "",
		VATID:             sanitizeInput(r.FormValue("vat_id")),
		DefaultTaxRate:    taxRate,
		BankName:          sanitizeInput(r.FormValue("bank_name")),
		IBAN:              sanitizeInput(r.FormValue("iban")),
		BIC:               sanitizeInput(r.FormValue("bic")),
		AccountHolder:     sanitizeInput(r.FormValue("account_holder")),
		ContactEmail:      sanitizeInput(r.FormValue("contact_email")),
		ContactPhone:      sanitizeInput(r.FormValue("contact_phone")),
		Website:           sanitizeInput(r.FormValue("website")),
	}

	if err := s.repo.SaveCompanySettings(r.Context(), settings); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save company settings", "error", err)
		InternalServerError("Einstellungen konnten nicht gespeichert werden").Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("settings:saved", struct{}{}).
		TriggerSuccessNotification("Einstellungen gespeichert").
		Write(w)
}
