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

// GetCompanySettings returns the single settings row. A fresh database
// has none yet; callers get zero-value settings then, not an error.
func (r *Repository) GetCompanySettings(ctx context.Context) (core.CompanySettings, error) {
	var s core.CompanySettings
	var taxRate string
	err := r.db.QueryRowContext(ctx,
		`SELECT company_name, first_name, last_name, address, legal_form,
		   register_number, registration_court, small_business, vat_id, default_tax_rate,
		   bank_name, iban, bic, account_holder, contact_email, contact_phone, website
		 FROM company_settings WHERE id = 1`).
		Scan(&s.CompanyName, &s.FirstName, &s.LastName, &s.Address, &s.LegalForm,
			&s.RegisterNumber, &s.RegistrationCourt, &s.SmallBusiness, &s.VATID, &taxRate,
			&s.BankName, &s.IBAN, &s.BIC, &s.AccountHolder, &s.ContactEmail, &s.ContactPhone, &s.Website)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CompanySettings{SmallBusiness: true, DefaultTaxRate: decimal.NewFromInt(20)}, nil
	}
	if err != nil {
		return core.CompanySettings{}, fmt.Errorf("get company settings: %w", err)
	}
	s.DefaultTaxRate, _ = decimal.NewFromString(taxRate)
	return s, nil
}

// SaveCompanySettings upserts the single row.
func (r *Repository) SaveCompanySettings(ctx context.Context, s core.CompanySettings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO company_settings (id, company_name, first_name, last_name, address, legal_form,
		   register_number, registration_court, small_business, vat_id, default_tax_rate,
		   bank_name, iban, bic, account_holder, contact_email, contact_phone, website, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		 ON CONFLICT(id) DO UPDATE SET
		   company_name = excluded.company_name,
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   address = excluded.address,
		   legal_form = excluded.legal_form,
		   register_number = excluded.register_number,
		   registration_court = excluded.registration_court,
		   small_business = excluded.small_business,
		   vat_id = excluded.vat_id,
		   default_tax_rate = excluded.default_tax_rate,
		   bank_name = excluded.bank_name,
		   iban = excluded.iban,
		   bic = excluded.bic,
		   account_holder = excluded.account_holder,
		   contact_email = excluded.contact_email,
		   contact_phone = excluded.contact_phone,
		   website = excluded.website,
		   updated_at = excluded.updated_at`,
		s.CompanyName, s.FirstName, s.LastName, s.Address, s.LegalForm,
		s.RegisterNumber, s.RegistrationCourt, s.SmallBusiness, s.VATID, s.DefaultTaxRate.String(),
		s.BankName, s.IBAN, s.BIC, s.AccountHolder, s.ContactEmail, s.ContactPhone, s.Website)
	if err != nil {
		return fmt.Errorf("save company settings: %w", err)
	}

	slog.InfoContext(ctx, "Company settings saved", "small_business", s.SmallBusiness)
	return nil
}
