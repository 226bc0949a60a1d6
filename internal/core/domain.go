package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is flipped by direct user action only; there is no
// automatic state machine beyond the overdue check in the ledger view.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusSent      InvoiceStatus = "sent"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
	StatusCancelled InvoiceStatus = "cancelled"
)

type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Interval is the repetition frequency of a recurring transaction.
type Interval string

const (
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
	Yearly  Interval = "yearly"
)

type (
	Customer struct {
		ID        int64
		Name      string
		Email     string
		Phone     string
		Address   string
		Note      string
		CreatedAt time.Time
	}

	Project struct {
		ID           int64
		CustomerID   int64
		CustomerName string // joined, read-only
		Name         string
		Description  string
		CreatedAt    time.Time
	}

	// CatalogItem is a billable service with an hourly or per-unit price.
	CatalogItem struct {
		ID        int64
		Name      string
		Unit      string // "h", "Stk", ...
		Price     Money
		CreatedAt time.Time
	}

	// TimeEntry records worked time against a project. Duration is always
	// derived from Start/End; see DurationMinutes for the overnight rule.
	TimeEntry struct {
		ID            int64
		ProjectID     int64
		ProjectName   string // joined, read-only
		CatalogItemID int64  // 0 when no service is linked
		CatalogName   string
		HourlyRate    Money
		Start         time.Time
		End           time.Time
		Note          string
		InvoiceID     int64 // 0 until billed
	}

	// Transaction is one manual row of the income/expense ledger.
	// Amount is always positive; Type carries the sign.
	Transaction struct {
		ID          int64
		Date        time.Time
		Description string
		Amount      Money
		Type        TransactionType
		Category    string
		ReceiptURL  string
	}

	// RecurringTransaction materializes into Transactions when due.
	RecurringTransaction struct {
		ID            int64
		StartDate     time.Time
		EndDate       time.Time // zero = open-ended
		Every         Interval
		Description   string
		Amount        Money
		Type          TransactionType
		Category      string
		LastExecution time.Time
	}

	// CompanySettings is the single-row sender identity used on every
	// invoice document, including the Austrian mandatory legal fields.
	CompanySettings struct {
		CompanyName       string
		FirstName         string
		LastName          string
		Address           string
		LegalForm         string
		RegisterNumber    string
		RegistrationCourt string
		SmallBusiness     bool
		VATID             string
		DefaultTaxRate    decimal.Decimal
		BankName          string
		IBAN              string
		BIC               string
		AccountHolder     string
		ContactEmail      string
		ContactPhone      string
		Website           string
	}

	// Invoice stores net/tax/gross as a snapshot taken at creation time;
	// the live draft recomputes them from Items on every change.
	Invoice struct {
		ID                int64
		Number            string
		CustomerID        int64
		ProjectID         int64
		IssueDate         time.Time
		DueDate           time.Time
		PerformancePeriod string
		RecipientName     string
		RecipientAddress  string
		Net               Money
		Tax               Money
		Gross             Money
		TaxRate           decimal.Decimal
		SmallBusiness     bool
		Status            InvoiceStatus
		DocumentPath      string
		CreatedAt         time.Time
		Items             []LineItem
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyRecipient   = errors.New("empty recipient")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidInterval  = errors.New("invalid repetition interval")
)

// ValidStatus reports whether s is one of the five invoice states.
func ValidStatus(s InvoiceStatus) bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.CustomerID <= 0 {
		return errors.New("project requires a customer")
	}
	return nil
}

func (ci CatalogItem) Validate() error {
	if strings.TrimSpace(ci.Name) == "" {
		return ErrEmptyName
	}
	return ci.Price.Validate()
}

func (e TimeEntry) Validate() error {
	if e.ProjectID <= 0 {
		return errors.New("time entry requires a project")
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrInvalidTimeRange
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Type != Income && t.Type != Expense {
		return errors.New("transaction type must be income or expense")
	}
	return nil
}

func (rt RecurringTransaction) Validate() error {
	if rt.StartDate.IsZero() {
		return errors.New("start date cannot be zero")
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate) {
		return errors.New("end date must be after start date")
	}
	switch rt.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return ErrInvalidInterval
	}
	if strings.TrimSpace(rt.Description) == "" {
		return ErrEmptyDescription
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if rt.Type != Income && rt.Type != Expense {
		return errors.New("transaction type must be income or expense")
	}
	return nil
}

// Validate checks the fields a legally issued invoice must carry.
// Line items themselves are deliberately permissive, see LineItem.
func (inv Invoice) Validate() error {
	if strings.TrimSpace(inv.RecipientName) == "" {
		return ErrEmptyRecipient
	}
	if inv.IssueDate.IsZero() {
		return errors.New("issue date cannot be zero")
	}
	if !ValidStatus(inv.Status) {
		return ErrInvalidStatus
	}
	return nil
}
