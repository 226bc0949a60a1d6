package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rechnerei/internal/core"
	"rechnerei/internal/storage"
)

// LedgerEntry is one row of the merged finance view. Cents is signed:
// income positive, expenses negative.
type LedgerEntry struct {
	Date          time.Time
	Description   string
	Cents         int64
	Category      string
	ReceiptURL    string
	FromInvoice   bool
	InvoiceID     int64
	TransactionID int64
}

func (e LedgerEntry) Amount() core.Money {
	return core.Money{Cents: e.Cents}
}

// MonthLedger is the finance page model for one month.
type MonthLedger struct {
	Year          int
	Month         time.Month
	Entries       []LedgerEntry
	IncomeCents   int64
	ExpenseCents  int64
	ByCategory    map[string]int64
	CategoryOrder []string
}

func (m MonthLedger) Income() core.Money  { return core.Money{Cents: m.IncomeCents} }
func (m MonthLedger) Expense() core.Money { return core.Money{Cents: m.ExpenseCents} }
func (m MonthLedger) Net() core.Money     { return core.Money{Cents: m.IncomeCents - m.ExpenseCents} }

const invoiceCategory = "Rechnungen"

type LedgerService struct {
	repo *storage.Repository
}

func NewLedgerService(repo *storage.Repository) *LedgerService {
	return &LedgerService{repo: repo}
}

// Month merges manual transactions and paid invoices of one calendar
// month into a single ledger, newest first.
func (s *LedgerService) Month(ctx context.Context, year int, month time.Month) (MonthLedger, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)

	transactions, err := s.repo.ListTransactionsInRange(ctx, from, to)
	if err != nil {
		return MonthLedger{}, err
	}
	invoices, err := s.repo.ListPaidInvoicesInRange(ctx, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return MonthLedger{}, err
	}

	ledger := MonthLedger{
		Year:       year,
		Month:      month,
		ByCategory: make(map[string]int64),
	}

	for _, t := range transactions {
		cents := t.Amount.Cents
		if t.Type == core.Expense {
			cents = -cents
		}
		ledger.Entries = append(ledger.Entries, LedgerEntry{
			Date:          t.Date,
			Description:   t.Description,
			Cents:         cents,
			Category:      t.Category,
			ReceiptURL:    t.ReceiptURL,
			TransactionID: t.ID,
		})
	}

	for _, inv := range invoices {
		ledger.Entries = append(ledger.Entries, LedgerEntry{
			Date:        inv.IssueDate,
			Description: fmt.Sprintf("Rechnung %s – %s", inv.Number, inv.RecipientName),
			Cents:       inv.Gross.Cents,
			Category:    invoiceCategory,
			FromInvoice: true,
			InvoiceID:   inv.ID,
		})
	}

	sort.SliceStable(ledger.Entries, func(i, j int) bool {
		return ledger.Entries[i].Date.After(ledger.Entries[j].Date)
	})

	for _, e := range ledger.Entries {
		if e.Cents >= 0 {
			ledger.IncomeCents += e.Cents
		} else {
			ledger.ExpenseCents += -e.Cents
		}
		if _, seen := ledger.ByCategory[e.Category]; !seen {
			ledger.CategoryOrder = append(ledger.CategoryOrder, e.Category)
		}
		ledger.ByCategory[e.Category] += e.Cents
	}
	sort.Strings(ledger.CategoryOrder)

	return ledger, nil
}
