package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one row of an invoice. Quantity may be fractional (hours)
// and both quantity and unit price may be zero or negative: credit and
// discount lines are allowed by policy, not validated away.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   Money
	Position    int
}

// Amount returns quantity × unit price, rounded half-up to cents.
func (li LineItem) Amount() Money {
	amt := li.Quantity.Mul(decimal.New(li.UnitPrice.Cents, 0)).Round(0)
	return Money{Cents: amt.IntPart()}
}

// Validate only requires a description; amounts pass through unchecked.
func (li LineItem) Validate() error {
	if strings.TrimSpace(li.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// TaxPolicy selects between the Austrian small-business exemption
// (§6 Abs 1 Z 27 UStG, tax always zero) and a flat VAT rate.
type TaxPolicy struct {
	SmallBusiness bool
	RatePercent   decimal.Decimal
}

// InvoiceTotals is derived, never stored independently of the items it
// was computed from.
type InvoiceTotals struct {
	Net   Money
	Tax   Money
	Gross Money
}

// ComputeTotals sums the line items and applies the tax policy. An empty
// item list yields all-zero totals; that is not an error. The exemption
// overrides any configured rate.
func ComputeTotals(items []LineItem, policy TaxPolicy) InvoiceTotals {
	var net int64
	for _, li := range items {
		net += li.Amount().Cents
	}

	var tax int64
	if !policy.SmallBusiness {
		tax = decimal.New(net, 0).
			Mul(policy.RatePercent).
			Div(decimal.New(100, 0)).
			Round(0).
			IntPart()
	}

	return InvoiceTotals{
		Net:   Money{Cents: net},
		Tax:   Money{Cents: tax},
		Gross: Money{Cents: net + tax},
	}
}
