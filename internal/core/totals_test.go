package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func item(qty string, priceCents int64) LineItem {
	q, _ := decimal.NewFromString(qty)
	return LineItem{Description: "Leistung", Quantity: q, UnitPrice: Money{Cents: priceCents}}
}

func TestComputeTotalsEmpty(t *testing.T) {
	got := ComputeTotals(nil, TaxPolicy{RatePercent: decimal.New(20, 0)})
	if got.Net.Cents != 0 || got.Tax.Cents != 0 || got.Gross.Cents != 0 {
		t.Fatalf("empty items: expected all-zero totals, got %+v", got)
	}
}

func TestComputeTotalsStandardRate(t *testing.T) {
	items := []LineItem{
		item("1", 120000), // €1200.00
		item("1", 4500),   // €45.00
	}
	got := ComputeTotals(items, TaxPolicy{RatePercent: decimal.New(20, 0)})
	if got.Net.Cents != 124500 {
		t.Fatalf("net: expected 124500, got %d", got.Net.Cents)
	}
	if got.Tax.Cents != 24900 {
		t.Fatalf("tax: expected 24900, got %d", got.Tax.Cents)
	}
	if got.Gross.Cents != 149400 {
		t.Fatalf("gross: expected 149400, got %d", got.Gross.Cents)
	}
}

func TestComputeTotalsSmallBusinessOverridesRate(t *testing.T) {
	items := []LineItem{item("2.5", 8000), item("1", 12000)}
	for _, rate := range []int64{0, 10, 20, 99} {
		got := ComputeTotals(items, TaxPolicy{SmallBusiness: true, RatePercent: decimal.New(rate, 0)})
		if got.Tax.Cents != 0 {
			t.Fatalf("rate %d: small business tax must be 0, got %d", rate, got.Tax.Cents)
		}
		if got.Gross.Cents != got.Net.Cents {
			t.Fatalf("rate %d: gross %d != net %d", rate, got.Gross.Cents, got.Net.Cents)
		}
	}
}

func TestComputeTotalsFractionalQuantity(t *testing.T) {
	// 2.5h × €80.00 = €200.00 exactly, no float drift
	got := ComputeTotals([]LineItem{item("2.5", 8000)}, TaxPolicy{SmallBusiness: true})
	if got.Net.Cents != 20000 {
		t.Fatalf("expected 20000 cents, got %d", got.Net.Cents)
	}
}

func TestComputeTotalsNegativeLinePassesThrough(t *testing.T) {
	// Credit line: allowed by policy, reduces the net
	items := []LineItem{item("1", 10000), item("1", -2500)}
	got := ComputeTotals(items, TaxPolicy{RatePercent: decimal.New(20, 0)})
	if got.Net.Cents != 7500 {
		t.Fatalf("net: expected 7500, got %d", got.Net.Cents)
	}
	if got.Tax.Cents != 1500 {
		t.Fatalf("tax: expected 1500, got %d", got.Tax.Cents)
	}
}

func TestLineItemAmountRounding(t *testing.T) {
	// 1.005 × €1.00 = 100.5 cents -> 101
	q, _ := decimal.NewFromString("1.005")
	li := LineItem{Description: "x", Quantity: q, UnitPrice: Money{Cents: 100}}
	if got := li.Amount().Cents; got != 101 {
		t.Fatalf("expected 101 cents, got %d", got)
	}
}
