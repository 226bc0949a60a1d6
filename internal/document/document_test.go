package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rechnerei/internal/core"
)

func testInvoice() core.Invoice {
	return core.Invoice{
		ID:               1,
		Number:           "2025-001",
		IssueDate:        time.Date(2025, 10, 7, 0, 0, 0, 0, time.Local),
		DueDate:          time.Date(2025, 10, 21, 0, 0, 0, 0, time.Local),
		RecipientName:    "Fotostudio Huber",
		RecipientAddress: "Hauptstraße 1\n4020 Linz",
		Net:              core.Money{Cents: 124500},
		Tax:              core.Money{Cents: 24900},
		Gross:            core.Money{Cents: 149400},
		TaxRate:          decimal.NewFromInt(20),
		Status:           core.StatusSent,
		Items: []core.LineItem{
			{Description: "Webdesign", Quantity: decimal.NewFromInt(12), UnitPrice: core.Money{Cents: 10000}},
			{Description: "Hosting Einrichtung", Quantity: decimal.NewFromInt(1), UnitPrice: core.Money{Cents: 4500}},
		},
	}
}

func testSettings() core.CompanySettings {
	return core.CompanySettings{
		CompanyName: "Lichtblick Fotografie",
		Address:     "Mariahilfer Straße 10, 1070 Wien",
		IBAN:        "AT61 1904 3002 3457 3201",
	}
}

func renderToString(t *testing.T, inv core.Invoice, settings core.CompanySettings) string {
	t.Helper()
	dir := t.TempDir()
	r, err := NewRenderer(dir)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	path, err := r.Render(context.Background(), inv, settings)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if path != "rechnung-"+inv.Number+".html" {
		t.Errorf("path = %q", path)
	}

	body, err := os.ReadFile(filepath.Join(dir, path))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	return string(body)
}

func TestRenderStandardTaxInvoice(t *testing.T) {
	html := renderToString(t, testInvoice(), testSettings())

	for _, want := range []string{
		"Rechnung 2025-001",
		"Rechnungsdatum: 07.10.2025",
		"Zahlbar bis: 21.10.2025",
		"Fotostudio Huber",
		"Webdesign",
		"€ 1.245,00",
		"zzgl. 20% USt.",
		"€ 249,00",
		"€ 1.494,00",
		"Beträge enthalten die gesetzliche Umsatzsteuer.",
		"AT61 1904 3002 3457 3201",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestRenderSmallBusinessInvoice(t *testing.T) {
	inv := testInvoice()
	inv.SmallBusiness = true
	inv.Tax = core.Money{}
	inv.Gross = inv.Net

	html := renderToString(t, inv, testSettings())

	if !strings.Contains(html, "§ 6 Abs 1 Z 27 UStG") {
		t.Error("document missing small business disclosure")
	}
	if strings.Contains(html, "zzgl.") {
		t.Error("small business document must not show a tax line")
	}
}

func TestRenderRequiresNumber(t *testing.T) {
	r, err := NewRenderer(t.TempDir())
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	inv := testInvoice()
	inv.Number = ""
	if _, err := r.Render(context.Background(), inv, testSettings()); err == nil {
		t.Error("expected an error for an invoice without a number")
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1"},
		{"2.5", "2,5"},
		{"0.25", "0,25"},
	}
	for _, tt := range tests {
		q, _ := decimal.NewFromString(tt.in)
		if got := formatQuantity(q); got != tt.want {
			t.Errorf("formatQuantity(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
