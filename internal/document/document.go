// Package document renders issued invoices into standalone HTML
// documents for printing and archival.
package document

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"rechnerei/internal/core"
)

//go:embed templates/invoice.html
var templatesFS embed.FS

// The two mutually exclusive tax notes an Austrian invoice must carry.
const (
	smallBusinessNote = "Gemäß § 6 Abs 1 Z 27 UStG wird keine Umsatzsteuer verrechnet (Kleinunternehmerregelung)."
	standardTaxNote   = "Beträge enthalten die gesetzliche Umsatzsteuer."
)

// Renderer writes invoice documents below a fixed directory. File names
// derive from the invoice number, which is unique by construction.
type Renderer struct {
	dir  string
	tmpl *template.Template
}

func NewRenderer(dir string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}

	tmpl, err := template.New("invoice.html").Funcs(template.FuncMap{
		"euro":       func(m core.Money) string { return m.String() },
		"shortDate":  func(d interface{ Format(string) string }) string { return d.Format("02.01.2006") },
		"quantity":   formatQuantity,
		"lineAmount": func(item core.LineItem) string { return item.Amount().String() },
		"add1":       func(i int) int { return i + 1 },
	}).ParseFS(templatesFS, "templates/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}

	return &Renderer{dir: dir, tmpl: tmpl}, nil
}

// formatQuantity trims trailing zeros so "2.50" prints as "2,5" and
// "1.00" as "1", with the Austrian decimal comma.
func formatQuantity(q decimal.Decimal) string {
	s := q.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return replaceDot(s)
}

func replaceDot(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] == '.' {
			b[i] = ','
		}
	}
	return string(b)
}

type templateData struct {
	Invoice  core.Invoice
	Settings core.CompanySettings
	TaxNote  string
	TaxLabel string
	HasDue   bool
}

// Render produces the document for inv and returns the path relative
// to the document directory.
func (r *Renderer) Render(ctx context.Context, inv core.Invoice, settings core.CompanySettings) (string, error) {
	if inv.Number == "" {
		return "", fmt.Errorf("invoice %d has no number", inv.ID)
	}

	data := templateData{
		Invoice:  inv,
		Settings: settings,
		TaxNote:  standardTaxNote,
		TaxLabel: fmt.Sprintf("zzgl. %s%% USt.", replaceDot(inv.TaxRate.String())),
		HasDue:   !inv.DueDate.IsZero(),
	}
	if inv.SmallBusiness {
		data.TaxNote = smallBusinessNote
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute invoice template: %w", err)
	}

	name := fmt.Sprintf("rechnung-%s.html", inv.Number)
	if err := os.WriteFile(filepath.Join(r.dir, name), buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write invoice document: %w", err)
	}

	slog.InfoContext(ctx, "Invoice document rendered",
		"invoice_id", inv.ID, "number", inv.Number, "path", name)
	return name, nil
}

// Open returns the rendered file for download handlers.
func (r *Renderer) Open(path string) (*os.File, error) {
	clean := filepath.Base(path)
	f, err := os.Open(filepath.Join(r.dir, clean))
	if err != nil {
		return nil, fmt.Errorf("open invoice document %s: %w", clean, err)
	}
	return f, nil
}
