// Package render turns an already computed invoice into a printable document.
// Renderers never recompute totals; they print what the aggregate holds.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/invoicer/internal/domain"
)

// Format selects a renderer
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "txt"
)

// Document is the snapshot a renderer prints
type Document struct {
	Owner    *domain.Owner
	Client   *domain.Client
	Invoice  *domain.Invoice
	Items    []*domain.InvoiceItem
	Currency string // Printed before amounts, e.g. "Rs"
}

// Renderer writes a Document in one output format
type Renderer interface {
	Render(w io.Writer, doc Document) error
	Extension() string
}

// New returns the renderer for format
func New(format Format) (Renderer, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatPDF, "":
		return pdfRenderer{}, nil
	case FormatText, "text":
		return textRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want pdf or txt)", format)
	}
}

// FileName is the suggested output file name, e.g. I_SAE-0007.pdf
func FileName(inv *domain.Invoice, r Renderer) string {
	name := inv.ReferenceNumber
	if name == "" {
		name = fmt.Sprintf("invoice-%d", inv.ID)
	}
	return name + "." + r.Extension()
}

// Title is "Invoice" or "Quotation"
func Title(inv *domain.Invoice) string {
	if inv.IsQuotation {
		return "Quotation"
	}
	return "Invoice"
}

// DisplayDate is the invoice date, or the creation date when none was set
func DisplayDate(inv *domain.Invoice) string {
	if inv.Date != nil {
		return inv.Date.Format("2006-01-02")
	}
	return inv.CreatedAt.Format("2006-01-02")
}

// FormatAmount renders d with thousands separators, e.g. "Rs 1,250.00".
func FormatAmount(currency string, d decimal.Decimal) string {
	s := domain.FormatMoney(d)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	dot := strings.IndexByte(s, '.')
	intPart, decPart := s[:dot], s[dot:]

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	out := b.String() + decPart
	if negative {
		out = "-" + out
	}
	if currency != "" {
		out = currency + " " + out
	}
	return out
}

// FormatQuantity drops trailing zeros, e.g. 2.500 prints as 2.5
func FormatQuantity(d decimal.Decimal) string {
	return d.String()
}

// taxLabel returns e.g. "Tax (17%)", or "" when no tax applies
func taxLabel(inv *domain.Invoice) string {
	if !inv.TaxApplies() {
		return ""
	}
	return fmt.Sprintf("Tax (%s%%)", inv.TaxPercentage.Decimal.String())
}

func stamp() string {
	return time.Now().Format("2006-01-02 15:04")
}
