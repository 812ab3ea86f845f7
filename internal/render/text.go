package render

import (
	"fmt"
	"io"
	"strings"
)

type textRenderer struct{}

func (textRenderer) Extension() string { return "txt" }

// Render writes a fixed-width plain text version of the document
func (textRenderer) Render(w io.Writer, doc Document) error {
	inv := doc.Invoice
	var b strings.Builder

	sep := strings.Repeat("=", 72)
	line := strings.Repeat("-", 72)

	if o := doc.Owner; o != nil {
		b.WriteString(o.Name + "\n")
		writeIf(&b, "", o.Address)
		writeIf(&b, "", joinNonEmpty(", ", o.Phone, o.Phone2))
		writeIf(&b, "", o.Email)
		writeIf(&b, "NTN No: ", o.NTNNumber)
	}

	b.WriteString("\n" + strings.ToUpper(Title(inv)) + "\n")
	b.WriteString(sep + "\n")
	b.WriteString(fmt.Sprintf("Ref #:      %s\n", inv.ReferenceNumber))
	b.WriteString(fmt.Sprintf("Date:       %s\n", DisplayDate(inv)))

	b.WriteString("\nClient:\n")
	if c := doc.Client; c != nil {
		b.WriteString(fmt.Sprintf("  %s\n", c.Name))
		writeIf(&b, "  ", c.Address)
		writeIf(&b, "  Phone: ", c.Phone)
		writeIf(&b, "  NTN No: ", c.NTNNumber)
	}

	b.WriteString("\n" + line + "\n")
	b.WriteString(fmt.Sprintf("%-3s %-28s %9s %-6s %10s %11s\n", "#", "Name", "Quantity", "Unit", "Unit Price", "Total"))
	b.WriteString(line + "\n")

	if len(doc.Items) == 0 {
		b.WriteString("  No items\n")
	}
	for i, item := range doc.Items {
		b.WriteString(fmt.Sprintf("%-3d %-28s %9s %-6s %10s %11s\n",
			i+1,
			clip(item.Name, 28),
			FormatQuantity(item.Quantity),
			clip(item.Unit, 6),
			FormatAmount("", item.UnitPrice),
			FormatAmount("", item.TotalPrice),
		))
		if item.Description != "" {
			b.WriteString(fmt.Sprintf("    %s\n", clip(item.Description, 66)))
		}
	}

	b.WriteString(line + "\n")
	if !inv.TransitCharges.IsZero() {
		b.WriteString(fmt.Sprintf("%56s %15s\n", "Transit Charges", FormatAmount(doc.Currency, inv.TransitCharges)))
	}
	b.WriteString(fmt.Sprintf("%56s %15s\n", "Subtotal", FormatAmount(doc.Currency, inv.TotalPrice)))
	if label := taxLabel(inv); label != "" {
		b.WriteString(fmt.Sprintf("%56s %15s\n", label, FormatAmount(doc.Currency, inv.Tax)))
	}
	b.WriteString(fmt.Sprintf("%56s %15s\n", "TOTAL", FormatAmount(doc.Currency, inv.GrandTotal)))
	b.WriteString(sep + "\n")

	if o := doc.Owner; o != nil && !inv.IsQuotation && o.Bank != "" {
		b.WriteString("\nPayment Details:\n")
		b.WriteString(fmt.Sprintf("  Bank:  %s\n", o.Bank))
		writeIf(&b, "  Title: ", o.AccountTitle)
		writeIf(&b, "  IBAN:  ", o.IBAN)
	}
	if inv.Notes != "" {
		b.WriteString("\nAdditional Notes:\n")
		b.WriteString("  " + inv.Notes + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeIf(b *strings.Builder, label, value string) {
	if value != "" {
		b.WriteString(label + value + "\n")
	}
}

// clip truncates s to n runes with an ellipsis
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
