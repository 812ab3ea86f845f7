package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

type pdfRenderer struct{}

func (pdfRenderer) Extension() string { return "pdf" }

// Render lays the document out on A4: owner letterhead, client and reference
// block, item table, totals, then payment details, notes and signature.
func (pdfRenderer) Render(w io.Writer, doc Document) error {
	inv := doc.Invoice

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(Title(inv)+" "+inv.ReferenceNumber, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30
	half := contentW / 2

	// ── Letterhead ───────────────────────────────────────────────────────────
	if o := doc.Owner; o != nil {
		if placeImage(pdf, o.LogoPath, 15, 15, 25) {
			pdf.SetY(15)
		}
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(contentW, 8, tr(o.Name), "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, s := range []string{o.Address, joinNonEmpty(", ", o.Phone, o.Phone2), o.Email} {
			if s != "" {
				pdf.CellFormat(contentW, 4.5, tr(s), "", 1, "C", false, 0, "")
			}
		}
		if o.NTNNumber != "" {
			pdf.SetFont("Helvetica", "B", 9)
			pdf.CellFormat(contentW, 4.5, tr("NTN No: "+o.NTNNumber), "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, Title(inv), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// ── Client (left) and reference (right) ──────────────────────────────────
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, 5, "Client:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if c := doc.Client; c != nil {
		pdf.CellFormat(half, 4.5, tr(c.Name), "", 1, "L", false, 0, "")
		if c.Address != "" {
			pdf.MultiCell(half, 4.5, tr(c.Address), "", "L", false)
		}
		if c.Phone != "" {
			pdf.CellFormat(half, 4.5, tr("Phone: "+c.Phone), "", 1, "L", false, 0, "")
		}
		if c.NTNNumber != "" {
			pdf.CellFormat(half, 4.5, tr("NTN No: "+c.NTNNumber), "", 1, "L", false, 0, "")
		}
	}
	leftBottom := pdf.GetY()

	pdf.SetXY(15+half, top)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, 5, Title(inv)+" Details:", "", 2, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(half, 4.5, tr("Ref #: "+inv.ReferenceNumber), "", 2, "R", false, 0, "")
	pdf.CellFormat(half, 4.5, "Date: "+DisplayDate(inv), "", 2, "R", false, 0, "")
	if inv.IsPaid {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(half, 4.5, "PAID", "", 2, "R", false, 0, "")
	}
	pdf.SetY(max(leftBottom, pdf.GetY()) + 4)

	// ── Items ────────────────────────────────────────────────────────────────
	cols := []struct {
		title string
		width float64
		align string
	}{
		{"#", 0.07, "C"},
		{"Name", 0.37, "L"},
		{"Quantity", 0.12, "C"},
		{"Unit", 0.10, "C"},
		{"Unit Price", 0.16, "R"},
		{"Total Price", 0.18, "R"},
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, col := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(contentW*col.width, 7, col.title, "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Helvetica", "", 9)
	if len(doc.Items) == 0 {
		pdf.CellFormat(contentW, 7, "No items", "1", 1, "C", false, 0, "")
	}
	for i, item := range doc.Items {
		name := item.Name
		if item.Description != "" {
			name += " - " + item.Description
		}
		values := []string{
			fmt.Sprintf("%d", i+1),
			tr(clip(name, 48)),
			FormatQuantity(item.Quantity),
			tr(item.Unit),
			FormatAmount("", item.UnitPrice),
			FormatAmount("", item.TotalPrice),
		}
		for j, col := range cols {
			ln := 0
			if j == len(cols)-1 {
				ln = 1
			}
			pdf.CellFormat(contentW*col.width, 6, values[j], "1", ln, col.align, false, 0, "")
		}
	}
	pdf.Ln(3)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := contentW * 0.66
	valueW := contentW - labelW
	total := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(valueW, 6, value, "", 1, "R", false, 0, "")
	}

	if !inv.TransitCharges.IsZero() {
		total("Transit Charges", FormatAmount(doc.Currency, inv.TransitCharges), false)
	}
	total("Subtotal", FormatAmount(doc.Currency, inv.TotalPrice), false)
	if label := taxLabel(inv); label != "" {
		total(label, FormatAmount(doc.Currency, inv.Tax), false)
	}
	pdf.Line(15+labelW, pdf.GetY(), pageW-15, pdf.GetY())
	total("Total", FormatAmount(doc.Currency, inv.GrandTotal), true)
	pdf.Ln(6)

	// ── Footer: payment details, notes, signature ────────────────────────────
	footerTop := pdf.GetY()
	if o := doc.Owner; o != nil && !inv.IsQuotation && o.Bank != "" {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(half, 5, "Payment Details:", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(half, 4.5, tr("Bank: "+o.Bank), "", 1, "L", false, 0, "")
		pdf.CellFormat(half, 4.5, tr("Title: "+o.AccountTitle), "", 1, "L", false, 0, "")
		pdf.CellFormat(half, 4.5, tr("IBAN: "+o.IBAN), "", 1, "L", false, 0, "")
		pdf.Ln(3)
	}
	if inv.Notes != "" {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(half, 5, "Additional Notes:", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(half, 4.5, tr(inv.Notes), "", "L", false)
	}
	notesBottom := pdf.GetY()

	sigX := 15 + contentW - 60
	sigY := footerTop + 18
	if o := doc.Owner; o != nil {
		placeImage(pdf, o.SignaturePath, sigX+5, footerTop, 50)
	}
	pdf.Line(sigX, sigY, sigX+60, sigY)
	pdf.SetXY(sigX, sigY+1)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(60, 5, "Chief Executive Officer", "", 1, "C", false, 0, "")
	pdf.SetY(max(notesBottom, pdf.GetY()))

	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 8, "Generated "+stamp(), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write: %w", err)
	}
	return nil
}

// placeImage draws a PNG/JPEG/GIF if the file exists. Missing or unsupported
// images are skipped so a stale path never blocks rendering.
func placeImage(pdf *fpdf.Fpdf, path string, x, y, w float64) bool {
	if path == "" {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif":
	default:
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	pdf.ImageOptions(path, x, y, w, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	if !pdf.Ok() {
		pdf.ClearError()
		return false
	}
	return true
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
