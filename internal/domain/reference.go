package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Series is the numbering stream a reference number is drawn from.
type Series string

const (
	SeriesInvoice   Series = "invoice"
	SeriesQuotation Series = "quotation"
)

// SeriesFor maps the quotation flag to its series.
func SeriesFor(isQuotation bool) Series {
	if isQuotation {
		return SeriesQuotation
	}
	return SeriesInvoice
}

// IsQuotation reports whether s is the quotation series.
func (s Series) IsQuotation() bool {
	return s == SeriesQuotation
}

// Prefixes holds the reference prefix of each series.
type Prefixes struct {
	Invoice   string
	Quotation string
}

// DefaultPrefixes are used when configuration leaves a prefix empty.
var DefaultPrefixes = Prefixes{Invoice: "I_SAE", Quotation: "Q_SAE"}

// For returns the prefix configured for s, falling back to the default.
func (p Prefixes) For(s Series) string {
	if s.IsQuotation() {
		if p.Quotation != "" {
			return p.Quotation
		}
		return DefaultPrefixes.Quotation
	}
	if p.Invoice != "" {
		return p.Invoice
	}
	return DefaultPrefixes.Invoice
}

// ReferenceSequence extracts the trailing number after the last "-" of a
// reference, e.g. 7 for "I_SAE-0007".
func ReferenceSequence(reference string) (int, error) {
	i := strings.LastIndex(reference, "-")
	if i < 0 || i == len(reference)-1 {
		return 0, newValidationError(MalformedReference, "reference_number",
			fmt.Sprintf("%q has no numeric sequence", reference))
	}
	n, err := strconv.Atoi(reference[i+1:])
	if err != nil || n < 0 {
		return 0, newValidationError(MalformedReference, "reference_number",
			fmt.Sprintf("%q has no numeric sequence", reference))
	}
	return n, nil
}

// NextReferenceNumber returns the reference that follows last within a series.
// An empty last starts the series at 1.
func NextReferenceNumber(prefix, last string) (string, error) {
	n := 0
	if last != "" {
		var err error
		if n, err = ReferenceSequence(last); err != nil {
			return "", err
		}
	}
	return FormatReference(prefix, n+1), nil
}

// FormatReference renders "{prefix}-{seq:04d}".
func FormatReference(prefix string, seq int) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}
