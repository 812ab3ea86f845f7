package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/shopspring/decimal"

	"github.com/andy/invoicer/internal/render"
)

// formatMoney formats an amount as "Rs 1,250.00" with the configured currency
func formatMoney(currency string, amount decimal.Decimal) string {
	return render.FormatAmount(currency, amount)
}

// truncateStr truncates a string to the specified length with ellipsis
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// newField builds a text input the way every form on these screens does
func newField(placeholder string, limit, width int) textinput.Model {
	f := textinput.New()
	f.Placeholder = placeholder
	f.CharLimit = limit
	f.Width = width
	return f
}

// optionalDecimal parses s with parse, returning nil for a blank field
func optionalDecimal(s string, parse func(string) (decimal.Decimal, error)) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parse(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// yes reports whether a y/n form field was answered yes
func yes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}
