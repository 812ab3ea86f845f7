package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scales applied to every stored decimal. Money is kept at cents; quantities and
// percentages keep three fractional digits.
const (
	MoneyScale    int32 = 2
	QuantityScale int32 = 3
	PercentScale  int32 = 3
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds d half away from zero to MoneyScale.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ParseMoney parses a monetary amount such as "1250.5" and rounds it to cents.
func ParseMoney(s string) (decimal.Decimal, error) {
	return parseScaled(s, MoneyScale)
}

// ParseQuantity parses a quantity and rounds it to QuantityScale.
func ParseQuantity(s string) (decimal.Decimal, error) {
	return parseScaled(s, QuantityScale)
}

// ParsePercent parses a percentage (e.g. "17.5" for 17.5%).
func ParsePercent(s string) (decimal.Decimal, error) {
	return parseScaled(s, PercentScale)
}

func parseScaled(s string, scale int32) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Round(scale), nil
}

// FormatMoney renders d with exactly two fractional digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}
