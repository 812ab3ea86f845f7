package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(qty, price string) *InvoiceItem {
	return NewInvoiceItem("Widget", "pcs", dec(qty), dec(price))
}

func invoiceWithTax(pct string) *Invoice {
	inv := NewInvoice(1, 1, false)
	inv.TaxPercentage = decimal.NewNullDecimal(dec(pct))
	return inv
}

func TestRecompute_Example(t *testing.T) {
	inv := invoiceWithTax("10")
	require.False(t, inv.IsTaxed)
	inv.Recompute([]*InvoiceItem{item("2", "10.00"), item("1", "5.00")})

	assert.Equal(t, "25.00", FormatMoney(inv.TotalPrice))
	assert.Equal(t, "2.50", FormatMoney(inv.Tax))
	assert.Equal(t, "27.50", FormatMoney(inv.GrandTotal))
}

func TestRecompute_TransitChargesBeforeTax(t *testing.T) {
	inv := invoiceWithTax("10")
	inv.TransitCharges = dec("15")
	inv.Recompute([]*InvoiceItem{item("3", "33.33")})

	// 99.99 + 15 = 114.99; tax 11.499 -> 11.50
	assert.Equal(t, "114.99", FormatMoney(inv.TotalPrice))
	assert.Equal(t, "11.50", FormatMoney(inv.Tax))
	assert.Equal(t, "126.49", FormatMoney(inv.GrandTotal))
}

func TestRecompute_NoTaxWithoutPercentage(t *testing.T) {
	inv := NewInvoice(1, 1, false)
	inv.Recompute([]*InvoiceItem{item("1", "100")})
	assert.True(t, inv.Tax.IsZero(), "missing percentage must not charge tax")
	assert.Equal(t, "100.00", FormatMoney(inv.GrandTotal))

	// Tax included: the prices already carry it
	inv.IsTaxed = true
	inv.TaxPercentage = decimal.NewNullDecimal(decimal.Zero)
	require.NoError(t, inv.Validate())
	inv.Recompute([]*InvoiceItem{item("1", "100")})
	assert.False(t, inv.TaxApplies())
	assert.True(t, inv.Tax.IsZero())
	assert.Equal(t, "100.00", FormatMoney(inv.GrandTotal))
}

func TestValidate_TaxIncludedExcludesPercentage(t *testing.T) {
	inv := invoiceWithTax("17")
	inv.IsTaxed = true
	err := inv.Validate()
	require.Error(t, err)
	assert.True(t, IsValidationKind(err, InvalidTaxPercentage))

	included := true
	pct := dec("17")
	err = InvoicePatch{IsTaxed: &included, TaxPercentage: &pct}.Validate()
	assert.True(t, IsValidationKind(err, InvalidTaxPercentage))
}

func TestInvoicePatch_TaxIncludedAndPercentageReplaceEachOther(t *testing.T) {
	inv := invoiceWithTax("17")

	included := true
	require.NoError(t, InvoicePatch{IsTaxed: &included}.Apply(inv))
	assert.True(t, inv.IsTaxed)
	assert.False(t, inv.TaxPercentage.Valid)
	require.NoError(t, inv.Validate())

	pct := dec("10")
	require.NoError(t, InvoicePatch{TaxPercentage: &pct}.Apply(inv))
	assert.False(t, inv.IsTaxed)
	assert.True(t, inv.TaxApplies())
	require.NoError(t, inv.Validate())
}

func TestRecompute_Idempotent(t *testing.T) {
	inv := invoiceWithTax("17.5")
	inv.TransitCharges = dec("3.10")
	items := []*InvoiceItem{item("1.5", "19.99"), item("7", "0.33"), item("0", "1000")}

	inv.Recompute(items)
	totals := func() []string {
		return []string{FormatMoney(inv.TotalPrice), FormatMoney(inv.Tax), FormatMoney(inv.GrandTotal)}
	}
	first := totals()

	for n := 0; n < 5; n++ {
		inv.Recompute(items)
		assert.Equal(t, first, totals())
	}
}

func TestRecompute_ExactDecimalSum(t *testing.T) {
	// 0.10 a thousand times drifts in float64 but must be exact here.
	items := make([]*InvoiceItem, 0, 1000)
	for n := 0; n < 1000; n++ {
		items = append(items, item("1", "0.10"))
	}
	inv := NewInvoice(1, 1, false)
	inv.Recompute(items)
	assert.True(t, inv.TotalPrice.Equal(dec("100")), inv.TotalPrice.String())
}

func TestRecompute_NoItemsZeroes(t *testing.T) {
	inv := invoiceWithTax("10")
	inv.Recompute([]*InvoiceItem{item("2", "10")})
	require.False(t, inv.GrandTotal.IsZero())

	inv.Recompute(nil)
	assert.True(t, inv.TotalPrice.IsZero())
	assert.True(t, inv.Tax.IsZero())
	assert.True(t, inv.GrandTotal.IsZero())
}

func TestValidate_TaxPercentage(t *testing.T) {
	inv := invoiceWithTax("150")
	err := inv.Validate()
	require.Error(t, err)
	assert.True(t, IsValidationKind(err, InvalidTaxPercentage))

	inv.TaxPercentage = decimal.NewNullDecimal(dec("-1"))
	assert.True(t, IsValidationKind(inv.Validate(), InvalidTaxPercentage))

	for _, ok := range []string{"0", "100", "12.345"} {
		inv.TaxPercentage = decimal.NewNullDecimal(dec(ok))
		assert.NoError(t, inv.Validate(), ok)
	}
}

func TestValidate_TransitCharges(t *testing.T) {
	inv := NewInvoice(1, 1, false)
	inv.TransitCharges = dec("-0.01")
	assert.True(t, IsValidationKind(inv.Validate(), InvalidTransitCharges))
}

func TestInvoicePatch_RejectsBeforeMutating(t *testing.T) {
	inv := invoiceWithTax("10")
	inv.Notes = "original"
	bad := dec("150")
	notes := "changed"

	err := InvoicePatch{TaxPercentage: &bad, Notes: &notes}.Apply(inv)
	require.Error(t, err)
	assert.True(t, IsValidationKind(err, InvalidTaxPercentage))
	assert.Equal(t, "original", inv.Notes)
	assert.Equal(t, "10", inv.TaxPercentage.Decimal.String())
}

func TestInvoicePatch_SeriesFlipClearsReference(t *testing.T) {
	inv := NewInvoice(1, 1, false)
	inv.ReferenceNumber = "I_SAE-0003"

	same := false
	require.NoError(t, InvoicePatch{IsQuotation: &same}.Apply(inv))
	assert.Equal(t, "I_SAE-0003", inv.ReferenceNumber)
	assert.False(t, inv.NeedsReference())

	flip := true
	require.NoError(t, InvoicePatch{IsQuotation: &flip}.Apply(inv))
	assert.True(t, inv.NeedsReference())
	assert.Equal(t, SeriesQuotation, inv.Series())
}

func TestInvoicePatch_ClearFields(t *testing.T) {
	inv := invoiceWithTax("10")
	d := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inv.Date = &d

	require.NoError(t, InvoicePatch{ClearTaxPercentage: true, ClearDate: true}.Apply(inv))
	assert.False(t, inv.TaxPercentage.Valid)
	assert.Nil(t, inv.Date)
	assert.True(t, InvoicePatch{}.IsEmpty())
}
