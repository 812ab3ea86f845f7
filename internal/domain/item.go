package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceItem is one billable line on an invoice.
type InvoiceItem struct {
	ID          int64
	InvoiceID   int64
	Name        string
	Description string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal // quantity * unit price, never set directly
	CreatedAt   time.Time
}

// NewInvoiceItem creates an item with its total already computed
func NewInvoiceItem(name, unit string, quantity, unitPrice decimal.Decimal) *InvoiceItem {
	item := &InvoiceItem{
		Name:      strings.TrimSpace(name),
		Unit:      strings.TrimSpace(unit),
		Quantity:  quantity,
		UnitPrice: unitPrice,
		CreatedAt: time.Now(),
	}
	item.ComputeTotal()
	return item
}

// ComputeTotal normalises quantity and unit price to their scales and derives
// the extended price.
func (it *InvoiceItem) ComputeTotal() {
	it.Quantity = it.Quantity.Round(QuantityScale)
	it.UnitPrice = RoundMoney(it.UnitPrice)
	it.TotalPrice = RoundMoney(it.Quantity.Mul(it.UnitPrice))
}

// Validate returns an error if the item is invalid
func (it *InvoiceItem) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return newValidationError(MissingField, "name", "item name is required")
	}
	if strings.TrimSpace(it.Unit) == "" {
		return newValidationError(MissingField, "unit", "unit of measure is required")
	}
	if it.Quantity.IsNegative() {
		return newValidationError(InvalidQuantity, "quantity", "cannot be negative")
	}
	if it.UnitPrice.IsNegative() {
		return newValidationError(InvalidUnitPrice, "unit_price", "cannot be negative")
	}
	return nil
}

// ItemPatch lists the item fields that may be edited.
type ItemPatch struct {
	Name        *string
	Unit        *string
	Description *string
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
}

// Validate checks each supplied field on its own.
func (p ItemPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return newValidationError(MissingField, "name", "item name is required")
	}
	if p.Unit != nil && strings.TrimSpace(*p.Unit) == "" {
		return newValidationError(MissingField, "unit", "unit of measure is required")
	}
	if p.Quantity != nil && p.Quantity.IsNegative() {
		return newValidationError(InvalidQuantity, "quantity", "cannot be negative")
	}
	if p.UnitPrice != nil && p.UnitPrice.IsNegative() {
		return newValidationError(InvalidUnitPrice, "unit_price", "cannot be negative")
	}
	return nil
}

// Apply validates the patch, copies the supplied fields and recomputes the
// item total.
func (p ItemPatch) Apply(it *InvoiceItem) error {
	if err := p.Validate(); err != nil {
		return err
	}
	setString(&it.Name, p.Name)
	setString(&it.Unit, p.Unit)
	setString(&it.Description, p.Description)
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		it.UnitPrice = *p.UnitPrice
	}
	it.ComputeTotal()
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Unit == nil && p.Description == nil &&
		p.Quantity == nil && p.UnitPrice == nil
}
