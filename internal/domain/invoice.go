package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the aggregate root: an invoice or quotation plus its line items.
// TotalPrice, Tax and GrandTotal are derived by Recompute and never set directly.
type Invoice struct {
	ID              int64
	OwnerID         int64
	ClientID        int64
	ReferenceNumber string
	TaxPercentage   decimal.NullDecimal
	TotalPrice      decimal.Decimal
	Tax             decimal.Decimal
	GrandTotal      decimal.Decimal
	Date            *time.Time
	Notes           string
	IsTaxed         bool
	IsQuotation     bool
	IsPaid          bool
	TransitCharges  decimal.Decimal
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Related data (populated by repository)
	Items  []*InvoiceItem
	Client *Client
}

// NewInvoice creates an unnumbered invoice (or quotation) for a client
func NewInvoice(ownerID, clientID int64, isQuotation bool) *Invoice {
	now := time.Now()
	return &Invoice{
		OwnerID:     ownerID,
		ClientID:    clientID,
		IsQuotation: isQuotation,
		CreatedAt:   now,
		UpdatedAt:   now,
		Items:       make([]*InvoiceItem, 0),
	}
}

// Series returns the numbering series selected by the quotation flag.
func (i *Invoice) Series() Series {
	return SeriesFor(i.IsQuotation)
}

// NeedsReference reports whether a reference number must be drawn before save.
func (i *Invoice) NeedsReference() bool {
	return i.ReferenceNumber == ""
}

// TaxApplies reports whether invoice-level tax is charged. Any stored
// percentage is charged; IsTaxed marks prices that already include tax.
func (i *Invoice) TaxApplies() bool {
	return i.TaxPercentage.Valid && !i.IsTaxed
}

// Recompute derives TotalPrice, Tax and GrandTotal from items and the invoice
// fields. It is a pure function of its inputs and therefore idempotent.
func (i *Invoice) Recompute(items []*InvoiceItem) {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(RoundMoney(it.Quantity.Mul(it.UnitPrice)))
	}
	total = total.Add(RoundMoney(i.TransitCharges))

	i.TotalPrice = RoundMoney(total)
	i.Tax = decimal.Zero
	if i.TaxApplies() {
		i.Tax = RoundMoney(i.TotalPrice.Mul(i.TaxPercentage.Decimal).Div(hundred))
	}
	i.GrandTotal = i.TotalPrice.Add(i.Tax)
	i.Items = items
}

// Validate returns an error if the invoice is invalid
func (i *Invoice) Validate() error {
	if i.OwnerID <= 0 {
		return newValidationError(MissingField, "owner_id", "owner is required")
	}
	if i.ClientID <= 0 {
		return newValidationError(MissingField, "client_id", "client is required")
	}
	if i.TaxPercentage.Valid {
		if err := validateTaxPercentage(i.TaxPercentage.Decimal); err != nil {
			return err
		}
		if i.IsTaxed && !i.TaxPercentage.Decimal.IsZero() {
			return errTaxIncludedWithPercentage
		}
	}
	return validateTransitCharges(i.TransitCharges)
}

var errTaxIncludedWithPercentage = newValidationError(InvalidTaxPercentage, "is_taxed",
	"tax included cannot be combined with a tax percentage")

func validateTaxPercentage(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return newValidationError(InvalidTaxPercentage, "tax_percentage", "must be between 0 and 100")
	}
	return nil
}

func validateTransitCharges(c decimal.Decimal) error {
	if c.IsNegative() {
		return newValidationError(InvalidTransitCharges, "transit_charges", "cannot be negative")
	}
	return nil
}

// InvoicePatch lists every invoice field that may be changed after creation.
// Nil fields are left untouched; the Clear flags reset optional fields.
type InvoicePatch struct {
	ClientID           *int64
	TaxPercentage      *decimal.Decimal
	ClearTaxPercentage bool
	Date               *time.Time
	ClearDate          bool
	Notes              *string
	IsTaxed            *bool
	IsQuotation        *bool
	IsPaid             *bool
	TransitCharges     *decimal.Decimal
}

// Validate checks each supplied field on its own, before anything is applied.
func (p InvoicePatch) Validate() error {
	if p.ClientID != nil && *p.ClientID <= 0 {
		return newValidationError(MissingField, "client_id", "client is required")
	}
	if p.TaxPercentage != nil {
		if p.ClearTaxPercentage {
			return newValidationError(InvalidTaxPercentage, "tax_percentage", "cannot both set and clear")
		}
		if err := validateTaxPercentage(*p.TaxPercentage); err != nil {
			return err
		}
		if p.IsTaxed != nil && *p.IsTaxed && !p.TaxPercentage.IsZero() {
			return errTaxIncludedWithPercentage
		}
	}
	if p.TransitCharges != nil {
		if err := validateTransitCharges(*p.TransitCharges); err != nil {
			return err
		}
	}
	return nil
}

// Apply validates the patch and copies it onto inv. Flipping the quotation flag
// drops the reference number so a new one is drawn from the target series.
// Marking tax as included clears the percentage, and setting a non-zero
// percentage clears the included flag.
func (p InvoicePatch) Apply(inv *Invoice) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ClientID != nil {
		inv.ClientID = *p.ClientID
	}
	switch {
	case p.TaxPercentage != nil:
		inv.TaxPercentage = decimal.NewNullDecimal(p.TaxPercentage.Round(PercentScale))
	case p.ClearTaxPercentage:
		inv.TaxPercentage = decimal.NullDecimal{}
	}
	switch {
	case p.Date != nil:
		d := *p.Date
		inv.Date = &d
	case p.ClearDate:
		inv.Date = nil
	}
	if p.Notes != nil {
		inv.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.IsTaxed != nil {
		inv.IsTaxed = *p.IsTaxed
		if inv.IsTaxed && p.TaxPercentage == nil {
			inv.TaxPercentage = decimal.NullDecimal{}
		}
	}
	if p.IsTaxed == nil && p.TaxPercentage != nil && !p.TaxPercentage.IsZero() {
		inv.IsTaxed = false
	}
	if p.IsQuotation != nil && *p.IsQuotation != inv.IsQuotation {
		inv.IsQuotation = *p.IsQuotation
		inv.ReferenceNumber = ""
	}
	if p.IsPaid != nil {
		inv.IsPaid = *p.IsPaid
	}
	if p.TransitCharges != nil {
		inv.TransitCharges = RoundMoney(*p.TransitCharges)
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p InvoicePatch) IsEmpty() bool {
	return p.ClientID == nil && p.TaxPercentage == nil && !p.ClearTaxPercentage &&
		p.Date == nil && !p.ClearDate && p.Notes == nil && p.IsTaxed == nil &&
		p.IsQuotation == nil && p.IsPaid == nil && p.TransitCharges == nil
}
