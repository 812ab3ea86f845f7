package domain

import (
	"strings"
	"time"
)

// Owner is the business issuing invoices. Every client and invoice belongs to
// exactly one owner.
type Owner struct {
	ID            int64
	Email         string
	Name          string
	Address       string
	Phone         string
	Phone2        string
	NTNNumber     string
	Bank          string
	AccountTitle  string
	IBAN          string
	LogoPath      string
	SignaturePath string
	IsOnboarded   bool
	IsStaff       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOwner creates an owner with required fields
func NewOwner(email, name string) *Owner {
	now := time.Now()
	return &Owner{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate returns an error if the owner is invalid
func (o *Owner) Validate() error {
	if err := validateEmail("email", o.Email, true); err != nil {
		return err
	}
	if strings.TrimSpace(o.Name) == "" {
		return newValidationError(MissingField, "name", "is required")
	}
	if err := validatePhone("phone", o.Phone); err != nil {
		return err
	}
	if err := validatePhone("phone_2", o.Phone2); err != nil {
		return err
	}
	return validateNTN(o.NTNNumber)
}

// OwnerPatch lists the owner profile fields that may be changed after
// registration. Nil fields are left untouched.
type OwnerPatch struct {
	Name          *string
	Address       *string
	Phone         *string
	Phone2        *string
	NTNNumber     *string
	Bank          *string
	AccountTitle  *string
	IBAN          *string
	LogoPath      *string
	SignaturePath *string
}

// Validate checks each supplied field on its own.
func (p OwnerPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return newValidationError(MissingField, "name", "is required")
	}
	if p.Phone != nil {
		if err := validatePhone("phone", *p.Phone); err != nil {
			return err
		}
	}
	if p.Phone2 != nil {
		if err := validatePhone("phone_2", *p.Phone2); err != nil {
			return err
		}
	}
	if p.NTNNumber != nil {
		if err := validateNTN(*p.NTNNumber); err != nil {
			return err
		}
	}
	return nil
}

// Apply validates the patch and copies the supplied fields onto o. Completing a
// profile update marks the owner as onboarded.
func (p OwnerPatch) Apply(o *Owner) error {
	if err := p.Validate(); err != nil {
		return err
	}
	setString(&o.Name, p.Name)
	setString(&o.Address, p.Address)
	setString(&o.Phone, p.Phone)
	setString(&o.Phone2, p.Phone2)
	setString(&o.NTNNumber, p.NTNNumber)
	setString(&o.Bank, p.Bank)
	setString(&o.AccountTitle, p.AccountTitle)
	setString(&o.IBAN, p.IBAN)
	setString(&o.LogoPath, p.LogoPath)
	setString(&o.SignaturePath, p.SignaturePath)
	o.IsOnboarded = true
	o.UpdatedAt = time.Now()
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
