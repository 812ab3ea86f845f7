package domain

import (
	"strings"
	"time"
)

type Client struct {
	ID         int64
	OwnerID    int64
	Name       string
	Email      string
	Address    string
	NTNNumber  string
	Phone      string
	Notes      string
	IsArchived bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewClient creates a new client owned by ownerID
func NewClient(ownerID int64, name string) *Client {
	now := time.Now()
	return &Client{
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate returns an error if the client is invalid
func (c *Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return newValidationError(MissingField, "name", "client name is required")
	}
	if c.OwnerID <= 0 {
		return newValidationError(MissingField, "owner_id", "owner is required")
	}
	if err := validateEmail("email", c.Email, false); err != nil {
		return err
	}
	if err := validatePhone("phone", c.Phone); err != nil {
		return err
	}
	return validateNTN(c.NTNNumber)
}

// ClientPatch lists the client fields that may be edited.
type ClientPatch struct {
	Name      *string
	Email     *string
	Address   *string
	NTNNumber *string
	Phone     *string
	Notes     *string
}

// Validate checks each supplied field on its own.
func (p ClientPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return newValidationError(MissingField, "name", "client name is required")
	}
	if p.Email != nil {
		if err := validateEmail("email", *p.Email, false); err != nil {
			return err
		}
	}
	if p.Phone != nil {
		if err := validatePhone("phone", *p.Phone); err != nil {
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

// Apply validates the patch and copies the supplied fields onto c.
func (p ClientPatch) Apply(c *Client) error {
	if err := p.Validate(); err != nil {
		return err
	}
	setString(&c.Name, p.Name)
	setString(&c.Email, p.Email)
	setString(&c.Address, p.Address)
	setString(&c.NTNNumber, p.NTNNumber)
	setString(&c.Phone, p.Phone)
	setString(&c.Notes, p.Notes)
	c.UpdatedAt = time.Now()
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p ClientPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Address == nil &&
		p.NTNNumber == nil && p.Phone == nil && p.Notes == nil
}
