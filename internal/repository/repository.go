package repository

import (
	"context"

	"github.com/andy/invoicer/internal/domain"
)

// OwnerRepository manages invoice owner persistence
type OwnerRepository interface {
	Create(ctx context.Context, owner *domain.Owner) error
	GetByID(ctx context.Context, id int64) (*domain.Owner, error)
	GetByEmail(ctx context.Context, email string) (*domain.Owner, error)
	List(ctx context.Context) ([]*domain.Owner, error)
	Update(ctx context.Context, owner *domain.Owner) error
	Delete(ctx context.Context, id int64) error // Cascades to clients and invoices
}

// ClientRepository manages client persistence. A nil ownerID lists across owners.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	GetByName(ctx context.Context, ownerID int64, name string) (*domain.Client, error)
	List(ctx context.Context, ownerID *int64, includeArchived bool) ([]*domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	Archive(ctx context.Context, id int64) error
	Unarchive(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error // Cascades to invoices
}

// InvoiceFilter narrows an invoice listing. Nil fields do not filter.
type InvoiceFilter struct {
	OwnerID  *int64
	ClientID *int64
	Series   *domain.Series
	Paid     *bool
	Search   string // reference, notes or client name; a YYYY-MM-DD term matches dates
}

// InvoiceRepository manages invoice and line item persistence
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error // ErrReferenceConflict on duplicate reference
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*domain.Invoice, error)
	Update(ctx context.Context, invoice *domain.Invoice) error // ErrConcurrentUpdate on stale version
	Delete(ctx context.Context, id int64) error                // Cascades to items

	// LastReference is the highest reference ever issued in the series;
	// RecordReference raises that mark and never lowers it.
	LastReference(ctx context.Context, series domain.Series) (string, error)
	RecordReference(ctx context.Context, series domain.Series, ref string) error

	AddItem(ctx context.Context, invoiceID int64, item *domain.InvoiceItem) error
	GetItem(ctx context.Context, invoiceID, itemID int64) (*domain.InvoiceItem, error)
	UpdateItem(ctx context.Context, item *domain.InvoiceItem) error
	DeleteItem(ctx context.Context, invoiceID, itemID int64) error
	GetItems(ctx context.Context, invoiceID int64) ([]*domain.InvoiceItem, error)
}
