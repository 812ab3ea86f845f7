package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/logger"
	"github.com/andy/invoicer/internal/repository"
)

// InvoiceService manages the invoice aggregate: numbering, totals and items.
// Every mutation reloads the aggregate, recomputes it and persists it in one
// transaction.
type InvoiceService interface {
	// CreateInvoice creates an invoice or quotation with a fresh reference number
	CreateInvoice(ctx context.Context, actor domain.Actor, input CreateInvoiceInput) (*domain.Invoice, error)

	// GetInvoice retrieves an invoice with its items and client
	GetInvoice(ctx context.Context, actor domain.Actor, id int64) (*domain.Invoice, error)

	// ListInvoices lists the actor's invoices (all invoices for staff)
	ListInvoices(ctx context.Context, actor domain.Actor, filter repository.InvoiceFilter) ([]*domain.Invoice, error)

	// UpdateInvoice applies a patch. A non-zero version must match the stored
	// one, otherwise domain.ErrConcurrentUpdate is returned.
	UpdateInvoice(ctx context.Context, actor domain.Actor, id, version int64, patch domain.InvoicePatch) (*domain.Invoice, error)

	// DeleteInvoice removes an invoice and its items
	DeleteInvoice(ctx context.Context, actor domain.Actor, id int64) error

	// AddItem appends a line item and recomputes the invoice
	AddItem(ctx context.Context, actor domain.Actor, invoiceID int64, item *domain.InvoiceItem) (*domain.Invoice, error)

	// UpdateItem patches a line item and recomputes the invoice
	UpdateItem(ctx context.Context, actor domain.Actor, invoiceID, itemID int64, patch domain.ItemPatch) (*domain.Invoice, error)

	// RemoveItem deletes a line item and recomputes the invoice
	RemoveItem(ctx context.Context, actor domain.Actor, invoiceID, itemID int64) (*domain.Invoice, error)

	// ListItems lists an invoice's items in order
	ListItems(ctx context.Context, actor domain.Actor, invoiceID int64) ([]*domain.InvoiceItem, error)

	// MarkPaid sets or clears the paid flag
	MarkPaid(ctx context.Context, actor domain.Actor, id int64, paid bool) (*domain.Invoice, error)

	// Recalculate recomputes and stores the totals
	Recalculate(ctx context.Context, actor domain.Actor, id int64) (*domain.Invoice, error)
}

// CreateInvoiceInput holds the fields of a new invoice
type CreateInvoiceInput struct {
	ClientID       int64
	IsQuotation    bool
	IsTaxed        bool             // prices already include tax
	TaxPercentage  *decimal.Decimal // nil uses the configured default unless IsTaxed
	Date           *time.Time
	Notes          string
	TransitCharges decimal.Decimal
	Items          []*domain.InvoiceItem
}

// InvoiceOptions carries the configuration the invoice service needs
type InvoiceOptions struct {
	Prefixes             domain.Prefixes
	DefaultTaxPercentage decimal.NullDecimal
	MaxReferenceRetries  int
}

type invoiceService struct {
	tx          Transactor
	invoiceRepo repository.InvoiceRepository
	clientRepo  repository.ClientRepository
	opts        InvoiceOptions
	log         *logger.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	tx Transactor,
	invoiceRepo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	opts InvoiceOptions,
	log *logger.Logger,
) InvoiceService {
	if opts.MaxReferenceRetries < 1 {
		opts.MaxReferenceRetries = 3
	}
	return &invoiceService{
		tx:          tx,
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		opts:        opts,
		log:         log,
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, actor domain.Actor, input CreateInvoiceInput) (*domain.Invoice, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	// Validate everything before the first write
	draft, err := s.draft(actor, input)
	if err != nil {
		return nil, err
	}
	for _, item := range input.Items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	var created *domain.Invoice
	err = s.withReferenceRetry(ctx, "create invoice", func(ctx context.Context) error {
		client, err := s.loadClient(ctx, actor, input.ClientID)
		if err != nil {
			return err
		}

		inv := *draft
		inv.OwnerID = client.OwnerID
		inv.Items = nil
		if err := s.assignReference(ctx, &inv); err != nil {
			return err
		}
		if err := s.invoiceRepo.Create(ctx, &inv); err != nil {
			return err
		}

		for _, src := range input.Items {
			item := *src
			if err := s.invoiceRepo.AddItem(ctx, inv.ID, &item); err != nil {
				return err
			}
		}

		if err := s.recompute(ctx, &inv); err != nil {
			return err
		}
		inv.Client = client
		created = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		"invoice_id", created.ID,
		"reference", created.ReferenceNumber,
		"owner_id", created.OwnerID,
		"grand_total", domain.FormatMoney(created.GrandTotal),
	)
	return created, nil
}

// draft builds and validates the unsaved invoice
func (s *invoiceService) draft(actor domain.Actor, input CreateInvoiceInput) (*domain.Invoice, error) {
	inv := domain.NewInvoice(actor.OwnerID, input.ClientID, input.IsQuotation)
	inv.IsTaxed = input.IsTaxed
	inv.Notes = strings.TrimSpace(input.Notes)
	inv.TransitCharges = domain.RoundMoney(input.TransitCharges)
	if input.Date != nil {
		d := *input.Date
		inv.Date = &d
	}

	switch {
	case input.TaxPercentage != nil:
		inv.TaxPercentage = decimal.NewNullDecimal(input.TaxPercentage.Round(domain.PercentScale))
	case !input.IsTaxed && s.opts.DefaultTaxPercentage.Valid:
		inv.TaxPercentage = s.opts.DefaultTaxPercentage
	}

	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, actor domain.Actor, id int64) (*domain.Invoice, error) {
	var inv *domain.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.loadInvoice(ctx, actor, id); err != nil {
			return err
		}
		if inv.Items, err = s.invoiceRepo.GetItems(ctx, id); err != nil {
			return err
		}
		client, err := s.clientRepo.GetByID(ctx, inv.ClientID)
		if err != nil {
			return err
		}
		inv.Client = client
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, actor domain.Actor, filter repository.InvoiceFilter) ([]*domain.Invoice, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	filter.OwnerID = actor.OwnerFilter()
	return s.invoiceRepo.List(ctx, filter)
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, actor domain.Actor, id, version int64, patch domain.InvoicePatch) (*domain.Invoice, error) {
	// Reject invalid input before anything is loaded or written
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Invoice
	err := s.withReferenceRetry(ctx, "update invoice", func(ctx context.Context) error {
		inv, err := s.loadInvoice(ctx, actor, id)
		if err != nil {
			return err
		}
		if version != 0 && inv.Version != version {
			return fmt.Errorf("invoice %d changed since it was loaded: %w", id, domain.ErrConcurrentUpdate)
		}

		if patch.ClientID != nil && *patch.ClientID != inv.ClientID {
			client, err := s.loadClient(ctx, actor, *patch.ClientID)
			if err != nil {
				return err
			}
			if client.OwnerID != inv.OwnerID {
				return fmt.Errorf("client %d not found: %w", client.ID, domain.ErrNotFound)
			}
		}

		flipped := patch.IsQuotation != nil && *patch.IsQuotation != inv.IsQuotation
		if err := patch.Apply(inv); err != nil {
			return err
		}
		if err := inv.Validate(); err != nil {
			return err
		}
		if err := s.assignReference(ctx, inv); err != nil {
			return err
		}
		if err := s.recompute(ctx, inv); err != nil {
			return err
		}
		if flipped {
			s.log.Info("invoice moved to another series",
				"invoice_id", inv.ID, "series", inv.Series(), "reference", inv.ReferenceNumber)
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, actor domain.Actor, id int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.loadInvoice(ctx, actor, id); err != nil {
			return err
		}
		// Items go with the invoice; there is nothing left to recompute
		return s.invoiceRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("invoice deleted", "invoice_id", id)
	return nil
}

func (s *invoiceService) AddItem(ctx context.Context, actor domain.Actor, invoiceID int64, item *domain.InvoiceItem) (*domain.Invoice, error) {
	item.ComputeTotal()
	if err := item.Validate(); err != nil {
		return nil, err
	}

	return s.mutateItems(ctx, actor, invoiceID, func(ctx context.Context, inv *domain.Invoice) error {
		return s.invoiceRepo.AddItem(ctx, inv.ID, item)
	})
}

func (s *invoiceService) UpdateItem(ctx context.Context, actor domain.Actor, invoiceID, itemID int64, patch domain.ItemPatch) (*domain.Invoice, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	return s.mutateItems(ctx, actor, invoiceID, func(ctx context.Context, inv *domain.Invoice) error {
		item, err := s.invoiceRepo.GetItem(ctx, inv.ID, itemID)
		if err != nil {
			return err
		}
		if err := patch.Apply(item); err != nil {
			return err
		}
		return s.invoiceRepo.UpdateItem(ctx, item)
	})
}

func (s *invoiceService) RemoveItem(ctx context.Context, actor domain.Actor, invoiceID, itemID int64) (*domain.Invoice, error) {
	return s.mutateItems(ctx, actor, invoiceID, func(ctx context.Context, inv *domain.Invoice) error {
		return s.invoiceRepo.DeleteItem(ctx, inv.ID, itemID)
	})
}

func (s *invoiceService) ListItems(ctx context.Context, actor domain.Actor, invoiceID int64) ([]*domain.InvoiceItem, error) {
	var items []*domain.InvoiceItem
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.loadInvoice(ctx, actor, invoiceID); err != nil {
			return err
		}
		var err error
		items, err = s.invoiceRepo.GetItems(ctx, invoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *invoiceService) MarkPaid(ctx context.Context, actor domain.Actor, id int64, paid bool) (*domain.Invoice, error) {
	return s.UpdateInvoice(ctx, actor, id, 0, domain.InvoicePatch{IsPaid: &paid})
}

func (s *invoiceService) Recalculate(ctx context.Context, actor domain.Actor, id int64) (*domain.Invoice, error) {
	return s.mutateItems(ctx, actor, id, nil)
}

// mutateItems runs load, mutate, recompute and persist in one transaction
func (s *invoiceService) mutateItems(
	ctx context.Context,
	actor domain.Actor,
	invoiceID int64,
	mutate func(ctx context.Context, inv *domain.Invoice) error,
) (*domain.Invoice, error) {
	var inv *domain.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.loadInvoice(ctx, actor, invoiceID); err != nil {
			return err
		}
		if mutate != nil {
			if err := mutate(ctx, inv); err != nil {
				return err
			}
		}
		return s.recompute(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// recompute reloads the items, derives the totals and stores the invoice
func (s *invoiceService) recompute(ctx context.Context, inv *domain.Invoice) error {
	items, err := s.invoiceRepo.GetItems(ctx, inv.ID)
	if err != nil {
		return err
	}
	inv.Recompute(items)
	inv.UpdatedAt = time.Now()
	return s.invoiceRepo.Update(ctx, inv)
}

// assignReference draws the next number of the invoice's series when it has none
// and raises the series mark in the same transaction, so a number is never
// issued twice even after its invoice moves to the other series.
func (s *invoiceService) assignReference(ctx context.Context, inv *domain.Invoice) error {
	if !inv.NeedsReference() {
		return nil
	}

	series := inv.Series()
	last, err := s.invoiceRepo.LastReference(ctx, series)
	if err != nil {
		return err
	}

	ref, err := domain.NextReferenceNumber(s.opts.Prefixes.For(series), last)
	if err != nil {
		return fmt.Errorf("failed to generate reference number: %w", err)
	}
	if err := s.invoiceRepo.RecordReference(ctx, series, ref); err != nil {
		return err
	}
	inv.ReferenceNumber = ref
	return nil
}

// withReferenceRetry runs fn in a fresh transaction per attempt. A reference
// collision means another writer took the number between read and insert, so
// the whole unit is retried and a new number drawn.
func (s *invoiceService) withReferenceRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.opts.MaxReferenceRetries; attempt++ {
		err = s.tx.WithinTx(ctx, fn)
		if !errors.Is(err, domain.ErrReferenceConflict) {
			return err
		}
		s.log.Warn("reference number conflict", "op", op, "attempt", attempt, "error", err)
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", op, s.opts.MaxReferenceRetries, err)
}

// loadInvoice fetches an invoice the actor may see
func (s *invoiceService) loadInvoice(ctx context.Context, actor domain.Actor, id int64) (*domain.Invoice, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := scoped(actor, inv.OwnerID, "invoice", id); err != nil {
		return nil, err
	}
	return inv, nil
}

// loadClient fetches a client the actor may bill
func (s *invoiceService) loadClient(ctx context.Context, actor domain.Actor, id int64) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := scoped(actor, client.OwnerID, "client", id); err != nil {
		return nil, err
	}
	return client, nil
}
