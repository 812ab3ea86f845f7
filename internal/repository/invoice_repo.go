package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
)

// InvoiceRepo is a SQLite implementation of InvoiceRepository
type InvoiceRepo struct {
	db *db.DB
}

// NewInvoiceRepo creates a new InvoiceRepo
func NewInvoiceRepo(database *db.DB) *InvoiceRepo {
	return &InvoiceRepo{db: database}
}

const invoiceColumns = `i.id, i.owner_id, i.client_id, i.reference_number, i.tax_percentage,
	i.total_price, i.tax, i.grand_total, i.date, i.notes, i.is_taxed, i.is_quotation,
	i.is_paid, i.transit_charges, i.version, i.created_at, i.updated_at, c.name`

// scanInvoice reads one invoice row joined with its client's name
func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	invoice := &domain.Invoice{}
	var date sql.NullString
	var createdAt, updatedAt, clientName string

	err := row.Scan(
		&invoice.ID,
		&invoice.OwnerID,
		&invoice.ClientID,
		&invoice.ReferenceNumber,
		&invoice.TaxPercentage,
		&invoice.TotalPrice,
		&invoice.Tax,
		&invoice.GrandTotal,
		&date,
		&invoice.Notes,
		&invoice.IsTaxed,
		&invoice.IsQuotation,
		&invoice.IsPaid,
		&invoice.TransitCharges,
		&invoice.Version,
		&createdAt,
		&updatedAt,
		&clientName,
	)
	if err != nil {
		return nil, err
	}

	if invoice.Date, err = parseNullDate(date); err != nil {
		return nil, fmt.Errorf("failed to parse date: %w", err)
	}
	if err := scanTimestamps(createdAt, updatedAt, &invoice.CreatedAt, &invoice.UpdatedAt); err != nil {
		return nil, err
	}

	invoice.Client = &domain.Client{ID: invoice.ClientID, OwnerID: invoice.OwnerID, Name: clientName}
	return invoice, nil
}

// Create inserts a new invoice. A reference number already issued in the same
// series yields domain.ErrReferenceConflict.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	query := `
		INSERT INTO invoices (
			owner_id, client_id, reference_number, reference_seq, tax_percentage,
			total_price, tax, grand_total, date, notes,
			is_taxed, is_quotation, is_paid, transit_charges, version,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if invoice.Version == 0 {
		invoice.Version = 1
	}

	result, err := r.db.Querier(ctx).ExecContext(ctx, query,
		invoice.OwnerID,
		invoice.ClientID,
		invoice.ReferenceNumber,
		referenceSeq(invoice.ReferenceNumber),
		invoice.TaxPercentage,
		invoice.TotalPrice,
		invoice.Tax,
		invoice.GrandTotal,
		nullDate(invoice.Date),
		invoice.Notes,
		invoice.IsTaxed,
		invoice.IsQuotation,
		invoice.IsPaid,
		invoice.TransitCharges,
		invoice.Version,
		invoice.CreatedAt.Format(timeLayout),
		invoice.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reference %s: %w", invoice.ReferenceNumber, domain.ErrReferenceConflict)
		}
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invoice ID: %w", err)
	}

	invoice.ID = id
	return nil
}

// GetByID retrieves an invoice by ID. Items are loaded separately.
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE i.id = ?
	`

	invoice, err := scanInvoice(r.db.Querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("invoice", err)
	}
	return invoice, nil
}

// List retrieves invoices with optional filters, newest first
func (r *InvoiceRepo) List(ctx context.Context, filter InvoiceFilter) ([]*domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE 1=1
	`
	args := make([]any, 0)

	if filter.OwnerID != nil {
		query += " AND i.owner_id = ?"
		args = append(args, *filter.OwnerID)
	}

	if filter.ClientID != nil {
		query += " AND i.client_id = ?"
		args = append(args, *filter.ClientID)
	}

	if filter.Series != nil {
		query += " AND i.is_quotation = ?"
		args = append(args, filter.Series.IsQuotation())
	}

	if filter.Paid != nil {
		query += " AND i.is_paid = ?"
		args = append(args, *filter.Paid)
	}

	if term := strings.TrimSpace(filter.Search); term != "" {
		if _, err := time.Parse(dateLayout, term); err == nil {
			query += " AND (i.date = ? OR substr(i.created_at, 1, 10) = ?)"
			args = append(args, term, term)
		} else {
			like := "%" + escapeLike(term) + "%"
			query += ` AND (i.reference_number LIKE ? ESCAPE '\' OR i.notes LIKE ? ESCAPE '\' OR c.name LIKE ? ESCAPE '\')`
			args = append(args, like, like, like)
		}
	}

	query += " ORDER BY i.created_at DESC, i.id DESC"

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}

// Update writes an invoice if its version still matches the stored row and
// bumps the version. A stale version yields domain.ErrConcurrentUpdate.
func (r *InvoiceRepo) Update(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	query := `
		UPDATE invoices
		SET client_id = ?, reference_number = ?, reference_seq = ?, tax_percentage = ?,
		    total_price = ?, tax = ?, grand_total = ?, date = ?, notes = ?,
		    is_taxed = ?, is_quotation = ?, is_paid = ?, transit_charges = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	q := r.db.Querier(ctx)
	result, err := q.ExecContext(ctx, query,
		invoice.ClientID,
		invoice.ReferenceNumber,
		referenceSeq(invoice.ReferenceNumber),
		invoice.TaxPercentage,
		invoice.TotalPrice,
		invoice.Tax,
		invoice.GrandTotal,
		nullDate(invoice.Date),
		invoice.Notes,
		invoice.IsTaxed,
		invoice.IsQuotation,
		invoice.IsPaid,
		invoice.TransitCharges,
		invoice.UpdatedAt.Format(timeLayout),
		invoice.ID,
		invoice.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reference %s: %w", invoice.ReferenceNumber, domain.ErrReferenceConflict)
		}
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM invoices WHERE id = ?`, invoice.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("invoice not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("invoice %d version %d: %w", invoice.ID, invoice.Version, domain.ErrConcurrentUpdate)
	}

	invoice.Version++
	return nil
}

// Delete removes an invoice; its items go with it through the foreign key
func (r *InvoiceRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Querier(ctx).ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return expectOne(result, "invoice")
}

// LastReference returns the highest reference ever issued in a series, or ""
// when the series is empty. Live rows are consulted as well as the recorded
// high-water mark, so a row written past the mark still moves the series on.
func (r *InvoiceRepo) LastReference(ctx context.Context, series domain.Series) (string, error) {
	query := `
		SELECT reference_number FROM (
			SELECT last_reference AS reference_number, last_seq AS seq
			FROM reference_sequences
			WHERE is_quotation = ?
			UNION ALL
			SELECT reference_number, reference_seq
			FROM invoices
			WHERE is_quotation = ? AND reference_number <> ''
		)
		ORDER BY seq DESC
		LIMIT 1
	`

	var last string
	q := series.IsQuotation()
	err := r.db.Querier(ctx).QueryRowContext(ctx, query, q, q).Scan(&last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get last reference number: %w", err)
	}

	return last, nil
}

// RecordReference raises the series high-water mark to reference. A lower
// reference leaves the mark where it is.
func (r *InvoiceRepo) RecordReference(ctx context.Context, series domain.Series, reference string) error {
	seq, err := domain.ReferenceSequence(reference)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reference_sequences (is_quotation, last_reference, last_seq)
		VALUES (?, ?, ?)
		ON CONFLICT (is_quotation) DO UPDATE
		SET last_reference = excluded.last_reference, last_seq = excluded.last_seq
		WHERE excluded.last_seq > reference_sequences.last_seq
	`
	if _, err := r.db.Querier(ctx).ExecContext(ctx, query, series.IsQuotation(), reference, seq); err != nil {
		return fmt.Errorf("failed to record reference number: %w", err)
	}
	return nil
}

const itemColumns = `id, invoice_id, name, description, unit, quantity, unit_price, total_price, created_at`

func scanItem(row rowScanner) (*domain.InvoiceItem, error) {
	item := &domain.InvoiceItem{}
	var createdAt string

	err := row.Scan(
		&item.ID,
		&item.InvoiceID,
		&item.Name,
		&item.Description,
		&item.Unit,
		&item.Quantity,
		&item.UnitPrice,
		&item.TotalPrice,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return item, nil
}

// AddItem adds a line item to an invoice
func (r *InvoiceRepo) AddItem(ctx context.Context, invoiceID int64, item *domain.InvoiceItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}

	query := `
		INSERT INTO invoice_items (invoice_id, name, description, unit, quantity, unit_price, total_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	item.ComputeTotal()
	result, err := r.db.Querier(ctx).ExecContext(ctx, query,
		invoiceID,
		item.Name,
		item.Description,
		item.Unit,
		item.Quantity,
		item.UnitPrice,
		item.TotalPrice,
		item.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get item ID: %w", err)
	}

	item.ID = id
	item.InvoiceID = invoiceID
	return nil
}

// GetItem retrieves a single item belonging to invoiceID
func (r *InvoiceRepo) GetItem(ctx context.Context, invoiceID, itemID int64) (*domain.InvoiceItem, error) {
	query := `SELECT ` + itemColumns + ` FROM invoice_items WHERE id = ? AND invoice_id = ?`

	item, err := scanItem(r.db.Querier(ctx).QueryRowContext(ctx, query, itemID, invoiceID))
	if err != nil {
		return nil, notFound("item", err)
	}
	return item, nil
}

// UpdateItem rewrites an item and its recomputed total
func (r *InvoiceRepo) UpdateItem(ctx context.Context, item *domain.InvoiceItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}

	query := `
		UPDATE invoice_items
		SET name = ?, description = ?, unit = ?, quantity = ?, unit_price = ?, total_price = ?
		WHERE id = ? AND invoice_id = ?
	`

	item.ComputeTotal()
	result, err := r.db.Querier(ctx).ExecContext(ctx, query,
		item.Name,
		item.Description,
		item.Unit,
		item.Quantity,
		item.UnitPrice,
		item.TotalPrice,
		item.ID,
		item.InvoiceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	return expectOne(result, "item")
}

// DeleteItem removes a specific item from an invoice
func (r *InvoiceRepo) DeleteItem(ctx context.Context, invoiceID, itemID int64) error {
	query := `DELETE FROM invoice_items WHERE id = ? AND invoice_id = ?`

	result, err := r.db.Querier(ctx).ExecContext(ctx, query, itemID, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	return expectOne(result, "item")
}

// GetItems retrieves all items for an invoice in insertion order
func (r *InvoiceRepo) GetItems(ctx context.Context, invoiceID int64) ([]*domain.InvoiceItem, error) {
	query := `SELECT ` + itemColumns + ` FROM invoice_items WHERE invoice_id = ? ORDER BY id`

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.InvoiceItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// referenceSeq is the numeric tail stored alongside a reference for ordering
func referenceSeq(reference string) int {
	seq, err := domain.ReferenceSequence(reference)
	if err != nil {
		return 0
	}
	return seq
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
