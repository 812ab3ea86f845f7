package repository

import (
	"context"
	"fmt"

	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
)

// ClientRepo is a SQLite implementation of ClientRepository
type ClientRepo struct {
	db *db.DB
}

// NewClientRepo creates a new ClientRepo
func NewClientRepo(database *db.DB) *ClientRepo {
	return &ClientRepo{db: database}
}

const clientColumns = `id, owner_id, name, email, address, ntn_number, phone, notes,
	is_archived, created_at, updated_at`

func scanClient(row rowScanner) (*domain.Client, error) {
	client := &domain.Client{}
	var createdAt, updatedAt string

	err := row.Scan(
		&client.ID,
		&client.OwnerID,
		&client.Name,
		&client.Email,
		&client.Address,
		&client.NTNNumber,
		&client.Phone,
		&client.Notes,
		&client.IsArchived,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := scanTimestamps(createdAt, updatedAt, &client.CreatedAt, &client.UpdatedAt); err != nil {
		return nil, err
	}
	return client, nil
}

// Create inserts a new client into the database
func (r *ClientRepo) Create(ctx context.Context, client *domain.Client) error {
	if err := client.Validate(); err != nil {
		return fmt.Errorf("invalid client: %w", err)
	}

	query := `
		INSERT INTO clients (owner_id, name, email, address, ntn_number, phone, notes, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Querier(ctx).ExecContext(ctx, query,
		client.OwnerID,
		client.Name,
		client.Email,
		client.Address,
		client.NTNNumber,
		client.Phone,
		client.Notes,
		client.IsArchived,
		client.CreatedAt.Format(timeLayout),
		client.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("client %q already exists", client.Name)
		}
		return fmt.Errorf("failed to create client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get client ID: %w", err)
	}

	client.ID = id
	return nil
}

// GetByID retrieves a client by ID
func (r *ClientRepo) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = ?`

	client, err := scanClient(r.db.Querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("client", err)
	}
	return client, nil
}

// GetByName retrieves one of an owner's clients by name
func (r *ClientRepo) GetByName(ctx context.Context, ownerID int64, name string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE owner_id = ? AND name = ?`

	client, err := scanClient(r.db.Querier(ctx).QueryRowContext(ctx, query, ownerID, name))
	if err != nil {
		return nil, notFound("client", err)
	}
	return client, nil
}

// List retrieves clients, optionally scoped to an owner and including archived ones
func (r *ClientRepo) List(ctx context.Context, ownerID *int64, includeArchived bool) ([]*domain.Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE (is_archived = 0 OR ? = 1)
		  AND (? IS NULL OR owner_id = ?)
		ORDER BY name
	`

	var owner any
	if ownerID != nil {
		owner = *ownerID
	}

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, includeArchived, owner, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]*domain.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}

	return clients, nil
}

// Update updates an existing client
func (r *ClientRepo) Update(ctx context.Context, client *domain.Client) error {
	if err := client.Validate(); err != nil {
		return fmt.Errorf("invalid client: %w", err)
	}

	query := `
		UPDATE clients
		SET name = ?, email = ?, address = ?, ntn_number = ?, phone = ?, notes = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Querier(ctx).ExecContext(ctx, query,
		client.Name,
		client.Email,
		client.Address,
		client.NTNNumber,
		client.Phone,
		client.Notes,
		client.IsArchived,
		client.UpdatedAt.Format(timeLayout),
		client.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("client %q already exists", client.Name)
		}
		return fmt.Errorf("failed to update client: %w", err)
	}

	return expectOne(result, "client")
}

// Archive marks a client as archived
func (r *ClientRepo) Archive(ctx context.Context, id int64) error {
	return r.setArchived(ctx, id, true)
}

// Unarchive marks a client as active
func (r *ClientRepo) Unarchive(ctx context.Context, id int64) error {
	return r.setArchived(ctx, id, false)
}

func (r *ClientRepo) setArchived(ctx context.Context, id int64, archived bool) error {
	query := `
		UPDATE clients
		SET is_archived = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Querier(ctx).ExecContext(ctx, query, archived, formatTime(), id)
	if err != nil {
		return fmt.Errorf("failed to update client archive state: %w", err)
	}

	return expectOne(result, "client")
}

// Delete removes a client and, through the foreign key, its invoices
func (r *ClientRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Querier(ctx).ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return expectOne(result, "client")
}
