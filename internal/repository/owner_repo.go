package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
)

// OwnerRepo is a SQLite implementation of OwnerRepository
type OwnerRepo struct {
	db *db.DB
}

// NewOwnerRepo creates a new OwnerRepo
func NewOwnerRepo(database *db.DB) *OwnerRepo {
	return &OwnerRepo{db: database}
}

const ownerColumns = `id, email, name, address, phone, phone_2, ntn_number, bank,
	account_title, iban, logo_path, signature_path, is_onboarded, is_staff,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOwner(row rowScanner) (*domain.Owner, error) {
	owner := &domain.Owner{}
	var createdAt, updatedAt string

	err := row.Scan(
		&owner.ID,
		&owner.Email,
		&owner.Name,
		&owner.Address,
		&owner.Phone,
		&owner.Phone2,
		&owner.NTNNumber,
		&owner.Bank,
		&owner.AccountTitle,
		&owner.IBAN,
		&owner.LogoPath,
		&owner.SignaturePath,
		&owner.IsOnboarded,
		&owner.IsStaff,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := scanTimestamps(createdAt, updatedAt, &owner.CreatedAt, &owner.UpdatedAt); err != nil {
		return nil, err
	}
	return owner, nil
}

// Create inserts a new owner into the database
func (r *OwnerRepo) Create(ctx context.Context, owner *domain.Owner) error {
	if err := owner.Validate(); err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}

	query := `
		INSERT INTO owners (
			email, name, address, phone, phone_2, ntn_number, bank,
			account_title, iban, logo_path, signature_path, is_onboarded, is_staff,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Querier(ctx).ExecContext(ctx, query,
		owner.Email,
		owner.Name,
		owner.Address,
		owner.Phone,
		owner.Phone2,
		owner.NTNNumber,
		owner.Bank,
		owner.AccountTitle,
		owner.IBAN,
		owner.LogoPath,
		owner.SignaturePath,
		owner.IsOnboarded,
		owner.IsStaff,
		owner.CreatedAt.Format(timeLayout),
		owner.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("owner %s already exists", owner.Email)
		}
		return fmt.Errorf("failed to create owner: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get owner ID: %w", err)
	}

	owner.ID = id
	return nil
}

// GetByID retrieves an owner by ID
func (r *OwnerRepo) GetByID(ctx context.Context, id int64) (*domain.Owner, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE id = ?`

	owner, err := scanOwner(r.db.Querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("owner", err)
	}
	return owner, nil
}

// GetByEmail retrieves an owner by email address (case-insensitive)
func (r *OwnerRepo) GetByEmail(ctx context.Context, email string) (*domain.Owner, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE email = ?`

	email = strings.ToLower(strings.TrimSpace(email))
	owner, err := scanOwner(r.db.Querier(ctx).QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, notFound("owner", err)
	}
	return owner, nil
}

// List retrieves all owners ordered by name
func (r *OwnerRepo) List(ctx context.Context) ([]*domain.Owner, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners ORDER BY name, id`

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	owners := make([]*domain.Owner, 0)
	for rows.Next() {
		owner, err := scanOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}

	return owners, nil
}

// Update updates an existing owner's profile
func (r *OwnerRepo) Update(ctx context.Context, owner *domain.Owner) error {
	if err := owner.Validate(); err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}

	query := `
		UPDATE owners
		SET name = ?, address = ?, phone = ?, phone_2 = ?, ntn_number = ?, bank = ?,
		    account_title = ?, iban = ?, logo_path = ?, signature_path = ?,
		    is_onboarded = ?, is_staff = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Querier(ctx).ExecContext(ctx, query,
		owner.Name,
		owner.Address,
		owner.Phone,
		owner.Phone2,
		owner.NTNNumber,
		owner.Bank,
		owner.AccountTitle,
		owner.IBAN,
		owner.LogoPath,
		owner.SignaturePath,
		owner.IsOnboarded,
		owner.IsStaff,
		owner.UpdatedAt.Format(timeLayout),
		owner.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update owner: %w", err)
	}

	return expectOne(result, "owner")
}

// Delete removes an owner together with its clients and invoices
func (r *OwnerRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Querier(ctx).ExecContext(ctx, `DELETE FROM owners WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete owner: %w", err)
	}
	return expectOne(result, "owner")
}
