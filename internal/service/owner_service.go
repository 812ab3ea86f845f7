package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/logger"
	"github.com/andy/invoicer/internal/repository"
)

// OwnerService manages invoice owners and resolves the acting owner
type OwnerService interface {
	// Register creates a new owner. The first owner registered becomes staff.
	Register(ctx context.Context, email, name string) (*domain.Owner, error)

	Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Owner, error)
	GetByEmail(ctx context.Context, email string) (*domain.Owner, error)

	// List returns every owner for staff, otherwise only the actor
	List(ctx context.Context, actor domain.Actor) ([]*domain.Owner, error)

	// Update applies a profile patch and marks the owner onboarded
	Update(ctx context.Context, actor domain.Actor, id int64, patch domain.OwnerPatch) (*domain.Owner, error)

	// SetStaff grants or revokes global visibility. Staff only.
	SetStaff(ctx context.Context, actor domain.Actor, id int64, staff bool) error

	// Delete removes an owner and everything it owns
	Delete(ctx context.Context, actor domain.Actor, id int64) error

	// ResolveActor maps an owner email to the acting identity
	ResolveActor(ctx context.Context, email string) (domain.Actor, error)
}

type ownerService struct {
	tx        Transactor
	ownerRepo repository.OwnerRepository
	log       *logger.Logger
}

// NewOwnerService creates a new owner service
func NewOwnerService(tx Transactor, ownerRepo repository.OwnerRepository, log *logger.Logger) OwnerService {
	return &ownerService{tx: tx, ownerRepo: ownerRepo, log: log}
}

func (s *ownerService) Register(ctx context.Context, email, name string) (*domain.Owner, error) {
	owner := domain.NewOwner(email, name)
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.ownerRepo.List(ctx)
		if err != nil {
			return err
		}
		owner.IsStaff = len(existing) == 0
		return s.ownerRepo.Create(ctx, owner)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("owner registered", "owner_id", owner.ID, "staff", owner.IsStaff)
	return owner, nil
}

func (s *ownerService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Owner, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := scoped(actor, id, "owner", id); err != nil {
		return nil, err
	}
	return s.ownerRepo.GetByID(ctx, id)
}

func (s *ownerService) GetByEmail(ctx context.Context, email string) (*domain.Owner, error) {
	return s.ownerRepo.GetByEmail(ctx, email)
}

func (s *ownerService) List(ctx context.Context, actor domain.Actor) ([]*domain.Owner, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.Staff {
		owner, err := s.ownerRepo.GetByID(ctx, actor.OwnerID)
		if err != nil {
			return nil, err
		}
		return []*domain.Owner{owner}, nil
	}
	return s.ownerRepo.List(ctx)
}

func (s *ownerService) Update(ctx context.Context, actor domain.Actor, id int64, patch domain.OwnerPatch) (*domain.Owner, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var owner *domain.Owner
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if owner, err = s.Get(ctx, actor, id); err != nil {
			return err
		}
		if err := patch.Apply(owner); err != nil {
			return err
		}
		return s.ownerRepo.Update(ctx, owner)
	})
	if err != nil {
		return nil, err
	}
	return owner, nil
}

func (s *ownerService) SetStaff(ctx context.Context, actor domain.Actor, id int64, staff bool) error {
	if !actor.Staff {
		return fmt.Errorf("owner %d not found: %w", id, domain.ErrNotFound)
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		owner, err := s.ownerRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		owner.IsStaff = staff
		return s.ownerRepo.Update(ctx, owner)
	})
}

func (s *ownerService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, actor, id); err != nil {
			return err
		}
		return s.ownerRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Warn("owner deleted with all clients and invoices", "owner_id", id)
	return nil
}

func (s *ownerService) ResolveActor(ctx context.Context, email string) (domain.Actor, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Actor{}, ErrNoActor
	}
	owner, err := s.ownerRepo.GetByEmail(ctx, email)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("acting owner %s: %w", email, err)
	}
	return domain.ActorFor(owner), nil
}
