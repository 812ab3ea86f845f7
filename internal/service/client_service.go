package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/logger"
	"github.com/andy/invoicer/internal/repository"
)

// ClientService manages an owner's clients
type ClientService interface {
	Create(ctx context.Context, actor domain.Actor, client *domain.Client) error
	Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Client, error)

	// Find resolves a client by numeric ID or by name within the actor's clients
	Find(ctx context.Context, actor domain.Actor, idOrName string) (*domain.Client, error)

	List(ctx context.Context, actor domain.Actor, includeArchived bool) ([]*domain.Client, error)
	Update(ctx context.Context, actor domain.Actor, id int64, patch domain.ClientPatch) (*domain.Client, error)
	Archive(ctx context.Context, actor domain.Actor, id int64) error
	Unarchive(ctx context.Context, actor domain.Actor, id int64) error

	// Delete removes a client together with its invoices
	Delete(ctx context.Context, actor domain.Actor, id int64) error
}

type clientService struct {
	tx         Transactor
	clientRepo repository.ClientRepository
	log        *logger.Logger
}

// NewClientService creates a new client service
func NewClientService(tx Transactor, clientRepo repository.ClientRepository, log *logger.Logger) ClientService {
	return &clientService{tx: tx, clientRepo: clientRepo, log: log}
}

func (s *clientService) Create(ctx context.Context, actor domain.Actor, client *domain.Client) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	// Only staff may file a client under another owner
	if client.OwnerID == 0 || !actor.Staff {
		client.OwnerID = actor.OwnerID
	}
	if err := client.Validate(); err != nil {
		return err
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return err
	}

	s.log.Info("client created", "client_id", client.ID, "owner_id", client.OwnerID)
	return nil
}

func (s *clientService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Client, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := scoped(actor, client.OwnerID, "client", id); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) Find(ctx context.Context, actor domain.Actor, idOrName string) (*domain.Client, error) {
	idOrName = strings.TrimSpace(idOrName)
	if id, err := strconv.ParseInt(idOrName, 10, 64); err == nil {
		client, err := s.Get(ctx, actor, id)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return client, err
		}
		// Fall through: a client may be named with digits only
	}

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.clientRepo.GetByName(ctx, actor.OwnerID, idOrName)
}

func (s *clientService) List(ctx context.Context, actor domain.Actor, includeArchived bool) ([]*domain.Client, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.clientRepo.List(ctx, actor.OwnerFilter(), includeArchived)
}

func (s *clientService) Update(ctx context.Context, actor domain.Actor, id int64, patch domain.ClientPatch) (*domain.Client, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var client *domain.Client
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if client, err = s.Get(ctx, actor, id); err != nil {
			return err
		}
		if err := patch.Apply(client); err != nil {
			return err
		}
		return s.clientRepo.Update(ctx, client)
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) Archive(ctx context.Context, actor domain.Actor, id int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, actor, id); err != nil {
			return err
		}
		return s.clientRepo.Archive(ctx, id)
	})
}

func (s *clientService) Unarchive(ctx context.Context, actor domain.Actor, id int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, actor, id); err != nil {
			return err
		}
		return s.clientRepo.Unarchive(ctx, id)
	})
}

func (s *clientService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.Get(ctx, actor, id); err != nil {
			return err
		}
		return s.clientRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("client deleted", "client_id", id)
	return nil
}
