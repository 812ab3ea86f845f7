package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/andy/invoicer/internal/domain"
)

// Transactor runs fn inside a single store transaction. *db.DB implements it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ErrNoActor is returned when a scoped operation is called without an owner
var ErrNoActor = errors.New("no acting owner: set owner.email in config or pass --as")

func requireActor(actor domain.Actor) error {
	if actor.OwnerID <= 0 {
		return ErrNoActor
	}
	return nil
}

// scoped hides rows outside the actor's scope behind ErrNotFound so callers
// cannot probe for their existence.
func scoped(actor domain.Actor, ownerID int64, what string, id int64) error {
	if !actor.CanAccess(ownerID) {
		return fmt.Errorf("%s %d not found: %w", what, id, domain.ErrNotFound)
	}
	return nil
}
