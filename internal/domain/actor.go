package domain

// Actor is the acting owner identity used to scope reads and writes.
type Actor struct {
	OwnerID int64
	Email   string
	Staff   bool
}

// ActorFor builds the actor for an owner.
func ActorFor(o *Owner) Actor {
	return Actor{OwnerID: o.ID, Email: o.Email, Staff: o.IsStaff}
}

// CanAccess reports whether the actor may read or mutate rows owned by ownerID.
func (a Actor) CanAccess(ownerID int64) bool {
	return a.Staff || (a.OwnerID > 0 && a.OwnerID == ownerID)
}

// OwnerFilter returns the owner id to filter list queries by, or nil for staff.
func (a Actor) OwnerFilter() *int64 {
	if a.Staff {
		return nil
	}
	id := a.OwnerID
	return &id
}
