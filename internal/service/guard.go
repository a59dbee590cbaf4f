package service

import (
	"github.com/forgo/fete/api/internal/model"
)

// Access distinguishes reads from mutations when authorizing
type Access int

const (
	AccessRead Access = iota
	AccessWrite
)

// Resource describes what a caller is trying to touch
type Resource struct {
	Kind         string
	OwnerID      string
	RequiredRole model.Role
	Access       Access
}

// Guard is the single place role and ownership rules are decided.
// Role is checked before ownership. Admins may read owner-scoped
// collections but never mutate on someone else's behalf.
type Guard struct{}

// NewGuard creates a new guard
func NewGuard() *Guard {
	return &Guard{}
}

// HasRole reports whether the identity holds role
func (g *Guard) HasRole(identity *model.Identity, role model.Role) bool {
	return identity != nil && identity.HasRole(role)
}

// IsOwner reports whether the identity is the owner recorded on a resource
func (g *Guard) IsOwner(identity *model.Identity, ownerID string) bool {
	return identity != nil && ownerID != "" && identity.ID == ownerID
}

// Authorize applies the role then ownership rules to res. An admin passes
// every AccessRead check before either rule runs, so a read gated on
// RequiredRole still admits admins; AccessWrite never does.
func (g *Guard) Authorize(identity *model.Identity, res Resource) error {
	if identity == nil {
		return ErrNotAuthenticated
	}

	if res.Access == AccessRead && identity.IsAdmin() {
		return nil
	}

	if res.RequiredRole != "" && !identity.HasRole(res.RequiredRole) {
		return ErrWrongRole
	}

	if res.OwnerID != "" && !g.IsOwner(identity, res.OwnerID) {
		return ErrNotOwner
	}

	return nil
}

// RequireRole is Authorize without an ownership component
func (g *Guard) RequireRole(identity *model.Identity, role model.Role) error {
	return g.Authorize(identity, Resource{RequiredRole: role, Access: AccessWrite})
}
