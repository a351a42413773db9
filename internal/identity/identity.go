// Package identity defines the actor model the scheduling core trusts. Roles
// are resolved by the upstream auth gateway; the core never re-derives them.
package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated subject of a request.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

var ErrUnauthenticated = errors.New("request carries no valid identity")

// Authority resolves the actor behind an incoming request.
type Authority interface {
	ActorFromRequest(r *http.Request) (Actor, error)
}

// HeaderAuthority trusts identity headers injected by the auth gateway in
// front of this service. Requests reaching the core directly without those
// headers are rejected.
type HeaderAuthority struct {
	UserHeader string
	RoleHeader string
}

func NewHeaderAuthority() *HeaderAuthority {
	return &HeaderAuthority{
		UserHeader: "X-User-ID",
		RoleHeader: "X-User-Role",
	}
}

func (a *HeaderAuthority) ActorFromRequest(r *http.Request) (Actor, error) {
	id, err := uuid.Parse(r.Header.Get(a.UserHeader))
	if err != nil {
		return Actor{}, ErrUnauthenticated
	}

	role := Role(r.Header.Get(a.RoleHeader))
	if !role.Valid() {
		return Actor{}, ErrUnauthenticated
	}

	return Actor{ID: id, Role: role}, nil
}
