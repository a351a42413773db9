// Package directory is the narrow interface to the user store. The
// scheduling core resolves references for display and existence checks and
// drives the account approval flow the admin dashboard listens on.
package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/therapylink/clinic-scheduling/internal/identity"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Role      identity.Role `json:"role"`
	Specialty *string       `json:"specialty,omitempty"`
	Approved  bool          `json:"approved"`
}

type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListAdmins(ctx context.Context) ([]User, error)
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) (*User, error)
}
