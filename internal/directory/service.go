package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/therapylink/clinic-scheduling/internal/events"
	"github.com/therapylink/clinic-scheduling/internal/identity"
)

// AuthorizationError mirrors the scheduling taxonomy for approval actions.
type AuthorizationError struct {
	Actor identity.Actor
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %s may not approve accounts", e.Actor.Role)
}

type Service struct {
	store Store
	bus   *events.Bus
	log   *zap.Logger
}

func NewService(store Store, bus *events.Bus, log *zap.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) ListAdmins(ctx context.Context) ([]User, error) {
	return s.store.ListAdmins(ctx)
}

// RequestApproval announces a pending account so admin dashboards pick it up
// without polling.
func (s *Service) RequestApproval(ctx context.Context, userID uuid.UUID) (*User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.TypeUserApprovalRequested, u)
	s.log.Info("approval requested", zap.String("user_id", userID.String()))
	return u, nil
}

// Approve marks the account approved. Admin only.
func (s *Service) Approve(ctx context.Context, userID uuid.UUID, actor identity.Actor) (*User, error) {
	if actor.Role != identity.RoleAdmin {
		return nil, &AuthorizationError{Actor: actor}
	}

	u, err := s.store.SetApproved(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.TypeUserApproved, u)
	s.log.Info("user approved",
		zap.String("user_id", userID.String()),
		zap.String("approved_by", actor.ID.String()),
	)
	return u, nil
}
