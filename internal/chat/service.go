package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/therapylink/clinic-scheduling/internal/directory"
	"github.com/therapylink/clinic-scheduling/internal/events"
	"github.com/therapylink/clinic-scheduling/internal/identity"
	"github.com/therapylink/clinic-scheduling/internal/observability/metrics"
)

// ValidationError rejects malformed chat input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// AuthorizationError rejects chat access by a non-participant.
type AuthorizationError struct {
	UserID uuid.UUID
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %s is not a participant of this thread", e.UserID)
}

// MessageCreated is the event payload for message.created.
type MessageCreated struct {
	ThreadID uuid.UUID `json:"thread_id"`
	Message  Message   `json:"message"`
}

type Service struct {
	repo    Repository
	users   directory.Store
	bus     *events.Bus
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(repo Repository, users directory.Store, bus *events.Bus, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, users: users, bus: bus, log: log, metrics: m}
}

// ResolveOrCreateThread lazily materializes the conversation for a
// participant set. Resolution is by set equality, so the same parties always
// land in the same thread regardless of who opened it.
func (s *Service) ResolveOrCreateThread(ctx context.Context, participants []uuid.UUID, actor identity.Actor) (*Thread, error) {
	if len(dedupe(participants)) < 2 {
		return nil, &ValidationError{Msg: "a thread needs at least two distinct participants"}
	}

	thread, err := s.repo.ResolveOrCreate(ctx, participants)
	if err != nil {
		return nil, err
	}

	if actor.Role != identity.RoleAdmin && !thread.HasParticipant(actor.ID) {
		return nil, &AuthorizationError{UserID: actor.ID}
	}
	return thread, nil
}

// ResolveDoctorAdminRoom resolves the doctor's room with the current admin
// set. The set is captured at creation time; admins joining later only
// appear in rooms resolved after their arrival.
func (s *Service) ResolveDoctorAdminRoom(ctx context.Context, doctorID uuid.UUID, actor identity.Actor) (*Thread, error) {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		return nil, &ValidationError{Msg: "no admins to open a room with"}
	}

	participants := make([]uuid.UUID, 0, len(admins)+1)
	participants = append(participants, doctorID)
	for _, a := range admins {
		participants = append(participants, a.ID)
	}

	return s.ResolveOrCreateThread(ctx, participants, actor)
}

// AppendMessage validates, appends, and announces the message. The publish is
// best-effort: the send succeeds even with zero dashboards listening.
func (s *Service) AppendMessage(ctx context.Context, threadID, senderID uuid.UUID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Msg: "message text must not be empty"}
	}

	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.HasParticipant(senderID) {
		return nil, &AuthorizationError{UserID: senderID}
	}

	msg, err := s.repo.AppendMessage(ctx, threadID, senderID, text)
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(events.TypeMessageCreated, MessageCreated{ThreadID: threadID, Message: *msg})
		if s.metrics != nil {
			s.metrics.EventsPublished.WithLabelValues(string(events.TypeMessageCreated)).Inc()
		}
	}
	if s.metrics != nil {
		s.metrics.ChatMessagesSent.Inc()
	}
	s.log.Debug("message appended",
		zap.String("thread_id", threadID.String()),
		zap.String("sender_id", senderID.String()),
	)

	return msg, nil
}

// GetThread returns the thread with its messages, participant-scoped.
func (s *Service) GetThread(ctx context.Context, threadID uuid.UUID, actor identity.Actor) (*Thread, error) {
	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if actor.Role != identity.RoleAdmin && !thread.HasParticipant(actor.ID) {
		return nil, &AuthorizationError{UserID: actor.ID}
	}

	msgs, err := s.repo.ListMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	thread.Messages = msgs
	return thread, nil
}

func (s *Service) ListThreadsForUser(ctx context.Context, userID uuid.UUID, actor identity.Actor) ([]Thread, error) {
	if actor.Role != identity.RoleAdmin && actor.ID != userID {
		return nil, &AuthorizationError{UserID: actor.ID}
	}
	return s.repo.ListThreadsForUser(ctx, userID)
}
