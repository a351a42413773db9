package appointment

import (
	"errors"
	"fmt"

	"github.com/therapylink/clinic-scheduling/internal/identity"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrTherapyNotFound     = errors.New("therapy not found")
	ErrScheduleBusy        = errors.New("schedule is being modified, please retry")
)

// ValidationError rejects malformed input before any repository access.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictParty names whose calendar a booking collided with.
type ConflictParty string

const (
	ConflictDoctor  ConflictParty = "doctor"
	ConflictPatient ConflictParty = "patient"
)

// ConflictError reports an overlap with an existing non-cancelled
// appointment, carrying the offender so callers can offer alternate slots.
type ConflictError struct {
	Party    ConflictParty
	Existing *Appointment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already booked from %s to %s (appointment %s)",
		e.Party, e.Existing.StartTime.Format("15:04"), e.Existing.EndTime.Format("15:04"), e.Existing.ID)
}

// AuthorizationError rejects a request the actor's role does not permit.
type AuthorizationError struct {
	Actor  identity.Actor
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %s may not %s", e.Actor.Role, e.Action)
}

// TransitionError rejects a target status unreachable from the current one.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition appointment from %s to %s", e.From, e.To)
}
