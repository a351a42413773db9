package appointment

import (
	"github.com/therapylink/clinic-scheduling/internal/identity"
)

// transitions lists the reachable target statuses per current status.
// completed and cancelled are terminal; delayed may still complete or cancel.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCompleted, StatusDelayed, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusDelayed, StatusCancelled},
	StatusDelayed:    {StatusCompleted, StatusCancelled},
}

func reachable(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AuthorizeTransition decides whether actor may move the appointment to
// target. Doctors act only on their own appointments; the single transition a
// patient may request is cancelling their own appointment; admins may drive
// any appointment. Reachability is checked first so a terminal state reports
// a transition error, not an authorization one.
func AuthorizeTransition(a *Appointment, target Status, actor identity.Actor) error {
	if !reachable(a.Status, target) {
		return &TransitionError{From: a.Status, To: target}
	}

	switch actor.Role {
	case identity.RoleAdmin:
		return nil
	case identity.RoleDoctor:
		if a.DoctorID != actor.ID {
			return &AuthorizationError{Actor: actor, Action: "manage another doctor's appointment"}
		}
		return nil
	case identity.RolePatient:
		if target != StatusCancelled {
			return &AuthorizationError{Actor: actor, Action: "set appointment status to " + string(target)}
		}
		if a.PatientID != actor.ID {
			return &AuthorizationError{Actor: actor, Action: "cancel another patient's appointment"}
		}
		return nil
	default:
		return &AuthorizationError{Actor: actor, Action: "transition appointments"}
	}
}
