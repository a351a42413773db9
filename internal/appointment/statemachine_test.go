package appointment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapylink/clinic-scheduling/internal/identity"
)

func TestAuthorizeTransitionTable(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()

	appt := func(status Status) *Appointment {
		return &Appointment{ID: uuid.New(), DoctorID: doctorID, PatientID: patientID, Status: status}
	}

	doctor := identity.Actor{ID: doctorID, Role: identity.RoleDoctor}
	patient := identity.Actor{ID: patientID, Role: identity.RolePatient}
	admin := identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin}

	tests := []struct {
		name    string
		appt    *Appointment
		target  Status
		actor   identity.Actor
		wantErr any // nil, *TransitionError, or *AuthorizationError
	}{
		{"doctor starts session", appt(StatusScheduled), StatusInProgress, doctor, nil},
		{"admin starts session", appt(StatusScheduled), StatusInProgress, admin, nil},
		{"doctor completes from scheduled", appt(StatusScheduled), StatusCompleted, doctor, nil},
		{"doctor completes from in_progress", appt(StatusInProgress), StatusCompleted, doctor, nil},
		{"doctor delays", appt(StatusInProgress), StatusDelayed, doctor, nil},
		{"delayed may complete", appt(StatusDelayed), StatusCompleted, admin, nil},
		{"delayed may cancel", appt(StatusDelayed), StatusCancelled, admin, nil},
		{"patient cancels own", appt(StatusScheduled), StatusCancelled, patient, nil},
		{"patient cancels own in_progress", appt(StatusInProgress), StatusCancelled, patient, nil},

		{"patient cannot start", appt(StatusScheduled), StatusInProgress, patient, &AuthorizationError{}},
		{"patient cannot complete", appt(StatusInProgress), StatusCompleted, patient, &AuthorizationError{}},
		{"patient cannot delay", appt(StatusScheduled), StatusDelayed, patient, &AuthorizationError{}},
		{
			"patient cannot cancel someone else's",
			&Appointment{ID: uuid.New(), DoctorID: doctorID, PatientID: uuid.New(), Status: StatusScheduled},
			StatusCancelled, patient, &AuthorizationError{},
		},
		{
			"doctor cannot manage another doctor's",
			&Appointment{ID: uuid.New(), DoctorID: uuid.New(), PatientID: patientID, Status: StatusScheduled},
			StatusInProgress, doctor, &AuthorizationError{},
		},

		{"completed is terminal", appt(StatusCompleted), StatusInProgress, admin, &TransitionError{}},
		{"completed cannot cancel", appt(StatusCompleted), StatusCancelled, admin, &TransitionError{}},
		{"cancelled is terminal", appt(StatusCancelled), StatusScheduled, admin, &TransitionError{}},
		{"delayed cannot restart", appt(StatusDelayed), StatusInProgress, admin, &TransitionError{}},
		{"no self transition", appt(StatusScheduled), StatusScheduled, admin, &TransitionError{}},
		{
			// Terminal state wins over role: report unreachable, not forbidden.
			"patient on completed gets transition error",
			appt(StatusCompleted), StatusCancelled, patient, &TransitionError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeTransition(tt.appt, tt.target, tt.actor)

			switch want := tt.wantErr.(type) {
			case nil:
				require.NoError(t, err)
			case *AuthorizationError:
				var authz *AuthorizationError
				require.ErrorAs(t, err, &authz)
				_ = want
			case *TransitionError:
				var transition *TransitionError
				require.ErrorAs(t, err, &transition)
				_ = want
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusScheduled.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.False(t, StatusDelayed.Terminal())
}
