package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all appointment store interactions needed by the
// service. Writes that change conflict state run under the schedule lock held
// by the service; the repository itself needs only per-row atomicity.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindOverlapping returns non-cancelled appointments involving the doctor
	// or the patient whose [start, end) interval overlaps the given one.
	// excludeID skips the appointment being rescheduled; pass uuid.Nil
	// otherwise.
	FindOverlapping(ctx context.Context, doctorID, patientID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]Appointment, error)

	// ListForDoctorBetween returns non-cancelled appointments for the doctor
	// intersecting [from, to), ordered by start time. Feeds availability.
	ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	Create(ctx context.Context, a *Appointment) (*Appointment, error)

	// UpdateStatus moves id from one status to another, compare-and-swap
	// style; ErrAppointmentNotFound if the row is gone or no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error)
	UpdateOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) (*Appointment, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// FindOverdueScheduled returns scheduled appointments whose start passed
	// before the cutoff. Used by the overdue worker.
	FindOverdueScheduled(ctx context.Context, cutoff time.Time) ([]Appointment, error)
}
