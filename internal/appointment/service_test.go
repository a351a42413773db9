package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapylink/clinic-scheduling/internal/catalog"
	"github.com/therapylink/clinic-scheduling/internal/directory"
	"github.com/therapylink/clinic-scheduling/internal/events"
	"github.com/therapylink/clinic-scheduling/internal/identity"
	redisclient "github.com/therapylink/clinic-scheduling/internal/redis"
)

type fixture struct {
	svc     *Service
	bus     *events.Bus
	therapy uuid.UUID

	doctor   identity.Actor
	doctor2  identity.Actor
	patient  identity.Actor
	patient2 identity.Actor
	admin    identity.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := directory.NewMemoryStore()
	therapies := catalog.NewMemoryCatalog()
	bus := events.NewBus(64)

	f := &fixture{
		bus:      bus,
		therapy:  uuid.New(),
		doctor:   identity.Actor{ID: uuid.New(), Role: identity.RoleDoctor},
		doctor2:  identity.Actor{ID: uuid.New(), Role: identity.RoleDoctor},
		patient:  identity.Actor{ID: uuid.New(), Role: identity.RolePatient},
		patient2: identity.Actor{ID: uuid.New(), Role: identity.RolePatient},
		admin:    identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin},
	}

	users.Put(directory.User{ID: f.doctor.ID, Name: "Dr. A", Role: identity.RoleDoctor, Approved: true})
	users.Put(directory.User{ID: f.doctor2.ID, Name: "Dr. B", Role: identity.RoleDoctor, Approved: true})
	users.Put(directory.User{ID: f.patient.ID, Name: "Pat One", Role: identity.RolePatient, Approved: true})
	users.Put(directory.User{ID: f.patient2.ID, Name: "Pat Two", Role: identity.RolePatient, Approved: true})
	users.Put(directory.User{ID: f.admin.ID, Name: "Admin", Role: identity.RoleAdmin, Approved: true})
	therapies.Put(catalog.Therapy{ID: f.therapy, Name: "Physiotherapy", Duration: time.Hour})

	f.svc = NewService(ServiceParams{
		Repo:     NewMemoryRepository(),
		Locker:   redisclient.NewLocalLocker(),
		Bus:      bus,
		Users:    users,
		Catalog:  therapies,
		ClinicTZ: time.UTC,
	})
	return f
}

func day(hour, min int) time.Time {
	return time.Date(2025, time.June, 2, hour, min, 0, 0, time.UTC)
}

func (f *fixture) book(t *testing.T, doctor, patient identity.Actor, start, end time.Time) *Appointment {
	t.Helper()
	appt, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		TherapyID: f.therapy,
		StartTime: start,
		EndTime:   end,
	}, f.admin)
	require.NoError(t, err)
	return appt
}

func TestBookCreatesScheduledAppointment(t *testing.T) {
	f := newFixture(t)

	appt := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, f.doctor.ID, appt.DoctorID)
	assert.Equal(t, f.patient.ID, appt.PatientID)
	assert.NotEqual(t, uuid.Nil, appt.ID)
}

func TestBookDerivesEndTimeFromTherapyDuration(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		TherapyID: f.therapy,
		StartTime: day(9, 0),
	}, f.admin)

	require.NoError(t, err)
	assert.Equal(t, day(10, 0), appt.EndTime)
}

func TestBookRejectsInvalidInterval(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		TherapyID: f.therapy,
		StartTime: day(10, 0),
		EndTime:   day(9, 0),
	}, f.admin)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestBookRejectsDoctorConflict(t *testing.T) {
	f := newFixture(t)
	existing := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patient2.ID,
		DoctorID:  f.doctor.ID,
		TherapyID: f.therapy,
		StartTime: day(9, 30),
		EndTime:   day(10, 30),
	}, f.admin)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ConflictDoctor, conflict.Party)
	assert.Equal(t, existing.ID, conflict.Existing.ID)
}

func TestBookRejectsPatientConflict(t *testing.T) {
	f := newFixture(t)
	existing := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor2.ID,
		TherapyID: f.therapy,
		StartTime: day(9, 30),
		EndTime:   day(10, 30),
	}, f.admin)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ConflictPatient, conflict.Party)
	assert.Equal(t, existing.ID, conflict.Existing.ID)
}

func TestBookDisjointPartiesSucceeds(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	// Different doctor, different patient, overlapping time: fine.
	f.book(t, f.doctor2, f.patient2, day(9, 30), day(10, 30))
}

func TestBackToBackBookingsSucceed(t *testing.T) {
	f := newFixture(t)

	f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))
	f.book(t, f.doctor, f.patient2, day(10, 0), day(11, 0))
}

func TestCancelledSlotIsRebookable(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	_, err := f.svc.Transition(context.Background(), appt.ID, StatusCancelled, f.patient)
	require.NoError(t, err)

	f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))
}

func TestBookAuthorization(t *testing.T) {
	f := newFixture(t)

	// A patient may only book for themselves.
	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patient2.ID,
		DoctorID:  f.doctor.ID,
		TherapyID: f.therapy,
		StartTime: day(9, 0),
		EndTime:   day(10, 0),
	}, f.patient)
	var authz *AuthorizationError
	require.ErrorAs(t, err, &authz)

	// A doctor may only book onto their own calendar.
	_, err = f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor2.ID,
		TherapyID: f.therapy,
		StartTime: day(9, 0),
		EndTime:   day(10, 0),
	}, f.doctor)
	require.ErrorAs(t, err, &authz)
}

func TestBookUnknownReferences(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: uuid.New(),
		DoctorID:  f.doctor.ID,
		TherapyID: f.therapy,
		StartTime: day(9, 0),
		EndTime:   day(10, 0),
	}, f.admin)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patient.ID,
		DoctorID:  f.doctor.ID,
		TherapyID: uuid.New(),
		StartTime: day(9, 0),
		EndTime:   day(10, 0),
	}, f.admin)
	require.ErrorIs(t, err, ErrTherapyNotFound)
}

func TestBookRejectsRoleMismatch(t *testing.T) {
	f := newFixture(t)

	// Doctor in the patient seat.
	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.doctor2.ID,
		DoctorID:  f.doctor.ID,
		TherapyID: f.therapy,
		StartTime: day(9, 0),
		EndTime:   day(10, 0),
	}, f.admin)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestTransitionPublishesUpdate(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	sub := f.bus.Subscribe()
	defer sub.Close()

	updated, err := f.svc.Transition(context.Background(), appt.ID, StatusInProgress, f.doctor)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, updated.Status)

	ev := <-sub.C
	assert.Equal(t, events.TypeAppointmentUpdated, ev.Type)
	payload, ok := ev.Payload.(*Appointment)
	require.True(t, ok)
	assert.Equal(t, appt.ID, payload.ID)
}

func TestTransitionTerminalRejected(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	_, err := f.svc.Transition(context.Background(), appt.ID, StatusCompleted, f.doctor)
	require.NoError(t, err)

	for _, target := range []Status{StatusScheduled, StatusInProgress, StatusCancelled, StatusDelayed} {
		_, err := f.svc.Transition(context.Background(), appt.ID, target, f.admin)
		var transition *TransitionError
		require.ErrorAs(t, err, &transition, "target %s", target)
	}
}

func TestTransitionUnknownStatus(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	_, err := f.svc.Transition(context.Background(), appt.ID, Status("postponed"), f.admin)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestRescheduleConflictLeavesAppointmentUnchanged(t *testing.T) {
	f := newFixture(t)
	f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))
	target := f.book(t, f.doctor, f.patient2, day(11, 0), day(12, 0))

	_, err := f.svc.Reschedule(context.Background(), target.ID, day(9, 30), day(10, 30), f.doctor)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	unchanged, err := f.svc.Get(context.Background(), target.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, day(11, 0), unchanged.StartTime)
	assert.Equal(t, day(12, 0), unchanged.EndTime)
}

func TestRescheduleExcludesOwnInterval(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	// Shifting within the original window must not conflict with itself.
	updated, err := f.svc.Reschedule(context.Background(), appt.ID, day(9, 30), day(10, 30), f.doctor)
	require.NoError(t, err)
	assert.Equal(t, day(9, 30), updated.StartTime)
}

func TestRecordOutcomeBounds(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	bad := 11
	_, err := f.svc.RecordOutcome(context.Background(), appt.ID, Outcome{Rating: &bad}, f.doctor)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	rating, pain := 8, 3
	updated, err := f.svc.RecordOutcome(context.Background(), appt.ID, Outcome{
		Rating:    &rating,
		PainLevel: &pain,
		Symptoms:  []string{"stiffness"},
	}, f.doctor)
	require.NoError(t, err)
	assert.Equal(t, 8, *updated.Outcome.Rating)
	assert.Equal(t, []string{"stiffness"}, updated.Outcome.Symptoms)

	// Patients never record outcomes.
	_, err = f.svc.RecordOutcome(context.Background(), appt.ID, Outcome{Rating: &rating}, f.patient)
	var authz *AuthorizationError
	require.ErrorAs(t, err, &authz)
}

func TestAvailableSlotsFullAndPartialDay(t *testing.T) {
	f := newFixture(t)
	date := day(0, 0)

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctor.ID, date)
	require.NoError(t, err)
	require.Len(t, slots, 9)

	f.book(t, f.doctor, f.patient, day(10, 0), day(11, 0))

	slots, err = f.svc.AvailableSlots(context.Background(), f.doctor.ID, date)
	require.NoError(t, err)
	require.Len(t, slots, 8)
	for _, s := range slots {
		assert.False(t, s.Start.Equal(day(10, 0)), "booked slot must be omitted")
	}
}

func TestAvailableSlotsIgnoresCancelled(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, f.doctor, f.patient, day(10, 0), day(11, 0))

	_, err := f.svc.Transition(context.Background(), appt.ID, StatusCancelled, f.admin)
	require.NoError(t, err)

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctor.ID, day(0, 0))
	require.NoError(t, err)
	assert.Len(t, slots, 9)
}

func TestGetScoping(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	_, err := f.svc.Get(context.Background(), appt.ID, f.patient)
	require.NoError(t, err)
	_, err = f.svc.Get(context.Background(), appt.ID, f.doctor)
	require.NoError(t, err)
	_, err = f.svc.Get(context.Background(), appt.ID, f.admin)
	require.NoError(t, err)

	var authz *AuthorizationError
	_, err = f.svc.Get(context.Background(), appt.ID, f.patient2)
	require.ErrorAs(t, err, &authz)
	_, err = f.svc.Get(context.Background(), appt.ID, f.doctor2)
	require.ErrorAs(t, err, &authz)
}

func TestDeleteIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))

	var authz *AuthorizationError
	require.ErrorAs(t, f.svc.Delete(context.Background(), appt.ID, f.doctor), &authz)
	require.ErrorAs(t, f.svc.Delete(context.Background(), appt.ID, f.patient), &authz)

	require.NoError(t, f.svc.Delete(context.Background(), appt.ID, f.admin))
	_, err := f.svc.Get(context.Background(), appt.ID, f.admin)
	require.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestMarkOverdueDelayed(t *testing.T) {
	f := newFixture(t)

	overdue := f.book(t, f.doctor, f.patient, day(9, 0), day(10, 0))
	inProgress := f.book(t, f.doctor, f.patient2, day(10, 0), day(11, 0))
	_, err := f.svc.Transition(context.Background(), inProgress.ID, StatusInProgress, f.doctor)
	require.NoError(t, err)
	future := f.book(t, f.doctor2, f.patient, day(12, 0), day(13, 0))

	// Sweep at 11:00 with a 30-minute grace: only the 09:00 scheduled
	// appointment qualifies.
	marked, err := f.svc.MarkOverdueDelayed(context.Background(), day(11, 0), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	got, err := f.svc.Get(context.Background(), overdue.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, StatusDelayed, got.Status)

	got, err = f.svc.Get(context.Background(), inProgress.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status, "in_progress is not swept")

	got, err = f.svc.Get(context.Background(), future.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status, "future appointment untouched")
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
	f := newFixture(t)

	const attempts = 16
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		go func() {
			_, err := f.svc.Book(context.Background(), BookingRequest{
				PatientID: f.patient.ID,
				DoctorID:  f.doctor.ID,
				TherapyID: f.therapy,
				StartTime: day(9, 0),
				EndTime:   day(10, 0),
			}, f.admin)
			errs <- err
		}()
	}

	wins := 0
	for i := 0; i < attempts; i++ {
		if err := <-errs; err == nil {
			wins++
		} else {
			var conflict *ConflictError
			require.ErrorAs(t, err, &conflict)
		}
	}
	assert.Equal(t, 1, wins)
}
