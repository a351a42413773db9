package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/therapylink/clinic-scheduling/internal/catalog"
	"github.com/therapylink/clinic-scheduling/internal/directory"
	"github.com/therapylink/clinic-scheduling/internal/events"
	"github.com/therapylink/clinic-scheduling/internal/identity"
	"github.com/therapylink/clinic-scheduling/internal/observability/metrics"
	redisclient "github.com/therapylink/clinic-scheduling/internal/redis"
	"github.com/therapylink/clinic-scheduling/internal/schedule"
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	bus      *events.Bus
	users    directory.Store
	catalog  catalog.Catalog
	clinicTZ *time.Location
	log      *zap.Logger
	metrics  *metrics.Metrics
}

type ServiceParams struct {
	Repo     Repository
	Locker   redisclient.Locker
	Bus      *events.Bus
	Users    directory.Store
	Catalog  catalog.Catalog
	ClinicTZ *time.Location
	Logger   *zap.Logger
	Metrics  *metrics.Metrics // optional
}

func NewService(p ServiceParams) *Service {
	if p.ClinicTZ == nil {
		p.ClinicTZ = time.UTC
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &Service{
		repo:     p.Repo,
		locker:   p.Locker,
		bus:      p.Bus,
		users:    p.Users,
		catalog:  p.Catalog,
		clinicTZ: p.ClinicTZ,
		log:      p.Logger,
		metrics:  p.Metrics,
	}
}

type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	TherapyID uuid.UUID
	StartTime time.Time
	EndTime   time.Time // zero means derive from therapy duration
	Notes     string
}

// Book reserves a session. The overlap check and the insert run inside one
// schedule lock spanning both the doctor's and the patient's calendar, so two
// concurrent requests for the same slot cannot both pass the check.
func (s *Service) Book(ctx context.Context, req BookingRequest, actor identity.Actor) (*Appointment, error) {
	if err := s.authorizeBooking(req, actor); err != nil {
		return nil, err
	}

	patient, err := s.users.GetUser(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return nil, fmt.Errorf("patient: %w", ErrUserNotFound)
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if patient.Role != identity.RolePatient {
		return nil, validationf("user %s is not a patient", req.PatientID)
	}

	doctor, err := s.users.GetUser(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return nil, fmt.Errorf("doctor: %w", ErrUserNotFound)
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.Role != identity.RoleDoctor {
		return nil, validationf("user %s is not a doctor", req.DoctorID)
	}

	therapy, err := s.catalog.GetTherapy(ctx, req.TherapyID)
	if err != nil {
		if errors.Is(err, catalog.ErrTherapyNotFound) {
			return nil, ErrTherapyNotFound
		}
		return nil, fmt.Errorf("load therapy: %w", err)
	}

	// Caller-supplied end time is authoritative; the therapy duration only
	// fills the gap when it is omitted.
	if req.EndTime.IsZero() {
		req.EndTime = req.StartTime.Add(therapy.Duration)
	}
	iv := schedule.Interval{Start: req.StartTime, End: req.EndTime}
	if err := iv.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	var created *Appointment
	start := time.Now()

	err = s.locker.WithScheduleLock(ctx, []uuid.UUID{req.DoctorID, req.PatientID}, func(lockCtx context.Context) error {
		if err := s.checkConflict(lockCtx, req.DoctorID, req.PatientID, iv, uuid.Nil); err != nil {
			return err
		}

		appt, err := s.repo.Create(lockCtx, &Appointment{
			PatientID: req.PatientID,
			DoctorID:  req.DoctorID,
			TherapyID: req.TherapyID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Notes:     strings.TrimSpace(req.Notes),
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		var conflict *ConflictError
		if errors.As(err, &conflict) && s.metrics != nil {
			s.metrics.BookingConflicts.WithLabelValues(string(conflict.Party)).Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
		s.metrics.BookingDuration.Observe(time.Since(start).Seconds())
	}
	s.publish(events.TypeAppointmentCreated, created)
	s.log.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("doctor_id", created.DoctorID.String()),
		zap.String("patient_id", created.PatientID.String()),
		zap.Time("start", created.StartTime),
	)

	return created, nil
}

func (s *Service) authorizeBooking(req BookingRequest, actor identity.Actor) error {
	switch actor.Role {
	case identity.RoleAdmin:
		return nil
	case identity.RoleDoctor:
		if req.DoctorID != actor.ID {
			return &AuthorizationError{Actor: actor, Action: "book for another doctor"}
		}
		return nil
	case identity.RolePatient:
		if req.PatientID != actor.ID {
			return &AuthorizationError{Actor: actor, Action: "book for another patient"}
		}
		return nil
	default:
		return &AuthorizationError{Actor: actor, Action: "book appointments"}
	}
}

// checkConflict scans non-cancelled appointments on either calendar for a
// half-open overlap and reports the first offender with the party whose
// calendar it sits on.
func (s *Service) checkConflict(ctx context.Context, doctorID, patientID uuid.UUID, iv schedule.Interval, excludeID uuid.UUID) error {
	overlapping, err := s.repo.FindOverlapping(ctx, doctorID, patientID, iv.Start, iv.End, excludeID)
	if err != nil {
		return fmt.Errorf("find overlapping appointments: %w", err)
	}
	if len(overlapping) == 0 {
		return nil
	}

	existing := overlapping[0]
	party := ConflictPatient
	if existing.DoctorID == doctorID {
		party = ConflictDoctor
	}
	return &ConflictError{Party: party, Existing: &existing}
}

// Transition moves the appointment to target if the state machine and the
// actor's role allow it. The status update is compare-and-swap, so a
// concurrent transition that wins the race surfaces as a transition error.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target Status, actor identity.Actor) (*Appointment, error) {
	if !target.Valid() {
		return nil, validationf("unknown status %q", target)
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := AuthorizeTransition(appt, target, actor); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, target)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, &TransitionError{From: appt.Status, To: target}
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(string(target)).Inc()
	}
	s.publish(events.TypeAppointmentUpdated, updated)
	s.log.Info("appointment transitioned",
		zap.String("appointment_id", id.String()),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(target)),
		zap.String("actor_role", string(actor.Role)),
	)

	return updated, nil
}

// Reschedule changes the time fields, re-running the conflict check with the
// appointment's own id excluded. A rejection leaves the appointment unchanged.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time, actor identity.Actor) (*Appointment, error) {
	iv := schedule.Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeMutation(appt, actor, "reschedule appointments"); err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, &TransitionError{From: appt.Status, To: appt.Status}
	}

	var updated *Appointment
	err = s.locker.WithScheduleLock(ctx, []uuid.UUID{appt.DoctorID, appt.PatientID}, func(lockCtx context.Context) error {
		if err := s.checkConflict(lockCtx, appt.DoctorID, appt.PatientID, iv, appt.ID); err != nil {
			return err
		}

		updated, err = s.repo.UpdateTimes(lockCtx, id, start, end)
		if err != nil {
			return fmt.Errorf("update times: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	s.publish(events.TypeAppointmentUpdated, updated)
	return updated, nil
}

// UpdateNotes replaces the free-text notes. Doctor (own) or admin.
func (s *Service) UpdateNotes(ctx context.Context, id uuid.UUID, notes string, actor identity.Actor) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeMutation(appt, actor, "edit appointment notes"); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateNotes(ctx, id, strings.TrimSpace(notes))
	if err != nil {
		return nil, err
	}

	s.publish(events.TypeAppointmentUpdated, updated)
	return updated, nil
}

// RecordOutcome stores post-session feedback. Doctor (own) or admin; scales
// are bounded 0–10.
func (s *Service) RecordOutcome(ctx context.Context, id uuid.UUID, outcome Outcome, actor identity.Actor) (*Appointment, error) {
	if err := validateOutcome(outcome); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeMutation(appt, actor, "record session outcomes"); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateOutcome(ctx, id, outcome)
	if err != nil {
		return nil, err
	}

	s.publish(events.TypeAppointmentUpdated, updated)
	return updated, nil
}

func validateOutcome(o Outcome) error {
	scales := map[string]*int{
		"rating":           o.Rating,
		"pain_level":       o.PainLevel,
		"energy_level":     o.EnergyLevel,
		"mood_level":       o.MoodLevel,
		"sleep_quality":    o.SleepQuality,
		"overall_wellness": o.OverallWellness,
	}
	for name, v := range scales {
		if v != nil && (*v < 0 || *v > 10) {
			return validationf("%s must be between 0 and 10, got %d", name, *v)
		}
	}
	return nil
}

func (s *Service) authorizeMutation(appt *Appointment, actor identity.Actor, action string) error {
	switch actor.Role {
	case identity.RoleAdmin:
		return nil
	case identity.RoleDoctor:
		if appt.DoctorID != actor.ID {
			return &AuthorizationError{Actor: actor, Action: "manage another doctor's appointment"}
		}
		return nil
	default:
		return &AuthorizationError{Actor: actor, Action: action}
	}
}

// AvailableSlots enumerates the free slots on the doctor's grid for one
// clinic-local day. Advisory only: a slot shown free can still lose the race
// at booking time, where the conflict check is authoritative.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.Interval, error) {
	y, m, d := date.In(s.clinicTZ).Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.clinicTZ)
	dayEnd := dayStart.AddDate(0, 0, 1)

	appts, err := s.repo.ListForDoctorBetween(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}

	busy := make([]schedule.Interval, 0, len(appts))
	for _, a := range appts {
		busy = append(busy, a.Interval())
	}

	var free []schedule.Interval
	for slot := range schedule.Slots(dayStart, s.clinicTZ, busy) {
		free = append(free, slot)
	}
	return free, nil
}

// Get returns an appointment the actor is allowed to see: patients and
// doctors only their own, admins any.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor identity.Actor) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case identity.RoleAdmin:
	case identity.RoleDoctor:
		if appt.DoctorID != actor.ID {
			return nil, &AuthorizationError{Actor: actor, Action: "view another doctor's appointment"}
		}
	case identity.RolePatient:
		if appt.PatientID != actor.ID {
			return nil, &AuthorizationError{Actor: actor, Action: "view another patient's appointment"}
		}
	default:
		return nil, &AuthorizationError{Actor: actor, Action: "view appointments"}
	}

	return appt, nil
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, actor identity.Actor, limit, offset int) ([]Appointment, error) {
	if actor.Role == identity.RolePatient || (actor.Role == identity.RoleDoctor && actor.ID != doctorID) {
		return nil, &AuthorizationError{Actor: actor, Action: "list another doctor's appointments"}
	}
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, actor identity.Actor, limit, offset int) ([]Appointment, error) {
	if actor.Role == identity.RolePatient && actor.ID != patientID {
		return nil, &AuthorizationError{Actor: actor, Action: "list another patient's appointments"}
	}
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Delete hard-deletes an appointment. Administrative action outside the
// state machine; admin only.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor identity.Actor) error {
	if actor.Role != identity.RoleAdmin {
		return &AuthorizationError{Actor: actor, Action: "delete appointments"}
	}
	return s.repo.Delete(ctx, id)
}

// MarkOverdueDelayed is called by the worker periodically. Scheduled
// appointments whose start passed more than grace ago move to delayed.
func (s *Service) MarkOverdueDelayed(ctx context.Context, now time.Time, grace time.Duration) (int, error) {
	overdue, err := s.repo.FindOverdueScheduled(ctx, now.Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	marked := 0
	for _, appt := range overdue {
		updated, err := s.repo.UpdateStatus(ctx, appt.ID, StatusScheduled, StatusDelayed)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue // raced with a manual transition
			}
			s.log.Warn("failed to mark appointment delayed",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
			continue
		}

		marked++
		if s.metrics != nil {
			s.metrics.Transitions.WithLabelValues(string(StatusDelayed)).Inc()
		}
		s.publish(events.TypeAppointmentUpdated, updated)
	}

	return marked, nil
}

// publish never fails the triggering operation; the bus is best-effort.
func (s *Service) publish(typ events.EventType, appt *Appointment) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(typ, appt)
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(string(typ)).Inc()
	}
}
