package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/therapylink/clinic-scheduling/internal/schedule"
)

// MemoryRepository is a process-local Repository used in demo mode (no
// Postgres configured) and in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[uuid.UUID]*Appointment)}
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) FindOverlapping(_ context.Context, doctorID, patientID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]Appointment, error) {
	candidate := schedule.Interval{Start: start, End: end}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.items {
		if a.ID == excludeID || a.Status == StatusCancelled {
			continue
		}
		if a.DoctorID != doctorID && a.PatientID != patientID {
			continue
		}
		if a.Interval().Overlaps(candidate) {
			result = append(result, *a)
		}
	}

	sortByStart(result)
	return result, nil
}

func (r *MemoryRepository) ListForDoctorBetween(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	window := schedule.Interval{Start: from, End: to}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.items {
		if a.DoctorID != doctorID || a.Status == StatusCancelled {
			continue
		}
		if a.Interval().Overlaps(window) {
			result = append(result, *a)
		}
	}

	sortByStart(result)
	return result, nil
}

func (r *MemoryRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.list(func(a *Appointment) bool { return a.DoctorID == doctorID }, limit, offset), nil
}

func (r *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.list(func(a *Appointment) bool { return a.PatientID == patientID }, limit, offset), nil
}

func (r *MemoryRepository) list(match func(*Appointment) bool, limit, offset int) []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.items {
		if match(a) {
			result = append(result, *a)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.After(result[j].StartTime) })

	if offset >= len(result) {
		return nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (r *MemoryRepository) Create(_ context.Context, a *Appointment) (*Appointment, error) {
	cp := *a
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.Status = StatusScheduled
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now

	r.mu.Lock()
	r.items[cp.ID] = &cp
	r.mu.Unlock()

	out := cp
	return &out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()

	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) UpdateTimes(_ context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.StartTime = start
	a.EndTime = end
	a.UpdatedAt = time.Now().UTC()

	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) UpdateNotes(_ context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Notes = notes
	a.UpdatedAt = time.Now().UTC()

	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) UpdateOutcome(_ context.Context, id uuid.UUID, o Outcome) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	if o.Rating != nil {
		a.Outcome.Rating = o.Rating
	}
	if o.PainLevel != nil {
		a.Outcome.PainLevel = o.PainLevel
	}
	if o.EnergyLevel != nil {
		a.Outcome.EnergyLevel = o.EnergyLevel
	}
	if o.MoodLevel != nil {
		a.Outcome.MoodLevel = o.MoodLevel
	}
	if o.SleepQuality != nil {
		a.Outcome.SleepQuality = o.SleepQuality
	}
	if o.OverallWellness != nil {
		a.Outcome.OverallWellness = o.OverallWellness
	}
	if o.Symptoms != nil {
		a.Outcome.Symptoms = o.Symptoms
	}
	if o.Improvements != nil {
		a.Outcome.Improvements = o.Improvements
	}
	a.UpdatedAt = time.Now().UTC()

	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepository) FindOverdueScheduled(_ context.Context, cutoff time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.items {
		if a.Status == StatusScheduled && a.StartTime.Before(cutoff) {
			result = append(result, *a)
		}
	}

	sortByStart(result)
	return result, nil
}

func sortByStart(items []Appointment) {
	sort.Slice(items, func(i, j int) bool { return items[i].StartTime.Before(items[j].StartTime) })
}
