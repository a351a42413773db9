package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/therapylink/clinic-scheduling/internal/schedule"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusDelayed    Status = "delayed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusDelayed:
		return true
	}
	return false
}

// Terminal statuses cannot be left again. Cancelled appointments also drop
// out of the conflict set, freeing their slot.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Outcome holds the post-session feedback a doctor records. All scales run
// 0–10; nil means not recorded.
type Outcome struct {
	Rating          *int     `json:"rating,omitempty"`
	PainLevel       *int     `json:"pain_level,omitempty"`
	EnergyLevel     *int     `json:"energy_level,omitempty"`
	MoodLevel       *int     `json:"mood_level,omitempty"`
	SleepQuality    *int     `json:"sleep_quality,omitempty"`
	OverallWellness *int     `json:"overall_wellness,omitempty"`
	Symptoms        []string `json:"symptoms,omitempty"`
	Improvements    []string `json:"improvements,omitempty"`
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	TherapyID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Status    Status
	Notes     string
	Outcome   Outcome
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Appointment) Interval() schedule.Interval {
	return schedule.Interval{Start: a.StartTime, End: a.EndTime}
}
