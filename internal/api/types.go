package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/therapylink/clinic-scheduling/internal/appointment"
	"github.com/therapylink/clinic-scheduling/internal/chat"
	"github.com/therapylink/clinic-scheduling/internal/schedule"
)

type BookAppointmentRequest struct {
	PatientID string     `json:"patient_id"`
	DoctorID  string     `json:"doctor_id"`
	TherapyID string     `json:"therapy_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

type TransitionRequest struct {
	TargetStatus string `json:"target_status"`
}

type RescheduleRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

type AppointmentResponse struct {
	ID        uuid.UUID           `json:"id"`
	PatientID uuid.UUID           `json:"patient_id"`
	DoctorID  uuid.UUID           `json:"doctor_id"`
	TherapyID uuid.UUID           `json:"therapy_id"`
	StartTime time.Time           `json:"start_time"`
	EndTime   time.Time           `json:"end_time"`
	Status    string              `json:"status"`
	Notes     string              `json:"notes,omitempty"`
	Outcome   appointment.Outcome `json:"outcome"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		TherapyID: a.TherapyID,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Status:    string(a.Status),
		Notes:     a.Notes,
		Outcome:   a.Outcome,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAppointmentResponses(items []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(items))
	for i := range items {
		out = append(out, toAppointmentResponse(&items[i]))
	}
	return out
}

type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func toSlotResponses(slots []schedule.Interval) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{Start: s.Start, End: s.End})
	}
	return out
}

type ResolveThreadRequest struct {
	ParticipantIDs []string `json:"participant_ids"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type ThreadResponse struct {
	ID           uuid.UUID      `json:"id"`
	Participants []uuid.UUID    `json:"participant_ids"`
	CreatedAt    time.Time      `json:"created_at"`
	Messages     []chat.Message `json:"messages,omitempty"`
}

func toThreadResponse(t *chat.Thread) ThreadResponse {
	return ThreadResponse{
		ID:           t.ID,
		Participants: t.Participants,
		CreatedAt:    t.CreatedAt,
		Messages:     t.Messages,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	// Set on booking conflicts: which party is double-booked and with what.
	ConflictParty    string     `json:"conflict_party,omitempty"`
	ConflictingID    *uuid.UUID `json:"conflicting_appointment_id,omitempty"`
	ConflictingStart *time.Time `json:"conflicting_start,omitempty"`
	ConflictingEnd   *time.Time `json:"conflicting_end,omitempty"`
}
