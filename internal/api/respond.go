package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/therapylink/clinic-scheduling/internal/appointment"
	"github.com/therapylink/clinic-scheduling/internal/catalog"
	"github.com/therapylink/clinic-scheduling/internal/chat"
	"github.com/therapylink/clinic-scheduling/internal/directory"
	"github.com/therapylink/clinic-scheduling/internal/identity"
	redisclient "github.com/therapylink/clinic-scheduling/internal/redis"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Conflicts
// carry the offending appointment so the caller can re-offer slots.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validation     *appointment.ValidationError
		conflict       *appointment.ConflictError
		authz          *appointment.AuthorizationError
		transition     *appointment.TransitionError
		chatValidation *chat.ValidationError
		chatAuthz      *chat.AuthorizationError
		dirAuthz       *directory.AuthorizationError
	)

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_failed", validation.Msg)
	case errors.As(err, &chatValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", chatValidation.Msg)
	case errors.As(err, &conflict):
		resp := ErrorResponse{
			Error:            "booking_conflict",
			Details:          conflict.Error(),
			ConflictParty:    string(conflict.Party),
			ConflictingID:    &conflict.Existing.ID,
			ConflictingStart: &conflict.Existing.StartTime,
			ConflictingEnd:   &conflict.Existing.EndTime,
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.As(err, &authz), errors.As(err, &chatAuthz), errors.As(err, &dirAuthz):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrUserNotFound), errors.Is(err, directory.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, appointment.ErrTherapyNotFound), errors.Is(err, catalog.ErrTherapyNotFound):
		writeError(w, http.StatusNotFound, "therapy_not_found", err.Error())
	case errors.Is(err, chat.ErrThreadNotFound):
		writeError(w, http.StatusNotFound, "thread_not_found", err.Error())
	case errors.Is(err, appointment.ErrScheduleBusy), errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "schedule_busy", "schedule is currently being modified, please retry shortly")
	case errors.Is(err, identity.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
