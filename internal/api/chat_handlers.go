package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/therapylink/clinic-scheduling/internal/chat"
)

func resolveThreadHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		var req ResolveThreadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		participants := make([]uuid.UUID, 0, len(req.ParticipantIDs))
		for _, raw := range req.ParticipantIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_participant_id", "participant_ids must be valid UUIDs")
				return
			}
			participants = append(participants, id)
		}

		thread, err := svc.ResolveOrCreateThread(r.Context(), participants, actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toThreadResponse(thread))
	}
}

func resolveDoctorAdminRoomHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		thread, err := svc.ResolveDoctorAdminRoom(r.Context(), doctorID, actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toThreadResponse(thread))
	}
}

func getThreadHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_thread_id", "id must be a valid UUID")
			return
		}

		thread, err := svc.GetThread(r.Context(), id, actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toThreadResponse(thread))
	}
}

func listThreadsHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id query parameter must be a valid UUID")
			return
		}

		threads, err := svc.ListThreadsForUser(r.Context(), userID, actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]ThreadResponse, 0, len(threads))
		for i := range threads {
			out = append(out, toThreadResponse(&threads[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func sendMessageHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		threadID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_thread_id", "id must be a valid UUID")
			return
		}

		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		msg, err := svc.AppendMessage(r.Context(), threadID, actor.ID, req.Text)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, msg)
	}
}
