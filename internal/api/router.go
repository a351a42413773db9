package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/therapylink/clinic-scheduling/internal/appointment"
	"github.com/therapylink/clinic-scheduling/internal/chat"
	"github.com/therapylink/clinic-scheduling/internal/directory"
	"github.com/therapylink/clinic-scheduling/internal/events"
	"github.com/therapylink/clinic-scheduling/internal/identity"
	"github.com/therapylink/clinic-scheduling/internal/observability/metrics"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Chat         *chat.Service
	Directory    *directory.Service
	Bus          *events.Bus
	Authority    identity.Authority
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Heartbeat    time.Duration
	PgPool       *pgxpool.Pool // nil in demo mode
	Redis        *redis.Client // nil in demo mode
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health and metrics stay outside the identity boundary.
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	stream := NewStreamHandler(cfg.Bus, cfg.Heartbeat, cfg.Logger, cfg.Metrics)

	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware(cfg.Authority))

		r.Post("/appointments", bookAppointmentHandler(cfg.Appointments))
		r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
		r.Post("/appointments/{id}/transition", transitionAppointmentHandler(cfg.Appointments))
		r.Patch("/appointments/{id}/schedule", rescheduleAppointmentHandler(cfg.Appointments))
		r.Patch("/appointments/{id}/notes", appointmentNotesHandler(cfg.Appointments))
		r.Patch("/appointments/{id}/outcome", appointmentOutcomeHandler(cfg.Appointments))
		r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Appointments))

		r.Get("/doctors/{id}/slots", availableSlotsHandler(cfg.Appointments))

		r.Post("/threads", resolveThreadHandler(cfg.Chat))
		r.Post("/threads/doctor-admin/{doctorID}", resolveDoctorAdminRoomHandler(cfg.Chat))
		r.Get("/threads", listThreadsHandler(cfg.Chat))
		r.Get("/threads/{id}", getThreadHandler(cfg.Chat))
		r.Post("/threads/{id}/messages", sendMessageHandler(cfg.Chat))

		r.Post("/users/{id}/approve", approveUserHandler(cfg.Directory))
		r.Post("/users/{id}/request-approval", requestApprovalHandler(cfg.Directory))

		r.Method(http.MethodGet, "/events", stream)
	})

	return r
}
