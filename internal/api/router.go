package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/psiagenda/scheduling-engine/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  *zap.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Service

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", solicitAppointmentHandler(svc))
		r.Get("/", listAppointmentsHandler(svc))
		r.Get("/{id}", getAppointmentHandler(svc))
		r.Post("/{id}/cancel", appointmentTransitionHandler(
			func(req *http.Request, id, userID uuid.UUID) (*scheduling.Appointment, error) {
				return svc.CancelAppointment(req.Context(), id, userID)
			}))
		r.Post("/{id}/confirm", appointmentTransitionHandler(
			func(req *http.Request, id, userID uuid.UUID) (*scheduling.Appointment, error) {
				return svc.ConfirmAppointment(req.Context(), id, userID)
			}))
		r.Post("/{id}/complete", appointmentTransitionHandler(
			func(req *http.Request, id, userID uuid.UUID) (*scheduling.Appointment, error) {
				return svc.CompleteAppointment(req.Context(), id, userID)
			}))
		r.Post("/{id}/payment-sent", appointmentTransitionHandler(
			func(req *http.Request, id, userID uuid.UUID) (*scheduling.Appointment, error) {
				return svc.MarkPaymentSent(req.Context(), id, userID)
			}))
		r.Post("/{id}/reschedule", rescheduleAppointmentHandler(svc))
	})

	r.Route("/psychologists", func(r chi.Router) {
		r.Get("/search", searchPsychologistsHandler(svc))
		r.Get("/{id}/availabilities", listAvailabilitiesHandler(svc))
		r.Post("/{id}/availabilities", availabilitiesHandler(svc, false))
		r.Delete("/{id}/availabilities", availabilitiesHandler(svc, true))
	})

	return r
}
