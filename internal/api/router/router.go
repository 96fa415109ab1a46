package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pratik-mahalle/alertroute/internal/api/handlers"
	"github.com/pratik-mahalle/alertroute/internal/api/middleware"
	"github.com/pratik-mahalle/alertroute/internal/config"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/metrics"
)

type Handlers struct {
	Health      *handlers.HealthHandler
	User        *handlers.UserHandler
	Timeslot    *handlers.TimeslotHandler
	Filter      *handlers.FilterHandler
	Destination *handlers.DestinationHandler
	Profile     *handlers.ProfileHandler
	Event       *handlers.EventHandler
}

func New(cfg config.ServerConfig, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))

	// Health checks
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", h.User.Create)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", h.User.Get)
			r.Put("/email", h.User.UpdateEmail)

			r.Route("/timeslots", func(r chi.Router) {
				r.Get("/", h.Timeslot.List)
				r.Post("/", h.Timeslot.Create)
				r.Get("/{id}", h.Timeslot.Get)
				r.Put("/{id}", h.Timeslot.Update)
				r.Delete("/{id}", h.Timeslot.Delete)
				r.Get("/{id}/covers", h.Timeslot.Covers)
			})

			r.Route("/filters", func(r chi.Router) {
				r.Get("/", h.Filter.List)
				r.Post("/", h.Filter.Create)
				r.Post("/preview", h.Filter.Preview)
				r.Get("/{id}", h.Filter.Get)
				r.Put("/{id}", h.Filter.Update)
				r.Delete("/{id}", h.Filter.Delete)
				r.Get("/{id}/incidents", h.Filter.Incidents)
			})

			r.Route("/destinations", func(r chi.Router) {
				r.Get("/", h.Destination.List)
				r.Post("/", h.Destination.Create)
				r.Get("/{id}", h.Destination.Get)
				r.Put("/{id}", h.Destination.Update)
				r.Delete("/{id}", h.Destination.Delete)
			})

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/", h.Profile.List)
				r.Post("/", h.Profile.Create)
				r.Get("/{id}", h.Profile.Get)
				r.Put("/{id}", h.Profile.Update)
				r.Delete("/{id}", h.Profile.Delete)
				r.Get("/{id}/incidents", h.Profile.Incidents)
			})
		})

		r.Post("/filters/validate", h.Filter.Validate)

		r.Post("/events", h.Event.Ingest)
		r.Post("/events/batch", h.Event.IngestBatch)
		r.Post("/resolve", h.Event.Resolve)
	})

	return r
}
