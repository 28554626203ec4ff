package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zapponejosh/calendar-api/internal/config"
)

// RouterOptions carries the optional collaborators of NewRouter.
type RouterOptions struct {
	Metrics  *Metrics
	Gatherer prometheus.Gatherer // served on /metrics when set
	Limiter  *RateLimiter
}

// NewRouter configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET    /health
//	GET    /metrics
//	GET    /api/v1/calendar/today
//	GET    /api/v1/calendar/leap/{year}
//	GET    /api/v1/calendar/weekday?year=&month=&day=
//	GET    /api/v1/calendar/epoch/{days}
//	GET    /api/v1/calendar/{year}
//	GET    /api/v1/calendar/{year}/{month}
//	GET    /api/v1/events?year=&month= | ?date=
//	GET    /api/v1/events.ics?year=&month=
//	GET    /api/v1/events/{id}
//	POST   /api/v1/events                 (API key)
//	PUT    /api/v1/events/{id}            (API key)
//	DELETE /api/v1/events/{id}            (API key)
//	POST   /api/v1/import/{feedID}        (API key)
//	DELETE /api/v1/import                 (API key)
func NewRouter(h *Handlers, cfg *config.Config, logger *slog.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	base := []Middleware{
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
	}
	if opts.Metrics != nil {
		base = append(base, opts.Metrics.Middleware())
	}
	base = append(base, CORSMiddleware())
	if opts.Limiter != nil {
		base = append(base, opts.Limiter.Middleware())
	}
	r.Use(ChainMiddleware(base...))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	r.Get("/health", h.HealthCheck)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/calendar", func(r chi.Router) {
			r.Get("/today", h.GetToday)
			r.Get("/leap/{year}", h.GetLeapYear)
			r.Get("/weekday", h.GetWeekday)
			r.Get("/epoch/{days}", h.GetEpochDay)
			r.Get("/{year}", h.GetYear)
			r.Get("/{year}/{month}", h.GetMonth)
		})

		r.Get("/events", h.ListEvents)
		r.Get("/events.ics", h.ExportEvents)
		r.Get("/events/{id}", h.GetEvent)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg, logger))

			r.Post("/events", h.CreateEvent)
			r.Put("/events/{id}", h.UpdateEvent)
			r.Delete("/events/{id}", h.DeleteEvent)

			r.Post("/import/{feedID}", h.ImportFeed)
			r.Delete("/import", h.PurgeImported)
		})
	})

	return r
}
