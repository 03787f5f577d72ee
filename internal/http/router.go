package http

import (
	"log/slog"
	"net/http"

	"github.com/example/masjid-scheduler/internal/metrics"
)

// RouterConfig collects the handlers and middleware mounted by NewRouter.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	Availability *AvailabilityHandler
	Reservations *ReservationHandler
	Activities   *ActivityHandler
	Health       http.Handler
	// MetricsHandler serves the Prometheus exposition at /metrics.
	MetricsHandler http.Handler
	// Metrics instruments every route when set.
	Metrics *metrics.Metrics
	// BookingLimiter wraps public reservation submission.
	BookingLimiter func(http.Handler) http.Handler
	Logger         *slog.Logger
	// Middleware wraps the whole router, outermost first.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	admin := RequireAdmin(cfg.Logger)

	if h := cfg.Availability; h != nil {
		mux.HandleFunc("GET /availability/{date}", h.Day)
		mux.HandleFunc("GET /availability/{date}/end-times", h.EndTimes)
		mux.HandleFunc("GET /calendar", h.Calendar)
	}

	if h := cfg.Reservations; h != nil {
		var submit http.Handler = http.HandlerFunc(h.Submit)
		if cfg.BookingLimiter != nil {
			submit = cfg.BookingLimiter(submit)
		}
		mux.Handle("POST /reservations", submit)
		mux.Handle("GET /admin/reservations", admin(http.HandlerFunc(h.List)))
		mux.Handle("GET /admin/reservations/{id}", admin(http.HandlerFunc(h.Get)))
		mux.Handle("POST /admin/reservations/{id}/approve", admin(http.HandlerFunc(h.Approve)))
		mux.Handle("POST /admin/reservations/{id}/reject", admin(http.HandlerFunc(h.Reject)))
	}

	if h := cfg.Activities; h != nil {
		mux.HandleFunc("GET /activities", h.ListUpcoming)
		mux.HandleFunc("GET /activities/{id}", h.Get)
		mux.Handle("POST /admin/activities", admin(http.HandlerFunc(h.Create)))
		mux.Handle("PUT /admin/activities/{id}", admin(http.HandlerFunc(h.Update)))
		mux.Handle("POST /admin/activities/{id}/deactivate", admin(http.HandlerFunc(h.Deactivate)))
		mux.Handle("DELETE /admin/activities/{id}", admin(http.HandlerFunc(h.Delete)))
	}

	if cfg.Health != nil {
		mux.Handle("GET /healthz", cfg.Health)
	}
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	handler := Instrument(cfg.Metrics)(mux)
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
