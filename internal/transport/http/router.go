// Package http assembles the service's HTTP surface: the shared middleware
// chain, the health and metrics endpoints, and the per-domain handlers.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	attendancehandler "fichaje/internal/attendance/handler"
	incidenthandler "fichaje/internal/incident/handler"
	"fichaje/internal/jwttoken"
	"fichaje/internal/platform/middleware"
	schedulehandler "fichaje/internal/schedule/handler"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the router needs.
type Deps struct {
	Logger     *slog.Logger
	JWT        *jwttoken.JWTService
	Registry   *prometheus.Registry
	Schedules  *schedulehandler.Handler
	Attendance *attendancehandler.Handler
	Incidents  *incidenthandler.Handler
	Health     func() error
}

// NewRouter builds the top-level router. Health and metrics are open;
// everything under /api/v1 requires a valid bearer token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if d.Health != nil {
			if err := d.Health(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.RequireAuth(d.JWT, d.Logger))
		d.Schedules.Register(api)
		d.Attendance.Register(api)
		d.Incidents.Register(api)
	})

	return r
}
