// Package httptransport assembles the public router: the middleware chain,
// the wizard and payment endpoints, and the operator surface behind the admin token.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alumnireg/pkg/platform/httputil"
	"alumnireg/pkg/platform/middleware/admin"
	"alumnireg/pkg/platform/middleware/metadata"
	request "alumnireg/pkg/platform/middleware/request"
	"alumnireg/pkg/platform/middleware/requesttime"
)

// Registrar mounts a handler's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Config holds the router's cross-cutting settings.
type Config struct {
	AdminToken     string
	RequestTimeout time.Duration
	Logger         *slog.Logger
	Latency        request.LatencyObserver
	// Health reports readiness; nil always answers ok.
	Health func(r *http.Request) error
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// RateLimit wraps the public and admin routes when set.
	RateLimit func(http.Handler) http.Handler
}

// Handlers are the route groups. Admin is mounted behind the admin token.
type Handlers struct {
	Public []Registrar
	Admin  []Registrar
}

func NewRouter(cfg Config, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.Logger(cfg.Logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if cfg.Latency != nil {
		r.Use(request.LatencyMiddleware(cfg.Latency))
	}

	r.Get("/health", healthHandler(cfg.Health))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(request.Timeout(cfg.RequestTimeout))
		}
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}
		r.Use(request.ContentTypeJSON)
		for _, reg := range h.Public {
			reg.Register(r)
		}
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(cfg.AdminToken, cfg.Logger))
			for _, reg := range h.Admin {
				reg.Register(r)
			}
		})
	})
	return r
}

// MetricsHandler exposes the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func healthHandler(check func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
