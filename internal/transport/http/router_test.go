package httptransport

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ratelimit "alumnireg/internal/ratelimit/middleware"
	"alumnireg/internal/ratelimit/models"
	"alumnireg/internal/ratelimit/store/bucket"
	"alumnireg/pkg/platform/httputil"
)

type routeFunc func(r chi.Router)

func (f routeFunc) Register(r chi.Router) { f(r) }

type latencyRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (l *latencyRecorder) ObserveRequestLatency(route string, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.routes = append(l.routes, route)
}

func newTestRouter(t *testing.T, health func(*http.Request) error, latency *latencyRecorder) http.Handler {
	t.Helper()
	public := routeFunc(func(r chi.Router) {
		r.Get("/registrations/{id}", func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteJSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
		})
		r.Post("/verification/request", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})
		r.Get("/boom", func(http.ResponseWriter, *http.Request) {
			panic("boom")
		})
	})
	admin := routeFunc(func(r chi.Router) {
		r.Get("/admin/stats", func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteJSON(w, http.StatusOK, map[string]int{"registrations": 1})
		})
	})

	cfg := Config{
		AdminToken:     "secret",
		RequestTimeout: time.Second,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Health:         health,
		Metrics:        MetricsHandler(),
	}
	if latency != nil {
		cfg.Latency = latency
	}
	return NewRouter(cfg, Handlers{
		Public: []Registrar{public},
		Admin:  []Registrar{admin},
	})
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	t.Run("ok without a check", func(t *testing.T) {
		rr := serve(newTestRouter(t, nil, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("unavailable when a dependency fails", func(t *testing.T) {
		router := newTestRouter(t, func(*http.Request) error { return errors.New("postgres: connection refused") }, nil)
		rr := serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "connection refused")
	})
}

func TestRequestIDIsEchoed(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/registrations/abc", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := serve(router, req)
	assert.Equal(t, "req-123", rr.Header().Get("X-Request-ID"))

	rr = serve(router, httptest.NewRequest(http.MethodGet, "/registrations/abc", nil))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rr := serve(router, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	assert.Equal(t, http.StatusForbidden, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("X-Admin-Token", "secret")
	rr = serve(router, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"registrations":1}`, rr.Body.String())
}

func TestPublicRoutesDoNotRequireToken(t *testing.T) {
	rr := serve(newTestRouter(t, nil, nil), httptest.NewRequest(http.MethodGet, "/registrations/abc", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"abc"}`, rr.Body.String())
}

func TestRejectsNonJSONBodies(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/verification/request", strings.NewReader("email=a@b.c"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/verification/request", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	assert.Equal(t, http.StatusAccepted, serve(router, req).Code)
}

func TestPanicsBecomeInternalErrors(t *testing.T) {
	rr := serve(newTestRouter(t, nil, nil), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestLatencyIsObservedByRoutePattern(t *testing.T) {
	latency := &latencyRecorder{}
	router := newTestRouter(t, nil, latency)

	serve(router, httptest.NewRequest(http.MethodGet, "/registrations/abc", nil))

	latency.mu.Lock()
	defer latency.mu.Unlock()
	assert.Equal(t, []string{"/registrations/{id}"}, latency.routes)
}

func TestMetricsEndpoint(t *testing.T) {
	rr := serve(newTestRouter(t, nil, nil), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimitCoversRoutesButNotProbes(t *testing.T) {
	limits := map[models.EndpointClass]models.ClassLimits{
		models.ClassWrite: {PerIP: models.Limit{Requests: 1, Window: time.Minute}},
	}
	limiter := ratelimit.New(ratelimit.NewLimiter(bucket.NewInMemoryBucketStore(), limits),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := NewRouter(Config{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		RateLimit: limiter.RateLimit(models.ClassWrite),
	}, Handlers{Public: []Registrar{routeFunc(func(r chi.Router) {
		r.Get("/registrations/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})}})

	assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/registrations/a", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, httptest.NewRequest(http.MethodGet, "/registrations/a", nil)).Code)
	for range 3 {
		assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	}
}
