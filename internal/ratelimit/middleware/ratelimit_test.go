package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnireg/internal/ratelimit/metrics"
	"alumnireg/internal/ratelimit/models"
	"alumnireg/internal/ratelimit/store/bucket"
	"alumnireg/pkg/requestcontext"
)

var testLimits = map[models.EndpointClass]models.ClassLimits{
	models.ClassIssue: {
		PerIP:       models.Limit{Requests: 5, Window: time.Minute},
		PerIdentity: models.Limit{Requests: 2, Window: time.Minute},
	},
	models.ClassWrite: {
		PerIP: models.Limit{Requests: 2, Window: time.Minute},
	},
}

func newTestMiddleware(t *testing.T, opts ...Option) (*Middleware, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	limiter := NewLimiter(bucket.NewInMemoryBucketStore(), testLimits)
	opts = append(opts, WithMetrics(m))
	return New(limiter, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...), m
}

func echoBody(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	_, _ = w.Write(body)
}

func send(h http.Handler, ip, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/registrations/send-otp", strings.NewReader(body))
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitPerIP(t *testing.T) {
	mw, m := newTestMiddleware(t)
	h := mw.RateLimit(models.ClassWrite)(http.HandlerFunc(echoBody))

	for range 2 {
		rec := send(h, "10.0.0.1", "{}")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := send(h, "10.0.0.1", "{}")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	var body models.RateLimitExceededResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body.Error)
	assert.Equal(t, 60, body.RetryAfter)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("write", "ip")))

	rec = send(h, "10.0.0.2", "{}")
	assert.Equal(t, http.StatusOK, rec.Code, "other clients keep their own bucket")
}

func TestRateLimitUnconfiguredClassPasses(t *testing.T) {
	mw, _ := newTestMiddleware(t)
	h := mw.RateLimit(models.ClassVerify)(http.HandlerFunc(echoBody))
	for range 10 {
		rec := send(h, "10.0.0.1", "{}")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitIdentity(t *testing.T) {
	mw, m := newTestMiddleware(t)
	h := mw.RateLimitIdentity(models.ClassIssue)(http.HandlerFunc(echoBody))

	t.Run("body reaches the handler intact", func(t *testing.T) {
		payload := `{"email":"first@x.com","contactNumber":"+919999999999"}`
		rec := send(h, "10.0.0.1", payload)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, payload, rec.Body.String())
	})

	t.Run("identity limit applies across addresses and case", func(t *testing.T) {
		require.Equal(t, http.StatusOK, send(h, "10.0.0.2", `{"email":"a@x.com"}`).Code)
		require.Equal(t, http.StatusOK, send(h, "10.0.0.3", `{"email":"A@X.com"}`).Code)

		rec := send(h, "10.0.0.4", `{"email":"a@x.com"}`)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "registrant")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("issue", "identity")))
	})

	t.Run("missing email is left to validation", func(t *testing.T) {
		for range 3 {
			require.Equal(t, http.StatusOK, send(h, "10.0.0.5", `{"contactNumber":"+91"}`).Code)
		}
	})
}

func TestRateLimitDisabled(t *testing.T) {
	mw, _ := newTestMiddleware(t, WithDisabled(true))
	h := mw.RateLimitIdentity(models.ClassIssue)(http.HandlerFunc(echoBody))
	for range 10 {
		require.Equal(t, http.StatusOK, send(h, "10.0.0.1", `{"email":"a@x.com"}`).Code)
	}
}

type failingLimiter struct{}

func (failingLimiter) CheckIP(context.Context, string, models.EndpointClass) (*models.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func (failingLimiter) CheckIdentity(context.Context, string, models.EndpointClass) (*models.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	mw := New(failingLimiter{}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithMetrics(m))
	h := mw.RateLimitIdentity(models.ClassIssue)(http.HandlerFunc(echoBody))

	rec := send(h, "10.0.0.1", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CheckErrors), "both checks failed open")
}
