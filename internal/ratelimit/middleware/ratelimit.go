package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"alumnireg/internal/ratelimit/metrics"
	"alumnireg/internal/ratelimit/models"
	"alumnireg/pkg/platform/httputil"
	"alumnireg/pkg/requestcontext"
)

// maxSniffBytes caps how much of a body is buffered to find the identity.
const maxSniffBytes = 64 << 10

// RateLimiter is the check surface the middleware needs.
type RateLimiter interface {
	CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error)
	CheckIdentity(ctx context.Context, identity string, class models.EndpointClass) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter  RateLimiter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through (demo and load test runs).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit limits requests per client address. Store failures fail open.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}
			if !m.checkIP(w, r, class) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIdentity limits per client address and then per registrant email
// read from the JSON body. The body is restored for the next handler.
func (m *Middleware) RateLimitIdentity(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}
			if !m.checkIP(w, r, class) {
				return
			}

			ctx := r.Context()
			identity := sniffEmail(r)
			result, err := m.limiter.CheckIdentity(ctx, identity, class)
			if err != nil {
				m.metrics.IncrementCheckError()
				m.logger.ErrorContext(ctx, "failed to check identity rate limit", "error", err, "class", class)
				next.ServeHTTP(w, r)
				return
			}
			if !result.Allowed {
				m.metrics.IncrementRejection(string(class), "identity")
				m.logger.WarnContext(ctx, "identity rate limit exceeded", "class", class, "request_id", requestcontext.RequestID(ctx))
				addRateLimitHeaders(w, result)
				writeRateLimitExceeded(w, result, "Too many codes requested for this registrant. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) checkIP(w http.ResponseWriter, r *http.Request, class models.EndpointClass) bool {
	ctx := r.Context()
	ip := requestcontext.ClientIP(ctx)

	result, err := m.limiter.CheckIP(ctx, ip, class)
	if err != nil {
		m.metrics.IncrementCheckError()
		m.logger.ErrorContext(ctx, "failed to check ip rate limit", "error", err, "class", class)
		return true
	}

	addRateLimitHeaders(w, result)
	if !result.Allowed {
		m.metrics.IncrementRejection(string(class), "ip")
		m.logger.WarnContext(ctx, "ip rate limit exceeded", "class", class, "ip", ip, "request_id", requestcontext.RequestID(ctx))
		writeRateLimitExceeded(w, result, "Too many requests from this IP address. Please try again later.")
		return false
	}
	return true
}

func sniffEmail(r *http.Request) string {
	if r.Body == nil || r.ContentLength == 0 {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSniffBytes))
	rest := r.Body
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), rest), rest}
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.TrimSpace(payload.Email)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil || result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult, message string) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    message,
		RetryAfter: result.RetryAfter,
	})
}
