package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"alumnireg/internal/verification/models"
	dErrors "alumnireg/pkg/domain-errors"
	"alumnireg/pkg/platform/httputil"
	"alumnireg/pkg/requestcontext"
)

// Service is the verification gate as seen by HTTP.
type Service interface {
	RequestCode(ctx context.Context, email, contact string) (*models.Issued, error)
	VerifyCode(ctx context.Context, email, contact, code string) (*models.Result, error)
}

// Handler serves the one-time code endpoints.
type Handler struct {
	service     Service
	logger      *slog.Logger
	issueLimit  func(http.Handler) http.Handler
	verifyLimit func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithIssueLimit wraps the send-otp route.
func WithIssueLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.issueLimit = mw
	}
}

// WithVerifyLimit wraps the verify-otp route.
func WithVerifyLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.verifyLimit = mw
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the gate endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.With(middlewares(h.issueLimit)...).Post("/registrations/send-otp", h.HandleSendCode)
	r.With(middlewares(h.verifyLimit)...).Post("/registrations/verify-otp", h.HandleVerifyCode)
}

func middlewares(mw func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
	if mw == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{mw}
}

// HandleSendCode handles POST /registrations/send-otp.
func (h *Handler) HandleSendCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SendCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	issued, err := h.service.RequestCode(ctx, req.Email, req.ContactNumber)
	if err != nil {
		h.logFailure(ctx, "verification code request failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, fromIssued(issued))
}

// HandleVerifyCode handles POST /registrations/verify-otp.
func (h *Handler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.VerifyCode(ctx, req.Email, req.ContactNumber, req.OTP)
	if err != nil {
		h.logFailure(ctx, "verification failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, fromResult(result))
}

// Client mistakes are expected traffic and log at warn.
func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
}
