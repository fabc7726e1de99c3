package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	adminService "alumnireg/internal/admin/service"
	paymentService "alumnireg/internal/payment/service"
	regModels "alumnireg/internal/registration/models"
	"alumnireg/pkg/platform/httputil"
	"alumnireg/pkg/requestcontext"
)

// Service is the operator surface. Authentication happens in middleware.
type Service interface {
	Registration(ctx context.Context, rawID string) (*adminService.Detail, error)
	Dashboard(ctx context.Context) (*adminService.Dashboard, error)
	CorrectContribution(ctx context.Context, rawID string, total int64, reason string) (*regModels.Registration, error)
	ResendConfirmation(ctx context.Context, rawID string) error
	Reconcile(ctx context.Context) (paymentService.ReconcileResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the operator endpoints. Callers wrap r in the admin token guard.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/registrations/{id}", h.HandleGetRegistration)
	r.Get("/admin/stats", h.HandleStats)
	r.Post("/admin/registrations/{id}/contribution", h.HandleCorrectContribution)
	r.Post("/admin/registrations/{id}/confirmation", h.HandleResendConfirmation)
	r.Post("/admin/reconcile", h.HandleReconcile)
}

func (h *Handler) HandleGetRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	detail, err := h.service.Registration(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "admin registration lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDetail(detail))
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dashboard, err := h.service.Dashboard(ctx)
	if err != nil {
		h.fail(ctx, w, "admin stats failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &StatsResponse{
		Registrations: dashboard.Registrations,
		Payments:      dashboard.Payments,
	})
}

func (h *Handler) HandleCorrectContribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[ContributionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	reg, err := h.service.CorrectContribution(ctx, chi.URLParam(r, "id"), *req.ContributionTotal, req.Reason)
	if err != nil {
		h.fail(ctx, w, "contribution correction failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCorrection(reg))
}

// HandleResendConfirmation re-queues the confirmation email for a paid registration.
func (h *Handler) HandleResendConfirmation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID := chi.URLParam(r, "id")
	if err := h.service.ResendConfirmation(ctx, regID); err != nil {
		h.fail(ctx, w, "confirmation resend failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, &ConfirmationResponse{
		RegistrationID: regID,
		Status:         "queued",
	})
}

func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.service.Reconcile(ctx)
	if err != nil {
		h.fail(ctx, w, "reconciliation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
