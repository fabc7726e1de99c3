package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"alumnireg/internal/registration/models"
	"alumnireg/internal/registration/service"
	dErrors "alumnireg/pkg/domain-errors"
	"alumnireg/pkg/platform/httputil"
	"alumnireg/pkg/requestcontext"
)

// Service defines the wizard operations exposed over HTTP.
type Service interface {
	SaveStep(ctx context.Context, cmd service.StepCommand) (*service.StepResult, error)
	Get(ctx context.Context, rawID, token string) (*models.Registration, error)
}

// Handler serves the registration wizard.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the wizard endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registrations/step/{id}", h.HandleSaveStep)
	r.Get("/registrations/{id}", h.HandleGet)
}

// HandleSaveStep handles POST /registrations/step/{id}. The id is a
// registration id or "new" for step 1.
func (h *Handler) HandleSaveStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	ref := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[StepRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SaveStep(ctx, service.StepCommand{
		RegistrationRef: ref,
		Step:            req.Step,
		Patch:           *req.StepData,
		Token:           req.token(r),
	})
	if err != nil {
		h.logFailure(ctx, "registration step failed", requestID, ref, req.Step, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration step saved",
		"request_id", requestID,
		"registration_id", result.Registration.ID.String(),
		"step", req.Step,
		"created", result.Created,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, fromStepResult(result))
}

// HandleGet handles GET /registrations/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	ref := chi.URLParam(r, "id")

	reg, err := h.service.Get(ctx, ref, bearerToken(r))
	if err != nil {
		h.logFailure(ctx, "registration lookup failed", requestID, ref, 0, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, fromRegistration(reg))
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID, ref string, step int, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestID,
		"registration_ref", ref,
		"step", step,
		"error", err,
	)
}
