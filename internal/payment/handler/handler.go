package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"alumnireg/internal/payment/models"
	"alumnireg/internal/payment/service"
	dErrors "alumnireg/pkg/domain-errors"
	"alumnireg/pkg/platform/httputil"
	"alumnireg/pkg/requestcontext"
)

// Service records settled payments.
type Service interface {
	RecordPayment(ctx context.Context, cmd service.PaymentCommand) (*models.Receipt, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/registrations/{id}/transactions", h.HandleRecordTransaction)
}

// HandleRecordTransaction handles POST /registrations/{id}/transactions. A new
// transaction answers 201; a replayed gateway callback answers 200 with the
// stored transaction.
func (h *Handler) HandleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	ref := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[TransactionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	receipt, err := h.service.RecordPayment(ctx, service.PaymentCommand{
		RegistrationRef:  ref,
		Amount:           int64(req.Amount),
		PaymentMethod:    req.PaymentMethod,
		GatewayResponse:  req.PaymentGatewayResponse,
		GatewayReference: req.GatewayReference,
		Purpose:          req.Purpose,
		IsAnonymous:      req.IsAnonymous,
		Payer:            models.Payer{Name: req.Name, Email: req.Email, Contact: req.Contact},
		Notes:            req.Notes,
	})
	if err != nil {
		level := slog.LevelWarn
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			level = slog.LevelError
		}
		h.logger.Log(ctx, level, "payment not recorded",
			"request_id", requestID,
			"registration_ref", ref,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "payment recorded",
		"request_id", requestID,
		"registration_id", receipt.Transaction.RegistrationID.String(),
		"transaction_id", receipt.Transaction.ID.String(),
		"replayed", receipt.Replayed,
	)
	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, fromReceipt(receipt))
}
