package handler

import (
	"encoding/json"
	"strings"

	regModels "alumnireg/internal/registration/models"
	dErrors "alumnireg/pkg/domain-errors"
)

// TransactionRequest is the checkout callback body of
// POST /registrations/{id}/transactions.
type TransactionRequest struct {
	Amount                 regModels.Amount `json:"amount"`
	PaymentMethod          string           `json:"paymentMethod" validate:"required,max=64"`
	PaymentGatewayResponse json.RawMessage  `json:"paymentGatewayResponse"`
	GatewayReference       string           `json:"gatewayReference" validate:"max=128"`
	Purpose                string           `json:"purpose" validate:"max=32"`
	IsAnonymous            bool             `json:"isAnonymous"`
	Name                   string           `json:"name" validate:"max=200"`
	Email                  string           `json:"email" validate:"omitempty,email,max=254"`
	Contact                string           `json:"contact" validate:"max=32"`
	Notes                  string           `json:"notes" validate:"max=2000"`
}

func (r *TransactionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than 0")
	}
	r.PaymentMethod = strings.TrimSpace(r.PaymentMethod)
	r.GatewayReference = strings.TrimSpace(r.GatewayReference)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Contact = strings.TrimSpace(r.Contact)
	if len(r.PaymentGatewayResponse) > 0 && !json.Valid(r.PaymentGatewayResponse) {
		return dErrors.New(dErrors.CodeValidation, "paymentGatewayResponse must be JSON")
	}
	return nil
}
