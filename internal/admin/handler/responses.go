package handler

import (
	"encoding/json"
	"time"

	adminService "alumnireg/internal/admin/service"
	paymentModels "alumnireg/internal/payment/models"
	regModels "alumnireg/internal/registration/models"
)

type TransactionView struct {
	TransactionID   string              `json:"transaction_id"`
	Amount          int64               `json:"amount"`
	PaymentMethod   string              `json:"payment_method"`
	Purpose         string              `json:"purpose"`
	Status          string              `json:"status"`
	IsAnonymous     bool                `json:"is_anonymous"`
	Payer           paymentModels.Payer `json:"payer"`
	Notes           string              `json:"notes,omitempty"`
	GatewayRef      string              `json:"gateway_reference,omitempty"`
	GatewayResponse json.RawMessage     `json:"gateway_response,omitempty"`
	CompletedAt     time.Time           `json:"completed_at"`
	AppliedAt       *time.Time          `json:"applied_at"`
}

type RegistrationDetailResponse struct {
	Registration regModels.Summary        `json:"registration"`
	Form         regModels.StructuredForm `json:"form"`
	Version      int64                    `json:"version"`
	Transactions []TransactionView        `json:"transactions"`
}

type StatsResponse struct {
	Registrations regModels.Stats       `json:"registrations"`
	Payments      paymentModels.Summary `json:"payments"`
}

type ConfirmationResponse struct {
	RegistrationID string `json:"registration_id"`
	Status         string `json:"status"`
}

type ContributionResponse struct {
	RegistrationID     string `json:"registration_id"`
	ContributionTotal  int64  `json:"contribution_total"`
	PaymentStatus      string `json:"payment_status"`
	RegistrationStatus string `json:"registration_status"`
}

func fromDetail(d *adminService.Detail) *RegistrationDetailResponse {
	txns := make([]TransactionView, 0, len(d.Transactions))
	for _, t := range d.Transactions {
		txns = append(txns, TransactionView{
			TransactionID:   t.ID.String(),
			Amount:          t.Amount,
			PaymentMethod:   t.PaymentMethod,
			Purpose:         string(t.Purpose),
			Status:          t.Status,
			IsAnonymous:     t.IsAnonymous,
			Payer:           t.Payer,
			Notes:           t.Notes,
			GatewayRef:      t.GatewayReference,
			GatewayResponse: t.GatewayResponse,
			CompletedAt:     t.CompletedAt,
			AppliedAt:       t.AppliedAt,
		})
	}
	return &RegistrationDetailResponse{
		Registration: d.Registration.Summary(),
		Form:         d.Registration.Form,
		Version:      d.Registration.Version,
		Transactions: txns,
	}
}

func fromCorrection(reg *regModels.Registration) *ContributionResponse {
	return &ContributionResponse{
		RegistrationID:     reg.ID.String(),
		ContributionTotal:  reg.ContributionTotal,
		PaymentStatus:      string(reg.PaymentStatus),
		RegistrationStatus: string(reg.RegistrationStatus),
	}
}
