package handler

import (
	"time"

	"alumnireg/internal/payment/models"
)

type TransactionResponse struct {
	TransactionID      string    `json:"transaction_id"`
	RegistrationID     string    `json:"registration_id"`
	Amount             int64     `json:"amount"`
	Purpose            string    `json:"purpose"`
	Status             string    `json:"status"`
	CompletedAt        time.Time `json:"completed_at"`
	Replayed           bool      `json:"replayed"`
	ContributionTotal  int64     `json:"contribution_total"`
	PaymentStatus      string    `json:"payment_status"`
	RegistrationStatus string    `json:"registration_status"`
}

func fromReceipt(r *models.Receipt) *TransactionResponse {
	return &TransactionResponse{
		TransactionID:      r.Transaction.ID.String(),
		RegistrationID:     r.Transaction.RegistrationID.String(),
		Amount:             r.Transaction.Amount,
		Purpose:            string(r.Transaction.Purpose),
		Status:             r.Transaction.Status,
		CompletedAt:        r.Transaction.CompletedAt,
		Replayed:           r.Replayed,
		ContributionTotal:  r.ContributionTotal,
		PaymentStatus:      r.PaymentStatus,
		RegistrationStatus: r.RegistrationStatus,
	}
}
