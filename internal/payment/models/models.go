// Package models holds the payment Transaction and its receipt.
package models

import (
	"encoding/json"
	"strings"
	"time"

	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
)

// Purpose says what a payment is for. Only registration payments count
// toward a registration's contribution.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeDonation     Purpose = "donation"
	PurposeSponsorship  Purpose = "sponsorship"
)

// StatusCompleted is the only status a recorded transaction carries; the
// gateway has already settled it.
const StatusCompleted = "completed"

const (
	maxMethodLength    = 64
	maxReferenceLength = 128
	maxNotesLength     = 2000
)

// Payer is who paid, as reported by the checkout. It may differ from the registrant.
type Payer struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Transaction is one settled payment. It is written before the registration
// is touched; AppliedAt is set once its amount has reached the aggregate.
type Transaction struct {
	ID               id.TransactionID
	RegistrationID   id.RegistrationID
	Amount           int64
	PaymentMethod    string
	GatewayResponse  json.RawMessage
	GatewayReference string
	Purpose          Purpose
	IsAnonymous      bool
	Payer            Payer
	Notes            string
	Status           string
	CompletedAt      time.Time
	AppliedAt        *time.Time
}

// NewTransactionInput carries the caller-supplied fields of a payment.
type NewTransactionInput struct {
	RegistrationID   id.RegistrationID
	Amount           int64
	PaymentMethod    string
	GatewayResponse  json.RawMessage
	GatewayReference string
	Purpose          Purpose
	IsAnonymous      bool
	Payer            Payer
	Notes            string
}

// NewTransaction validates in and builds an unapplied transaction. Payments
// that do not affect the registration are applied on creation.
func NewTransaction(txID id.TransactionID, in NewTransactionInput, now time.Time) (*Transaction, error) {
	if in.Amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be greater than 0")
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "payment_method is required")
	}
	if len(method) > maxMethodLength {
		return nil, dErrors.New(dErrors.CodeValidation, "payment_method is too long")
	}
	if len(in.GatewayReference) > maxReferenceLength {
		return nil, dErrors.New(dErrors.CodeValidation, "gateway_reference is too long")
	}
	if len(in.Notes) > maxNotesLength {
		return nil, dErrors.New(dErrors.CodeValidation, "notes are too long")
	}
	purpose, err := ParsePurpose(string(in.Purpose))
	if err != nil {
		return nil, err
	}

	txn := &Transaction{
		ID:               txID,
		RegistrationID:   in.RegistrationID,
		Amount:           in.Amount,
		PaymentMethod:    method,
		GatewayResponse:  in.GatewayResponse,
		GatewayReference: strings.TrimSpace(in.GatewayReference),
		Purpose:          purpose,
		IsAnonymous:      in.IsAnonymous,
		Payer:            in.Payer,
		Notes:            in.Notes,
		Status:           StatusCompleted,
		CompletedAt:      now,
	}
	if !txn.AffectsRegistration() {
		txn.AppliedAt = &now
	}
	return txn, nil
}

// ParsePurpose defaults an empty purpose to registration.
func ParsePurpose(raw string) (Purpose, error) {
	p := Purpose(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case "":
		return PurposeRegistration, nil
	case PurposeRegistration, PurposeDonation, PurposeSponsorship:
		return p, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "purpose must be registration, donation or sponsorship")
}

func (t *Transaction) AffectsRegistration() bool { return t.Purpose == PurposeRegistration }

func (t *Transaction) Applied() bool { return t.AppliedAt != nil }

// GatewayReferenceFrom returns the gateway's payment id from a raw callback
// body, or "" when it carries none.
func GatewayReferenceFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var body struct {
		PaymentID string `json:"razorpay_payment_id"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.PaymentID)
}

// Receipt is the outcome of recording a payment. Replayed is true when the
// gateway reference was already recorded and nothing changed.
type Receipt struct {
	Transaction        *Transaction
	ContributionTotal  int64
	PaymentStatus      string
	RegistrationStatus string
	Replayed           bool
}

// Summary totals recorded transactions for the operator dashboard.
type Summary struct {
	Count     int               `json:"count"`
	Total     int64             `json:"total"`
	Unapplied int               `json:"unapplied"`
	ByPurpose map[Purpose]int64 `json:"by_purpose"`
}

// NewSummary returns an empty summary.
func NewSummary() Summary {
	return Summary{ByPurpose: map[Purpose]int64{}}
}

// Add counts one transaction.
func (s *Summary) Add(t *Transaction) {
	s.Count++
	s.Total += t.Amount
	s.ByPurpose[t.Purpose] += t.Amount
	if !t.Applied() {
		s.Unapplied++
	}
}
