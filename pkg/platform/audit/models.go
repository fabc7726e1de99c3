package audit

import (
	"context"
	"time"

	id "alumnireg/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so stores can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers registration and payment records that must be
	// kept for the association's books.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers the verification gate: failed and exhausted codes.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine workflow activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category       EventCategory
	Timestamp      time.Time
	Action         string
	RegistrationID id.RegistrationID
	// Subject is the identity the event is about (email, contact or transaction id).
	Subject   string
	Detail    map[string]any
	RequestID string
	ClientIP  string
}

type AuditEvent string

const (
	// Verification gate
	EventVerificationCodeIssued AuditEvent = "verification_code_issued"
	EventVerificationSucceeded  AuditEvent = "verification_succeeded"
	EventVerificationFailed     AuditEvent = "verification_failed"
	EventVerificationExhausted  AuditEvent = "verification_exhausted"

	// Registration workflow
	EventRegistrationCreated   AuditEvent = "registration_created"
	EventRegistrationStepSaved AuditEvent = "registration_step_saved"
	EventRegistrationSubmitted AuditEvent = "registration_submitted"
	EventHardshipDeclared      AuditEvent = "hardship_declared"
	EventConfirmationResent    AuditEvent = "confirmation_resent"

	// Payments
	EventPaymentRecorded       AuditEvent = "payment_recorded"
	EventContributionCorrected AuditEvent = "contribution_corrected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRegistrationCreated:   CategoryCompliance,
	EventRegistrationSubmitted: CategoryCompliance,
	EventHardshipDeclared:      CategoryCompliance,
	EventPaymentRecorded:       CategoryCompliance,
	EventContributionCorrected: CategoryCompliance,

	EventVerificationFailed:    CategorySecurity,
	EventVerificationExhausted: CategorySecurity,

	EventVerificationCodeIssued: CategoryOperations,
	EventVerificationSucceeded:  CategoryOperations,
	EventRegistrationStepSaved:  CategoryOperations,
	EventConfirmationResent:     CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRegistration(ctx context.Context, regID id.RegistrationID) ([]Event, error)
}
