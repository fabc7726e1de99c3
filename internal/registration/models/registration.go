package models

import (
	"time"

	"alumnireg/internal/contribution"
	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
)

// Wizard bounds. Step 0 is the verification gate and is complete from creation.
const (
	VerificationStep = 0
	FirstStep        = 1
	FinalStep        = 8
)

// RegistrationStatus is the terminal split decided at the final step.
type RegistrationStatus string

const (
	RegistrationComplete   RegistrationStatus = "complete"
	RegistrationIncomplete RegistrationStatus = "incomplete"
)

// PaymentStatus tracks the registrant's contribution.
type PaymentStatus string

const (
	PaymentPending             PaymentStatus = "Pending"
	PaymentCompleted           PaymentStatus = "Completed"
	PaymentFinancialDifficulty PaymentStatus = "financial-difficulty"
)

// StepSet is the set of completed steps 0..8 as a bitmask.
type StepSet uint16

func (s StepSet) Has(step int) bool {
	return step >= VerificationStep && step <= FinalStep && s&(1<<step) != 0
}

func (s StepSet) With(step int) StepSet {
	if step < VerificationStep || step > FinalStep {
		return s
	}
	return s | 1<<step
}

// Flags expands the set into step0..step8 booleans.
func (s StepSet) Flags() []bool {
	out := make([]bool, FinalStep+1)
	for i := range out {
		out[i] = s.Has(i)
	}
	return out
}

// MinimumCalculator computes the minimum contribution for a party.
type MinimumCalculator interface {
	Minimum(h contribution.Headcount, yearOfPassing int) int64
}

// Registration is the aggregate of record for one attendee.
//
// Invariants:
//   - Email and ContactNumber are bound at creation and never change
//   - CurrentStep never decreases
//   - FormSubmissionComplete only becomes true by saving the final step
//   - ContributionTotal only decreases through CorrectContribution
//   - Version increases by one on every persisted write
type Registration struct {
	ID                     id.RegistrationID  `json:"id"`
	Email                  id.Email           `json:"email"`
	ContactNumber          id.ContactNumber   `json:"contact_number"`
	VerificationID         id.VerificationID  `json:"verification_id"`
	Form                   StructuredForm     `json:"form"`
	CurrentStep            int                `json:"current_step"`
	Steps                  StepSet            `json:"steps"`
	FormSubmissionComplete bool               `json:"form_submission_complete"`
	RegistrationStatus     RegistrationStatus `json:"registration_status"`
	PaymentStatus          PaymentStatus      `json:"payment_status"`
	ContributionTotal      int64              `json:"contribution_total"`
	PaymentID              string             `json:"payment_id,omitempty"`
	RegistrationDate       time.Time          `json:"registration_date"`
	LastUpdated            time.Time          `json:"last_updated"`
	Version                int64              `json:"version"`
}

// NewRegistration creates the aggregate from a step-1 payload. The verified
// identity overrides whatever the payload carries for email and contact.
func NewRegistration(
	regID id.RegistrationID,
	email id.Email,
	contact id.ContactNumber,
	verificationID id.VerificationID,
	patch FormPatch,
	now time.Time,
) (*Registration, error) {
	if regID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration id is required")
	}
	if email == "" || contact == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verified identity is required")
	}
	if patch.PersonalInfo == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "personalInfo is required at step 1")
	}
	if err := checkCounts(patch); err != nil {
		return nil, err
	}
	if err := checkIdentity(patch, email, contact); err != nil {
		return nil, err
	}

	form := StructuredForm{}.Apply(patch)
	form.PersonalInfo.Email = email.String()
	form.PersonalInfo.ContactNumber = contact.String()
	form.Verification.EmailVerified = true
	if form.PersonalInfo.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "personalInfo.name is required")
	}

	return &Registration{
		ID:                 regID,
		Email:              email,
		ContactNumber:      contact,
		VerificationID:     verificationID,
		Form:               form,
		CurrentStep:        FirstStep,
		Steps:              StepSet(0).With(VerificationStep).With(FirstStep),
		RegistrationStatus: RegistrationIncomplete,
		PaymentStatus:      PaymentPending,
		RegistrationDate:   now,
		LastUpdated:        now,
		Version:            1,
	}, nil
}

// StepOutcome reports what MergeStep changed.
type StepOutcome struct {
	// Changed is false for an idempotent re-submission; nothing was touched.
	Changed bool
	// Submitted is true on the first transition to FormSubmissionComplete.
	Submitted bool
	// HardshipDeclared is true when this save moved payment into financial difficulty.
	HardshipDeclared bool
	// Minimum is the contribution minimum evaluated at the final step.
	Minimum int64
}

// CanMergeStep validates a step save without touching the aggregate.
func (r *Registration) CanMergeStep(step int, patch FormPatch) error {
	if step < FirstStep || step > FinalStep {
		return dErrors.New(dErrors.CodeValidation, "step must be between 1 and 8")
	}
	if patch.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "step_data must contain at least one section")
	}
	if err := checkCounts(patch); err != nil {
		return err
	}
	return checkIdentity(patch, r.Email, r.ContactNumber)
}

// MergeStep patches the form and advances the wizard. The aggregate is only
// mutated when the step is valid and actually changes something.
func (r *Registration) MergeStep(step int, patch FormPatch, calc MinimumCalculator, now time.Time) (StepOutcome, error) {
	if err := r.CanMergeStep(step, patch); err != nil {
		return StepOutcome{}, err
	}

	next := *r
	next.Form = r.Form.Apply(patch)
	next.Form.PersonalInfo.Email = r.Email.String()
	next.Form.PersonalInfo.ContactNumber = r.ContactNumber.String()
	next.Steps = r.Steps.With(step)
	next.CurrentStep = max(r.CurrentStep, step)

	var outcome StepOutcome
	if step == FinalStep {
		next.FormSubmissionComplete = true
		minimum, err := next.finalize(calc)
		if err != nil {
			return StepOutcome{}, err
		}
		outcome.Minimum = minimum
		outcome.Submitted = !r.FormSubmissionComplete
		outcome.HardshipDeclared = next.InHardship() && !r.InHardship()
	}

	if next.sameState(r) {
		return StepOutcome{Minimum: outcome.Minimum}, nil
	}
	next.LastUpdated = now
	*r = next
	outcome.Changed = true
	return outcome, nil
}

// finalize decides the terminal split for a submitted form.
func (r *Registration) finalize(calc MinimumCalculator) (int64, error) {
	attending := r.Form.EventAttendance.IsAttending
	pledged := r.Form.Financial.Pledged()
	minimum := r.Minimum(calc)

	if r.Form.Financial.HardshipDeclined {
		// Money already received counts towards the shortfall.
		if !contribution.RequiresHardshipFlow(max(pledged, r.ContributionTotal), minimum, attending) {
			return 0, dErrors.WithMeta(
				dErrors.New(dErrors.CodeValidation, "hardship decline requires an attending party pledging a positive amount below the minimum"),
				"minimum_contribution", minimum,
			)
		}
		r.RegistrationStatus = RegistrationIncomplete
		if r.ContributionTotal > 0 {
			r.PaymentStatus = PaymentCompleted
		} else {
			r.PaymentStatus = PaymentFinancialDifficulty
		}
		return minimum, nil
	}

	if r.PaymentStatus == PaymentFinancialDifficulty {
		r.PaymentStatus = r.paidStatus()
	}
	if contribution.Satisfied(max(pledged, r.ContributionTotal), minimum, attending) {
		r.RegistrationStatus = RegistrationComplete
	} else {
		r.RegistrationStatus = RegistrationIncomplete
	}
	return minimum, nil
}

// InHardship reports a submitted form that took the hardship decline branch.
func (r *Registration) InHardship() bool {
	return r.FormSubmissionComplete && r.Form.Financial.HardshipDeclined &&
		r.RegistrationStatus == RegistrationIncomplete
}

// Minimum evaluates the contribution minimum for the party on the form.
func (r *Registration) Minimum(calc MinimumCalculator) int64 {
	return calc.Minimum(r.Headcount(), int(r.Form.PersonalInfo.YearOfPassing))
}

// Headcount is the chargeable party from the attendance section.
func (r *Registration) Headcount() contribution.Headcount {
	a := r.Form.EventAttendance.Attendees
	return contribution.Headcount{
		Adults:   a.Adults.Total(),
		Teens:    a.Teens.Total(),
		Children: a.Children.Total(),
	}
}

// CanApplyPayment validates a reconciled payment.
func (r *Registration) CanApplyPayment(amount int64) error {
	if amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than 0")
	}
	return nil
}

// ApplyPayment adds a reconciled payment to the running total. A submitted
// registration is promoted to complete once the total meets the minimum; a
// payment never demotes it.
func (r *Registration) ApplyPayment(txID id.TransactionID, amount int64, calc MinimumCalculator, now time.Time) {
	r.ContributionTotal += amount
	r.PaymentStatus = PaymentCompleted
	r.PaymentID = txID.String()
	if r.FormSubmissionComplete && r.RegistrationStatus != RegistrationComplete &&
		contribution.Satisfied(r.ContributionTotal, r.Minimum(calc), r.Form.EventAttendance.IsAttending) {
		r.RegistrationStatus = RegistrationComplete
	}
	r.LastUpdated = now
}

// CorrectContribution sets the cumulative contribution to total. It is the only
// path that may lower the total.
func (r *Registration) CorrectContribution(total int64, calc MinimumCalculator, now time.Time) error {
	if total < 0 {
		return dErrors.New(dErrors.CodeValidation, "contribution_total must not be negative")
	}
	r.ContributionTotal = total
	if r.PaymentStatus != PaymentFinancialDifficulty {
		r.PaymentStatus = r.paidStatus()
	}
	if r.FormSubmissionComplete && !r.Form.Financial.HardshipDeclined {
		amount := max(r.Form.Financial.Pledged(), total)
		if contribution.Satisfied(amount, r.Minimum(calc), r.Form.EventAttendance.IsAttending) {
			r.RegistrationStatus = RegistrationComplete
		} else {
			r.RegistrationStatus = RegistrationIncomplete
		}
	}
	r.LastUpdated = now
	return nil
}

func (r *Registration) paidStatus() PaymentStatus {
	if r.ContributionTotal > 0 {
		return PaymentCompleted
	}
	return PaymentPending
}

func (r *Registration) sameState(other *Registration) bool {
	return r.CurrentStep == other.CurrentStep &&
		r.Steps == other.Steps &&
		r.FormSubmissionComplete == other.FormSubmissionComplete &&
		r.RegistrationStatus == other.RegistrationStatus &&
		r.PaymentStatus == other.PaymentStatus &&
		r.Form.Equal(other.Form)
}

func checkCounts(patch FormPatch) error {
	if patch.EventAttendance == nil {
		return nil
	}
	if a, ok := patch.EventAttendance.Attendees.Get(); ok && !a.valid() {
		return dErrors.New(dErrors.CodeValidation, "attendee counts must not be negative")
	}
	return nil
}

// checkIdentity rejects a patch that tries to rebind email or contact.
func checkIdentity(patch FormPatch, email id.Email, contact id.ContactNumber) error {
	if patch.PersonalInfo == nil {
		return nil
	}
	if raw, ok := patch.PersonalInfo.Email.Get(); ok {
		parsed, err := id.ParseEmail(raw)
		if err != nil {
			return err
		}
		if parsed != email {
			return dErrors.New(dErrors.CodeValidation, "email cannot be changed after registration")
		}
	}
	if raw, ok := patch.PersonalInfo.ContactNumber.Get(); ok {
		parsed, err := id.ParseContactNumber(raw)
		if err != nil {
			return err
		}
		if parsed != contact {
			return dErrors.New(dErrors.CodeValidation, "contact number cannot be changed after registration")
		}
	}
	return nil
}
