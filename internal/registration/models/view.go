package models

import (
	"time"

	id "alumnireg/pkg/domain"
)

// Stage is the wizard position derived from the aggregate.
type Stage string

const (
	StageVerifying     Stage = "verifying"
	StagePersonalInfo  Stage = "personal_info"
	StageProfessional  Stage = "professional"
	StageAttendance    Stage = "attendance"
	StageSponsorship   Stage = "sponsorship"
	StageTransport     Stage = "transport"
	StageAccommodation Stage = "accommodation"
	StageOptional      Stage = "optional"
	StageFinancial     Stage = "financial"
	StageComplete      Stage = "complete"
	StageIncomplete    Stage = "incomplete"
)

var stepStages = [...]Stage{
	StageVerifying,
	StagePersonalInfo,
	StageProfessional,
	StageAttendance,
	StageSponsorship,
	StageTransport,
	StageAccommodation,
	StageOptional,
	StageFinancial,
}

// Stage returns the state machine position. Submitted registrations are
// terminal: complete or incomplete.
func (r *Registration) Stage() Stage {
	if r.FormSubmissionComplete {
		if r.RegistrationStatus == RegistrationComplete {
			return StageComplete
		}
		return StageIncomplete
	}
	if r.CurrentStep < VerificationStep || r.CurrentStep > FinalStep {
		return StageVerifying
	}
	return stepStages[r.CurrentStep]
}

// Summary is the flat read view of a registration. Every field is computed
// from the aggregate; nothing here is stored.
type Summary struct {
	RegistrationID         id.RegistrationID  `json:"registration_id"`
	Name                   string             `json:"name"`
	Email                  string             `json:"email"`
	ContactNumber          string             `json:"contact_number"`
	Country                string             `json:"country"`
	School                 string             `json:"school"`
	YearOfPassing          int                `json:"year_of_passing"`
	RegistrationType       string             `json:"registration_type"`
	EmailVerified          bool               `json:"email_verified"`
	IsAttending            bool               `json:"is_attending"`
	Attendees              AttendeeCounts     `json:"attendees"`
	TotalAttendees         int                `json:"total_attendees"`
	WillContribute         bool               `json:"will_contribute"`
	PledgedAmount          int64              `json:"pledged_amount"`
	ContributionAmount     int64              `json:"contribution_amount"`
	CurrentStep            int                `json:"current_step"`
	StepsComplete          []bool             `json:"steps_complete"`
	Stage                  Stage              `json:"stage"`
	FormSubmissionComplete bool               `json:"form_submission_complete"`
	RegistrationStatus     RegistrationStatus `json:"registration_status"`
	PaymentStatus          PaymentStatus      `json:"payment_status"`
	PaymentID              string             `json:"payment_id,omitempty"`
	RegistrationDate       time.Time          `json:"registration_date"`
	LastUpdated            time.Time          `json:"last_updated"`
}

// Summary derives the flat view.
func (r *Registration) Summary() Summary {
	f := r.Form
	return Summary{
		RegistrationID:         r.ID,
		Name:                   f.PersonalInfo.Name,
		Email:                  r.Email.String(),
		ContactNumber:          r.ContactNumber.String(),
		Country:                f.PersonalInfo.Country,
		School:                 f.PersonalInfo.School,
		YearOfPassing:          int(f.PersonalInfo.YearOfPassing),
		RegistrationType:       f.PersonalInfo.RegistrationType,
		EmailVerified:          f.Verification.EmailVerified,
		IsAttending:            f.EventAttendance.IsAttending,
		Attendees:              f.EventAttendance.Attendees,
		TotalAttendees:         f.EventAttendance.Attendees.Total(),
		WillContribute:         f.Financial.WillContribute || r.ContributionTotal > 0,
		PledgedAmount:          f.Financial.Pledged(),
		ContributionAmount:     r.ContributionTotal,
		CurrentStep:            r.CurrentStep,
		StepsComplete:          r.Steps.Flags(),
		Stage:                  r.Stage(),
		FormSubmissionComplete: r.FormSubmissionComplete,
		RegistrationStatus:     r.RegistrationStatus,
		PaymentStatus:          r.PaymentStatus,
		PaymentID:              r.PaymentID,
		RegistrationDate:       r.RegistrationDate,
		LastUpdated:            r.LastUpdated,
	}
}
