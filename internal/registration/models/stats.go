package models

// Stats aggregates registrations for the operator dashboard.
type Stats struct {
	Total              int                   `json:"total"`
	Submitted          int                   `json:"submitted"`
	Attending          int                   `json:"attending"`
	TotalAttendees     int                   `json:"total_attendees"`
	Hardship           int                   `json:"hardship"`
	ContributionTotal  int64                 `json:"contribution_total"`
	ByRegistrationType map[string]int        `json:"by_registration_type"`
	ByPaymentStatus    map[PaymentStatus]int `json:"by_payment_status"`
}

// NewStats returns empty stats with initialized maps.
func NewStats() Stats {
	return Stats{
		ByRegistrationType: map[string]int{},
		ByPaymentStatus:    map[PaymentStatus]int{},
	}
}

// Add counts one registration.
func (s *Stats) Add(r *Registration) {
	s.Total++
	if r.FormSubmissionComplete {
		s.Submitted++
	}
	if r.Form.EventAttendance.IsAttending {
		s.Attending++
		s.TotalAttendees += r.Form.EventAttendance.Attendees.Total()
	}
	if r.InHardship() {
		s.Hardship++
	}
	s.ContributionTotal += r.ContributionTotal
	regType := r.Form.PersonalInfo.RegistrationType
	if regType == "" {
		regType = DefaultRegistrationType
	}
	s.ByRegistrationType[regType]++
	s.ByPaymentStatus[r.PaymentStatus]++
}
