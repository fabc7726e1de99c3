package models

import (
	"strings"

	platformstrings "alumnireg/pkg/platform/strings"
)

// Location rules applied to personal info: state and district are only kept for
// the home country, and district only for the home state.
const (
	HomeCountry = "IN"
	HomeState   = "Kerala"
)

// SectionKind names one of the nine StructuredForm sections.
type SectionKind string

const (
	SectionVerification    SectionKind = "verification"
	SectionPersonalInfo    SectionKind = "personalInfo"
	SectionProfessional    SectionKind = "professional"
	SectionEventAttendance SectionKind = "eventAttendance"
	SectionSponsorship     SectionKind = "sponsorship"
	SectionTransportation  SectionKind = "transportation"
	SectionAccommodation   SectionKind = "accommodation"
	SectionOptional        SectionKind = "optional"
	SectionFinancial       SectionKind = "financial"
)

// -----------------------------------------------------------------------------
// Verification
// -----------------------------------------------------------------------------

type VerificationSection struct {
	EmailVerified   bool `json:"emailVerified"`
	CaptchaVerified bool `json:"captchaVerified"`
	QuizPassed      bool `json:"quizPassed"`
}

type VerificationPatch struct {
	EmailVerified   Field[bool] `json:"emailVerified,omitzero"`
	CaptchaVerified Field[bool] `json:"captchaVerified,omitzero"`
	QuizPassed      Field[bool] `json:"quizPassed,omitzero"`
}

func (p *VerificationPatch) ApplyTo(s *VerificationSection) {
	p.EmailVerified.ApplyTo(&s.EmailVerified)
	p.CaptchaVerified.ApplyTo(&s.CaptchaVerified)
	p.QuizPassed.ApplyTo(&s.QuizPassed)
}

// -----------------------------------------------------------------------------
// Personal info
// -----------------------------------------------------------------------------

type PersonalInfoSection struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	ContactNumber    string `json:"contactNumber"`
	WhatsappNumber   string `json:"whatsappNumber"`
	School           string `json:"school"`
	YearOfPassing    Year   `json:"yearOfPassing"`
	Country          string `json:"country"`
	StateUT          string `json:"stateUT"`
	District         string `json:"district"`
	BloodGroup       string `json:"bloodGroup"`
	RegistrationType string `json:"registrationType"`
}

type PersonalInfoPatch struct {
	Name             Field[string] `json:"name,omitzero"`
	Email            Field[string] `json:"email,omitzero"`
	ContactNumber    Field[string] `json:"contactNumber,omitzero"`
	WhatsappNumber   Field[string] `json:"whatsappNumber,omitzero"`
	School           Field[string] `json:"school,omitzero"`
	YearOfPassing    Field[Year]   `json:"yearOfPassing,omitzero"`
	Country          Field[string] `json:"country,omitzero"`
	StateUT          Field[string] `json:"stateUT,omitzero"`
	District         Field[string] `json:"district,omitzero"`
	BloodGroup       Field[string] `json:"bloodGroup,omitzero"`
	RegistrationType Field[string] `json:"registrationType,omitzero"`
}

func (p *PersonalInfoPatch) ApplyTo(s *PersonalInfoSection) {
	applyTrimmed(p.Name, &s.Name)
	applyTrimmed(p.Email, &s.Email)
	applyTrimmed(p.ContactNumber, &s.ContactNumber)
	applyTrimmed(p.WhatsappNumber, &s.WhatsappNumber)
	applyTrimmed(p.School, &s.School)
	p.YearOfPassing.ApplyTo(&s.YearOfPassing)
	applyTrimmed(p.Country, &s.Country)
	applyTrimmed(p.StateUT, &s.StateUT)
	applyTrimmed(p.District, &s.District)
	applyTrimmed(p.BloodGroup, &s.BloodGroup)
	applyTrimmed(p.RegistrationType, &s.RegistrationType)

	if s.RegistrationType == "" {
		s.RegistrationType = DefaultRegistrationType
	}
	if s.Country != HomeCountry {
		s.StateUT = ""
		s.District = ""
	}
	if s.StateUT != HomeState {
		s.District = ""
	}
}

// DefaultRegistrationType is assigned when the registrant does not pick one.
const DefaultRegistrationType = "Alumni"

// -----------------------------------------------------------------------------
// Professional
// -----------------------------------------------------------------------------

type ProfessionalSection struct {
	Profession          string `json:"profession"`
	ProfessionalDetails string `json:"professionalDetails"`
	AreaOfExpertise     string `json:"areaOfExpertise"`
	KeySkills           string `json:"keySkills"`
}

type ProfessionalPatch struct {
	Profession          Field[string] `json:"profession,omitzero"`
	ProfessionalDetails Field[string] `json:"professionalDetails,omitzero"`
	AreaOfExpertise     Field[string] `json:"areaOfExpertise,omitzero"`
	KeySkills           Field[string] `json:"keySkills,omitzero"`
}

func (p *ProfessionalPatch) ApplyTo(s *ProfessionalSection) {
	applyTrimmed(p.Profession, &s.Profession)
	applyTrimmed(p.ProfessionalDetails, &s.ProfessionalDetails)
	applyTrimmed(p.AreaOfExpertise, &s.AreaOfExpertise)
	applyTrimmed(p.KeySkills, &s.KeySkills)
}

// -----------------------------------------------------------------------------
// Event attendance
// -----------------------------------------------------------------------------

// MealSplit counts one age bracket by meal preference.
type MealSplit struct {
	Veg    int `json:"veg"`
	NonVeg int `json:"nonVeg"`
}

func (m MealSplit) Total() int { return max(m.Veg, 0) + max(m.NonVeg, 0) }

// AttendeeCounts is the party size per age bracket.
type AttendeeCounts struct {
	Adults   MealSplit `json:"adults"`
	Teens    MealSplit `json:"teens"`
	Children MealSplit `json:"children"`
	Toddlers MealSplit `json:"toddlers"`
}

// Total counts every attendee including toddlers.
func (a AttendeeCounts) Total() int {
	return a.Adults.Total() + a.Teens.Total() + a.Children.Total() + a.Toddlers.Total()
}

func (a AttendeeCounts) valid() bool {
	for _, m := range []MealSplit{a.Adults, a.Teens, a.Children, a.Toddlers} {
		if m.Veg < 0 || m.NonVeg < 0 {
			return false
		}
	}
	return true
}

type EventAttendanceSection struct {
	IsAttending          bool           `json:"isAttending"`
	Attendees            AttendeeCounts `json:"attendees"`
	EventContribution    []string       `json:"eventContribution"`
	ContributionDetails  string         `json:"contributionDetails"`
	EventParticipation   []string       `json:"eventParticipation"`
	ParticipationDetails string         `json:"participationDetails"`
}

type EventAttendancePatch struct {
	IsAttending          Field[bool]           `json:"isAttending,omitzero"`
	Attendees            Field[AttendeeCounts] `json:"attendees,omitzero"`
	EventContribution    Field[[]string]       `json:"eventContribution,omitzero"`
	ContributionDetails  Field[string]         `json:"contributionDetails,omitzero"`
	EventParticipation   Field[[]string]       `json:"eventParticipation,omitzero"`
	ParticipationDetails Field[string]         `json:"participationDetails,omitzero"`
}

func (p *EventAttendancePatch) ApplyTo(s *EventAttendanceSection) {
	p.IsAttending.ApplyTo(&s.IsAttending)
	p.Attendees.ApplyTo(&s.Attendees)
	applyList(p.EventContribution, &s.EventContribution)
	applyTrimmed(p.ContributionDetails, &s.ContributionDetails)
	applyList(p.EventParticipation, &s.EventParticipation)
	applyTrimmed(p.ParticipationDetails, &s.ParticipationDetails)
}

// -----------------------------------------------------------------------------
// Sponsorship
// -----------------------------------------------------------------------------

type SponsorshipSection struct {
	InterestedInSponsorship bool   `json:"interestedInSponsorship"`
	CanReferSponsorship     bool   `json:"canReferSponsorship"`
	SponsorshipTier         string `json:"sponsorshipTier"`
	SponsorshipDetails      string `json:"sponsorshipDetails"`
}

type SponsorshipPatch struct {
	InterestedInSponsorship Field[bool]   `json:"interestedInSponsorship,omitzero"`
	CanReferSponsorship     Field[bool]   `json:"canReferSponsorship,omitzero"`
	SponsorshipTier         Field[string] `json:"sponsorshipTier,omitzero"`
	SponsorshipDetails      Field[string] `json:"sponsorshipDetails,omitzero"`
}

func (p *SponsorshipPatch) ApplyTo(s *SponsorshipSection) {
	p.InterestedInSponsorship.ApplyTo(&s.InterestedInSponsorship)
	p.CanReferSponsorship.ApplyTo(&s.CanReferSponsorship)
	applyTrimmed(p.SponsorshipTier, &s.SponsorshipTier)
	applyTrimmed(p.SponsorshipDetails, &s.SponsorshipDetails)
}

// -----------------------------------------------------------------------------
// Transportation
// -----------------------------------------------------------------------------

type TransportationSection struct {
	IsTravelling                      bool   `json:"isTravelling"`
	TravelConsistsTwoSegments         bool   `json:"travelConsistsTwoSegments"`
	ConnectWithNavodayansFirstSegment bool   `json:"connectWithNavodayansFirstSegment"`
	FirstSegmentStartingLocation      string `json:"firstSegmentStartingLocation"`
	FirstSegmentTravelDate            string `json:"firstSegmentTravelDate"`
	StartingLocation                  string `json:"startingLocation"`
	StartPincode                      string `json:"startPincode"`
	PinDistrict                       string `json:"pinDistrict"`
	PinState                          string `json:"pinState"`
	PinTaluk                          string `json:"pinTaluk"`
	NearestLandmark                   string `json:"nearestLandmark"`
	TravelDate                        string `json:"travelDate"`
	TravelTime                        string `json:"travelTime"`
	ModeOfTransport                   string `json:"modeOfTransport"`
	NeedParking                       bool   `json:"needParking"`
	ConnectWithNavodayans             bool   `json:"connectWithNavodayans"`
	ReadyForRideShare                 bool   `json:"readyForRideShare"`
	VehicleCapacity                   int    `json:"vehicleCapacity"`
	GroupSize                         int    `json:"groupSize"`
	TravelSpecialRequirements         string `json:"travelSpecialRequirements"`
}

type TransportationPatch struct {
	IsTravelling                      Field[bool]   `json:"isTravelling,omitzero"`
	TravelConsistsTwoSegments         Field[bool]   `json:"travelConsistsTwoSegments,omitzero"`
	ConnectWithNavodayansFirstSegment Field[bool]   `json:"connectWithNavodayansFirstSegment,omitzero"`
	FirstSegmentStartingLocation      Field[string] `json:"firstSegmentStartingLocation,omitzero"`
	FirstSegmentTravelDate            Field[string] `json:"firstSegmentTravelDate,omitzero"`
	StartingLocation                  Field[string] `json:"startingLocation,omitzero"`
	StartPincode                      Field[string] `json:"startPincode,omitzero"`
	PinDistrict                       Field[string] `json:"pinDistrict,omitzero"`
	PinState                          Field[string] `json:"pinState,omitzero"`
	PinTaluk                          Field[string] `json:"pinTaluk,omitzero"`
	NearestLandmark                   Field[string] `json:"nearestLandmark,omitzero"`
	TravelDate                        Field[string] `json:"travelDate,omitzero"`
	TravelTime                        Field[string] `json:"travelTime,omitzero"`
	ModeOfTransport                   Field[string] `json:"modeOfTransport,omitzero"`
	NeedParking                       Field[bool]   `json:"needParking,omitzero"`
	ConnectWithNavodayans             Field[bool]   `json:"connectWithNavodayans,omitzero"`
	ReadyForRideShare                 Field[bool]   `json:"readyForRideShare,omitzero"`
	VehicleCapacity                   Field[int]    `json:"vehicleCapacity,omitzero"`
	GroupSize                         Field[int]    `json:"groupSize,omitzero"`
	TravelSpecialRequirements         Field[string] `json:"travelSpecialRequirements,omitzero"`
}

func (p *TransportationPatch) ApplyTo(s *TransportationSection) {
	p.IsTravelling.ApplyTo(&s.IsTravelling)
	p.TravelConsistsTwoSegments.ApplyTo(&s.TravelConsistsTwoSegments)
	p.ConnectWithNavodayansFirstSegment.ApplyTo(&s.ConnectWithNavodayansFirstSegment)
	applyTrimmed(p.FirstSegmentStartingLocation, &s.FirstSegmentStartingLocation)
	applyTrimmed(p.FirstSegmentTravelDate, &s.FirstSegmentTravelDate)
	applyTrimmed(p.StartingLocation, &s.StartingLocation)
	applyTrimmed(p.StartPincode, &s.StartPincode)
	applyTrimmed(p.PinDistrict, &s.PinDistrict)
	applyTrimmed(p.PinState, &s.PinState)
	applyTrimmed(p.PinTaluk, &s.PinTaluk)
	applyTrimmed(p.NearestLandmark, &s.NearestLandmark)
	applyTrimmed(p.TravelDate, &s.TravelDate)
	applyTrimmed(p.TravelTime, &s.TravelTime)
	applyTrimmed(p.ModeOfTransport, &s.ModeOfTransport)
	p.NeedParking.ApplyTo(&s.NeedParking)
	p.ConnectWithNavodayans.ApplyTo(&s.ConnectWithNavodayans)
	p.ReadyForRideShare.ApplyTo(&s.ReadyForRideShare)
	p.VehicleCapacity.ApplyTo(&s.VehicleCapacity)
	p.GroupSize.ApplyTo(&s.GroupSize)
	applyTrimmed(p.TravelSpecialRequirements, &s.TravelSpecialRequirements)
}

// -----------------------------------------------------------------------------
// Accommodation
// -----------------------------------------------------------------------------

// GenderCounts counts beds needed per gender.
type GenderCounts struct {
	Male   int `json:"male"`
	Female int `json:"female"`
	Other  int `json:"other"`
}

// HotelRequirements describes a paid hotel booking request.
type HotelRequirements struct {
	Adults          int    `json:"adults"`
	ChildrenAbove11 int    `json:"childrenAbove11"`
	Children5to11   int    `json:"children5to11"`
	CheckInDate     string `json:"checkInDate"`
	CheckOutDate    string `json:"checkOutDate"`
	RoomPreference  string `json:"roomPreference"`
	SpecialRequests string `json:"specialRequests"`
}

type AccommodationSection struct {
	PlanAccommodation          bool              `json:"planAccommodation"`
	Accommodation              string            `json:"accommodation"`
	AccommodationGender        string            `json:"accommodationGender"`
	AccommodationNeeded        GenderCounts      `json:"accommodationNeeded"`
	AccommodationPincode       string            `json:"accommodationPincode"`
	AccommodationDistrict      string            `json:"accommodationDistrict"`
	AccommodationState         string            `json:"accommodationState"`
	AccommodationTaluk         string            `json:"accommodationTaluk"`
	AccommodationLandmark      string            `json:"accommodationLandmark"`
	AccommodationSubPostOffice string            `json:"accommodationSubPostOffice"`
	AccommodationArea          string            `json:"accommodationArea"`
	AccommodationCapacity      int               `json:"accommodationCapacity"`
	AccommodationLocation      string            `json:"accommodationLocation"`
	AccommodationRemarks       string            `json:"accommodationRemarks"`
	HotelRequirements          HotelRequirements `json:"hotelRequirements"`
}

type AccommodationPatch struct {
	PlanAccommodation          Field[bool]              `json:"planAccommodation,omitzero"`
	Accommodation              Field[string]            `json:"accommodation,omitzero"`
	AccommodationGender        Field[string]            `json:"accommodationGender,omitzero"`
	AccommodationNeeded        Field[GenderCounts]      `json:"accommodationNeeded,omitzero"`
	AccommodationPincode       Field[string]            `json:"accommodationPincode,omitzero"`
	AccommodationDistrict      Field[string]            `json:"accommodationDistrict,omitzero"`
	AccommodationState         Field[string]            `json:"accommodationState,omitzero"`
	AccommodationTaluk         Field[string]            `json:"accommodationTaluk,omitzero"`
	AccommodationLandmark      Field[string]            `json:"accommodationLandmark,omitzero"`
	AccommodationSubPostOffice Field[string]            `json:"accommodationSubPostOffice,omitzero"`
	AccommodationArea          Field[string]            `json:"accommodationArea,omitzero"`
	AccommodationCapacity      Field[int]               `json:"accommodationCapacity,omitzero"`
	AccommodationLocation      Field[string]            `json:"accommodationLocation,omitzero"`
	AccommodationRemarks       Field[string]            `json:"accommodationRemarks,omitzero"`
	HotelRequirements          Field[HotelRequirements] `json:"hotelRequirements,omitzero"`
}

func (p *AccommodationPatch) ApplyTo(s *AccommodationSection) {
	p.PlanAccommodation.ApplyTo(&s.PlanAccommodation)
	applyTrimmed(p.Accommodation, &s.Accommodation)
	applyTrimmed(p.AccommodationGender, &s.AccommodationGender)
	p.AccommodationNeeded.ApplyTo(&s.AccommodationNeeded)
	applyTrimmed(p.AccommodationPincode, &s.AccommodationPincode)
	applyTrimmed(p.AccommodationDistrict, &s.AccommodationDistrict)
	applyTrimmed(p.AccommodationState, &s.AccommodationState)
	applyTrimmed(p.AccommodationTaluk, &s.AccommodationTaluk)
	applyTrimmed(p.AccommodationLandmark, &s.AccommodationLandmark)
	applyTrimmed(p.AccommodationSubPostOffice, &s.AccommodationSubPostOffice)
	applyTrimmed(p.AccommodationArea, &s.AccommodationArea)
	p.AccommodationCapacity.ApplyTo(&s.AccommodationCapacity)
	applyTrimmed(p.AccommodationLocation, &s.AccommodationLocation)
	applyTrimmed(p.AccommodationRemarks, &s.AccommodationRemarks)
	p.HotelRequirements.ApplyTo(&s.HotelRequirements)
}

// -----------------------------------------------------------------------------
// Optional
// -----------------------------------------------------------------------------

type OptionalSection struct {
	SpouseNavodayan   string         `json:"spouseNavodayan"`
	UnmaFamilyGroups  string         `json:"unmaFamilyGroups"`
	MentorshipOptions []string       `json:"mentorshipOptions"`
	TrainingOptions   []string       `json:"trainingOptions"`
	SeminarOptions    []string       `json:"seminarOptions"`
	TshirtInterest    string         `json:"tshirtInterest"`
	TshirtSizes       map[string]int `json:"tshirtSizes"`
}

type OptionalPatch struct {
	SpouseNavodayan   Field[string]         `json:"spouseNavodayan,omitzero"`
	UnmaFamilyGroups  Field[string]         `json:"unmaFamilyGroups,omitzero"`
	MentorshipOptions Field[[]string]       `json:"mentorshipOptions,omitzero"`
	TrainingOptions   Field[[]string]       `json:"trainingOptions,omitzero"`
	SeminarOptions    Field[[]string]       `json:"seminarOptions,omitzero"`
	TshirtInterest    Field[string]         `json:"tshirtInterest,omitzero"`
	TshirtSizes       Field[map[string]int] `json:"tshirtSizes,omitzero"`
}

func (p *OptionalPatch) ApplyTo(s *OptionalSection) {
	applyTrimmed(p.SpouseNavodayan, &s.SpouseNavodayan)
	applyTrimmed(p.UnmaFamilyGroups, &s.UnmaFamilyGroups)
	applyList(p.MentorshipOptions, &s.MentorshipOptions)
	applyList(p.TrainingOptions, &s.TrainingOptions)
	applyList(p.SeminarOptions, &s.SeminarOptions)
	applyTrimmed(p.TshirtInterest, &s.TshirtInterest)
	if sizes, ok := p.TshirtSizes.Get(); ok {
		cleaned := make(map[string]int, len(sizes))
		for size, n := range sizes {
			if n > 0 {
				cleaned[strings.ToUpper(strings.TrimSpace(size))] += n
			}
		}
		s.TshirtSizes = cleaned
	}
}

// -----------------------------------------------------------------------------
// Financial
// -----------------------------------------------------------------------------

// FinancialSection holds what the registrant pledges. Payment state is owned by
// the aggregate and never taken from the client.
type FinancialSection struct {
	WillContribute     bool   `json:"willContribute"`
	ContributionAmount Amount `json:"contributionAmount"`
	ProposedAmount     Amount `json:"proposedAmount"`
	HardshipDeclined   bool   `json:"hardshipDeclined"`
	PaymentRemarks     string `json:"paymentRemarks"`
}

// Pledged is the amount the registrant intends to pay.
func (f FinancialSection) Pledged() int64 {
	if f.ContributionAmount > 0 {
		return int64(f.ContributionAmount)
	}
	return int64(f.ProposedAmount)
}

type FinancialPatch struct {
	WillContribute     Field[bool]   `json:"willContribute,omitzero"`
	ContributionAmount Field[Amount] `json:"contributionAmount,omitzero"`
	ProposedAmount     Field[Amount] `json:"proposedAmount,omitzero"`
	HardshipDeclined   Field[bool]   `json:"hardshipDeclined,omitzero"`
	PaymentRemarks     Field[string] `json:"paymentRemarks,omitzero"`
}

func (p *FinancialPatch) ApplyTo(s *FinancialSection) {
	p.WillContribute.ApplyTo(&s.WillContribute)
	p.ContributionAmount.ApplyTo(&s.ContributionAmount)
	p.ProposedAmount.ApplyTo(&s.ProposedAmount)
	p.HardshipDeclined.ApplyTo(&s.HardshipDeclined)
	applyTrimmed(p.PaymentRemarks, &s.PaymentRemarks)
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func applyTrimmed(f Field[string], dst *string) {
	if v, ok := f.Get(); ok {
		*dst = strings.TrimSpace(v)
	}
}

func applyList(f Field[[]string], dst *[]string) {
	if v, ok := f.Get(); ok {
		*dst = platformstrings.NormalizeSelection(v)
	}
}
