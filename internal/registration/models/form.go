package models

import (
	"reflect"
)

// StructuredForm is the nine-section registration document.
type StructuredForm struct {
	Verification    VerificationSection    `json:"verification"`
	PersonalInfo    PersonalInfoSection    `json:"personalInfo"`
	Professional    ProfessionalSection    `json:"professional"`
	EventAttendance EventAttendanceSection `json:"eventAttendance"`
	Sponsorship     SponsorshipSection     `json:"sponsorship"`
	Transportation  TransportationSection  `json:"transportation"`
	Accommodation   AccommodationSection   `json:"accommodation"`
	Optional        OptionalSection        `json:"optional"`
	Financial       FinancialSection       `json:"financial"`
}

// Equal reports whether two forms hold the same values.
func (f StructuredForm) Equal(other StructuredForm) bool {
	return reflect.DeepEqual(f, other)
}

// Apply returns a copy of f with every present section patched. Sections the
// patch does not carry are returned unchanged.
func (f StructuredForm) Apply(p FormPatch) StructuredForm {
	out := f
	if p.Verification != nil {
		p.Verification.ApplyTo(&out.Verification)
	}
	if p.PersonalInfo != nil {
		p.PersonalInfo.ApplyTo(&out.PersonalInfo)
	}
	if p.Professional != nil {
		p.Professional.ApplyTo(&out.Professional)
	}
	if p.EventAttendance != nil {
		p.EventAttendance.ApplyTo(&out.EventAttendance)
	}
	if p.Sponsorship != nil {
		p.Sponsorship.ApplyTo(&out.Sponsorship)
	}
	if p.Transportation != nil {
		p.Transportation.ApplyTo(&out.Transportation)
	}
	if p.Accommodation != nil {
		p.Accommodation.ApplyTo(&out.Accommodation)
	}
	if p.Optional != nil {
		p.Optional.ApplyTo(&out.Optional)
	}
	if p.Financial != nil {
		p.Financial.ApplyTo(&out.Financial)
	}
	return out
}

// FormPatch is one wizard payload. A nil section is absent.
type FormPatch struct {
	Verification    *VerificationPatch    `json:"verification,omitempty"`
	PersonalInfo    *PersonalInfoPatch    `json:"personalInfo,omitempty"`
	Professional    *ProfessionalPatch    `json:"professional,omitempty"`
	EventAttendance *EventAttendancePatch `json:"eventAttendance,omitempty"`
	Sponsorship     *SponsorshipPatch     `json:"sponsorship,omitempty"`
	Transportation  *TransportationPatch  `json:"transportation,omitempty"`
	Accommodation   *AccommodationPatch   `json:"accommodation,omitempty"`
	Optional        *OptionalPatch        `json:"optional,omitempty"`
	Financial       *FinancialPatch       `json:"financial,omitempty"`
}

// Sections lists the sections the patch carries, in form order.
func (p FormPatch) Sections() []SectionKind {
	var out []SectionKind
	add := func(present bool, k SectionKind) {
		if present {
			out = append(out, k)
		}
	}
	add(p.Verification != nil, SectionVerification)
	add(p.PersonalInfo != nil, SectionPersonalInfo)
	add(p.Professional != nil, SectionProfessional)
	add(p.EventAttendance != nil, SectionEventAttendance)
	add(p.Sponsorship != nil, SectionSponsorship)
	add(p.Transportation != nil, SectionTransportation)
	add(p.Accommodation != nil, SectionAccommodation)
	add(p.Optional != nil, SectionOptional)
	add(p.Financial != nil, SectionFinancial)
	return out
}

// IsEmpty is true when no section is present.
func (p FormPatch) IsEmpty() bool {
	return len(p.Sections()) == 0
}

// StepSection maps each wizard step to the section it is authoritative for.
var StepSection = map[int]SectionKind{
	1: SectionPersonalInfo,
	2: SectionProfessional,
	3: SectionEventAttendance,
	4: SectionSponsorship,
	5: SectionTransportation,
	6: SectionAccommodation,
	7: SectionOptional,
	8: SectionFinancial,
}
