package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"alumnireg/internal/contribution"
	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
)

type RegistrationSuite struct {
	suite.Suite
	now    time.Time
	policy *contribution.Policy
	email  id.Email
	phone  id.ContactNumber
}

func TestRegistrationSuite(t *testing.T) {
	suite.Run(t, new(RegistrationSuite))
}

func (s *RegistrationSuite) SetupTest() {
	s.now = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	s.policy = contribution.NewPolicy(contribution.Rates{Standard: 500, RecentGraduate: 350, Youth: 350}, 2025, 2)
	s.email = id.Email("a@x.com")
	s.phone = id.ContactNumber("+911234567890")
}

func (s *RegistrationSuite) patch(raw string) FormPatch {
	return decodePatch(s.T(), raw)
}

func (s *RegistrationSuite) newRegistration() *Registration {
	reg, err := NewRegistration(id.NewRegistrationID(), s.email, s.phone, id.NewVerificationID(), s.patch(`{
		"personalInfo": {
			"name": "Asha Menon",
			"email": "A@X.com",
			"contactNumber": "+91 12345 67890",
			"country": "IN",
			"stateUT": "Kerala",
			"district": "Thrissur",
			"school": "JNV Thrissur",
			"yearOfPassing": "2010"
		}
	}`), s.now)
	s.Require().NoError(err)
	return reg
}

func (s *RegistrationSuite) TestConstruction() {
	s.Run("seeds step 1 state", func() {
		reg := s.newRegistration()
		s.Equal(1, reg.CurrentStep)
		s.True(reg.Steps.Has(0))
		s.True(reg.Steps.Has(1))
		s.False(reg.Steps.Has(2))
		s.Equal(RegistrationIncomplete, reg.RegistrationStatus)
		s.Equal(PaymentPending, reg.PaymentStatus)
		s.True(reg.Form.Verification.EmailVerified)
		s.Equal("a@x.com", reg.Form.PersonalInfo.Email)
		s.Equal(DefaultRegistrationType, reg.Form.PersonalInfo.RegistrationType)
		s.Equal(int64(1), reg.Version)
	})

	s.Run("requires personal info", func() {
		_, err := NewRegistration(id.NewRegistrationID(), s.email, s.phone, id.NewVerificationID(),
			s.patch(`{"professional": {"profession": "Doctor"}}`), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a different email in the payload", func() {
		_, err := NewRegistration(id.NewRegistrationID(), s.email, s.phone, id.NewVerificationID(),
			s.patch(`{"personalInfo": {"name": "B", "email": "b@x.com"}}`), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("requires a name", func() {
		_, err := NewRegistration(id.NewRegistrationID(), s.email, s.phone, id.NewVerificationID(),
			s.patch(`{"personalInfo": {"school": "JNV"}}`), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *RegistrationSuite) TestLocationRules() {
	reg := s.newRegistration()
	s.Equal("Thrissur", reg.Form.PersonalInfo.District)

	_, err := reg.MergeStep(1, s.patch(`{"personalInfo": {"stateUT": "Karnataka"}}`), s.policy, s.now)
	s.Require().NoError(err)
	s.Equal("Karnataka", reg.Form.PersonalInfo.StateUT)
	s.Empty(reg.Form.PersonalInfo.District)

	_, err = reg.MergeStep(1, s.patch(`{"personalInfo": {"country": "AE"}}`), s.policy, s.now)
	s.Require().NoError(err)
	s.Empty(reg.Form.PersonalInfo.StateUT)
	s.Empty(reg.Form.PersonalInfo.District)
}

func (s *RegistrationSuite) TestMergeStepValidation() {
	reg := s.newRegistration()

	for _, step := range []int{0, 9, -1} {
		_, err := reg.MergeStep(step, s.patch(`{"professional": {"profession": "x"}}`), s.policy, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), "step %d", step)
	}

	_, err := reg.MergeStep(2, FormPatch{}, s.policy, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = reg.MergeStep(2, s.patch(`{"personalInfo": {"contactNumber": "+919999999999"}}`), s.policy, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = reg.MergeStep(3, s.patch(`{"eventAttendance": {"attendees": {"adults": {"veg": -1}}}}`), s.policy, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	s.Equal(1, reg.CurrentStep, "failed merges do not advance the wizard")
}

func (s *RegistrationSuite) TestMergeIsIdempotent() {
	reg := s.newRegistration()
	payload := `{"professional": {"profession": "Doctor", "keySkills": "Surgery"}}`

	first, err := reg.MergeStep(2, s.patch(payload), s.policy, s.now)
	s.Require().NoError(err)
	s.True(first.Changed)
	snapshot := *reg

	second, err := reg.MergeStep(2, s.patch(payload), s.policy, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.False(second.Changed)
	s.Equal(snapshot, *reg)
}

func (s *RegistrationSuite) TestSectionIsolation() {
	reg := s.newRegistration()
	_, err := reg.MergeStep(5, s.patch(`{"transportation": {"isTravelling": true, "modeOfTransport": "Train"}}`), s.policy, s.now)
	s.Require().NoError(err)
	personal := reg.Form.PersonalInfo
	transport := reg.Form.Transportation

	_, err = reg.MergeStep(3, s.patch(`{"eventAttendance": {"isAttending": true, "attendees": {"adults": {"veg": 2}}}}`), s.policy, s.now)
	s.Require().NoError(err)

	s.Equal(personal, reg.Form.PersonalInfo)
	s.Equal(transport, reg.Form.Transportation)
	s.Equal(5, reg.CurrentStep, "current step never moves backwards")
	s.True(reg.Steps.Has(3))
	s.True(reg.Steps.Has(5))
	s.False(reg.Steps.Has(4))
}

func (s *RegistrationSuite) TestFinalStep() {
	attending := `{"eventAttendance": {"isAttending": true, "attendees": {"adults": {"veg": 1, "nonVeg": 1}, "teens": {"veg": 1}}}}`

	s.Run("pledge at or above the minimum completes", func() {
		reg := s.newRegistration()
		_, err := reg.MergeStep(3, s.patch(attending), s.policy, s.now)
		s.Require().NoError(err)

		out, err := reg.MergeStep(8, s.patch(`{"financial": {"willContribute": true, "contributionAmount": 2000}}`), s.policy, s.now)
		s.Require().NoError(err)
		s.True(out.Submitted)
		s.Equal(int64(1350), out.Minimum)
		s.True(reg.FormSubmissionComplete)
		s.Equal(RegistrationComplete, reg.RegistrationStatus)
		s.Equal(PaymentPending, reg.PaymentStatus)
		s.Equal(StageComplete, reg.Stage())
	})

	s.Run("pledge below the minimum is incomplete", func() {
		reg := s.newRegistration()
		_, err := reg.MergeStep(3, s.patch(attending), s.policy, s.now)
		s.Require().NoError(err)

		_, err = reg.MergeStep(8, s.patch(`{"financial": {"contributionAmount": 500}}`), s.policy, s.now)
		s.Require().NoError(err)
		s.Equal(RegistrationIncomplete, reg.RegistrationStatus)
		s.Equal(StageIncomplete, reg.Stage())
	})

	s.Run("hardship decline marks financial difficulty", func() {
		reg := s.newRegistration()
		_, err := reg.MergeStep(3, s.patch(attending), s.policy, s.now)
		s.Require().NoError(err)

		out, err := reg.MergeStep(8, s.patch(`{"financial": {"contributionAmount": 500, "hardshipDeclined": true}}`), s.policy, s.now)
		s.Require().NoError(err)
		s.True(out.HardshipDeclared)
		s.Equal(RegistrationIncomplete, reg.RegistrationStatus)
		s.Equal(PaymentFinancialDifficulty, reg.PaymentStatus)
	})

	s.Run("hardship decline without a shortfall is rejected", func() {
		reg := s.newRegistration()
		_, err := reg.MergeStep(3, s.patch(attending), s.policy, s.now)
		s.Require().NoError(err)

		_, err = reg.MergeStep(8, s.patch(`{"financial": {"contributionAmount": 5000, "hardshipDeclined": true}}`), s.policy, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.False(reg.FormSubmissionComplete)
	})

	s.Run("hardship decline after paying the minimum is rejected", func() {
		reg := s.newRegistration()
		_, err := reg.MergeStep(3, s.patch(attending), s.policy, s.now)
		s.Require().NoError(err)
		reg.ApplyPayment(id.NewTransactionID(1), 2000, s.policy, s.now)

		_, err = reg.MergeStep(8, s.patch(`{"financial": {"contributionAmount": 500, "hardshipDeclined": true}}`), s.policy, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(PaymentCompleted, reg.PaymentStatus)
		s.Equal(int64(2000), reg.ContributionTotal)
		s.False(reg.FormSubmissionComplete)
	})

	s.Run("hardship decline keeps a partial payment completed", func() {
		reg := s.newRegistration()
		_, err := reg.MergeStep(3, s.patch(attending), s.policy, s.now)
		s.Require().NoError(err)
		reg.ApplyPayment(id.NewTransactionID(1), 400, s.policy, s.now)

		out, err := reg.MergeStep(8, s.patch(`{"financial": {"contributionAmount": 500, "hardshipDeclined": true}}`), s.policy, s.now)
		s.Require().NoError(err)
		s.True(out.HardshipDeclared)
		s.True(reg.InHardship())
		s.Equal(RegistrationIncomplete, reg.RegistrationStatus)
		s.Equal(PaymentCompleted, reg.PaymentStatus)
	})

	s.Run("not attending needs no minimum", func() {
		reg := s.newRegistration()
		_, err := reg.MergeStep(8, s.patch(`{"financial": {"willContribute": false}}`), s.policy, s.now)
		s.Require().NoError(err)
		s.Equal(RegistrationComplete, reg.RegistrationStatus)
	})

	s.Run("resubmission is not a second submission", func() {
		reg := s.newRegistration()
		_, err := reg.MergeStep(8, s.patch(`{"financial": {"willContribute": true}}`), s.policy, s.now)
		s.Require().NoError(err)
		out, err := reg.MergeStep(8, s.patch(`{"financial": {"paymentRemarks": "later"}}`), s.policy, s.now)
		s.Require().NoError(err)
		s.True(out.Changed)
		s.False(out.Submitted)
	})
}

func (s *RegistrationSuite) TestPayments() {
	s.Run("payments accumulate", func() {
		reg := s.newRegistration()
		for i, amount := range []int64{700, 300, 1000} {
			s.Require().NoError(reg.CanApplyPayment(amount))
			reg.ApplyPayment(id.NewTransactionID(int64(i+1)), amount, s.policy, s.now)
		}
		s.Equal(int64(2000), reg.ContributionTotal)
		s.Equal(PaymentCompleted, reg.PaymentStatus)
		s.Equal("TXN-3", reg.PaymentID)
		s.True(reg.Summary().WillContribute)
	})

	s.Run("rejects non-positive amounts", func() {
		reg := s.newRegistration()
		s.True(dErrors.HasCode(reg.CanApplyPayment(0), dErrors.CodeValidation))
		s.True(dErrors.HasCode(reg.CanApplyPayment(-5), dErrors.CodeValidation))
	})

	s.Run("payment meeting the minimum promotes a submitted registration", func() {
		reg := s.newRegistration()
		_, err := reg.MergeStep(3, s.patch(`{"eventAttendance": {"isAttending": true, "attendees": {"adults": {"veg": 2}}}}`), s.policy, s.now)
		s.Require().NoError(err)
		_, err = reg.MergeStep(8, s.patch(`{"financial": {"contributionAmount": 200}}`), s.policy, s.now)
		s.Require().NoError(err)
		s.Equal(RegistrationIncomplete, reg.RegistrationStatus)

		reg.ApplyPayment(id.NewTransactionID(9), 1000, s.policy, s.now)
		s.Equal(RegistrationComplete, reg.RegistrationStatus)
	})

	s.Run("correction can lower the total", func() {
		reg := s.newRegistration()
		reg.ApplyPayment(id.NewTransactionID(1), 1000, s.policy, s.now)
		s.Require().NoError(reg.CorrectContribution(0, s.policy, s.now))
		s.Equal(int64(0), reg.ContributionTotal)
		s.Equal(PaymentPending, reg.PaymentStatus)

		err := reg.CorrectContribution(-1, s.policy, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *RegistrationSuite) TestSummaryIsDerived() {
	reg := s.newRegistration()
	_, err := reg.MergeStep(3, s.patch(`{"eventAttendance": {"isAttending": true, "attendees": {"adults": {"veg": 1}, "toddlers": {"nonVeg": 1}}}}`), s.policy, s.now)
	s.Require().NoError(err)

	sum := reg.Summary()
	s.Equal("Asha Menon", sum.Name)
	s.Equal(2010, sum.YearOfPassing)
	s.True(sum.IsAttending)
	s.Equal(2, sum.TotalAttendees)
	s.Equal(StageAttendance, sum.Stage)
	s.Len(sum.StepsComplete, 9)
	s.Equal([]bool{true, true, false, true, false, false, false, false, false}, sum.StepsComplete)
}
