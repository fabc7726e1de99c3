package registration

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetResponseField(field string) (any, error)
	Expand(s string) string
	Set(key, value string)
	Get(key string) string
}

// RegisterSteps registers verification gate and wizard step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrationSteps{tc: tc}

	// Verification gate
	ctx.Step(`^a new registrant$`, steps.newRegistrant)
	ctx.Step(`^I request a verification code$`, steps.requestCode)
	ctx.Step(`^I verify with the code I received$`, steps.verifyWithReceivedCode)
	ctx.Step(`^I verify with code "([^"]*)"$`, steps.verifyWithCode)
	ctx.Step(`^I am a verified registrant$`, steps.verifiedRegistrant)

	// Wizard
	ctx.Step(`^I save step (\d+) with:$`, steps.saveStep)
	ctx.Step(`^I save step (\d+) without a token with:$`, steps.saveStepWithoutToken)
	ctx.Step(`^I fetch my registration$`, steps.fetchRegistration)
	ctx.Step(`^I fetch my registration without a token$`, steps.fetchRegistrationWithoutToken)
	ctx.Step(`^I complete the wizard attending with (\d+) adults pledging (\d+)$`, steps.completeWizard)
	ctx.Step(`^I complete the wizard attending with (\d+) adults declaring hardship at (\d+)$`, steps.completeWizardWithHardship)
}

type registrationSteps struct {
	tc TestContext
}

var random = rand.New(rand.NewSource(time.Now().UnixNano()))

func (s *registrationSteps) newRegistrant(ctx context.Context) error {
	n := random.Int63n(1_000_000_000)
	s.tc.Set("email", fmt.Sprintf("e2e-%d-%d@example.com", time.Now().UnixNano(), n))
	s.tc.Set("contact", fmt.Sprintf("+919%09d", n))
	return nil
}

func (s *registrationSteps) identity() map[string]string {
	return map[string]string{
		"email":         s.tc.Get("email"),
		"contactNumber": s.tc.Get("contact"),
	}
}

func (s *registrationSteps) requestCode(ctx context.Context) error {
	if err := s.tc.POST("/registrations/send-otp", s.identity(), nil); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return nil
	}
	// The code is only echoed outside production.
	if otp, err := s.tc.GetResponseField("otp"); err == nil {
		s.tc.Set("otp", fmt.Sprint(otp))
	}
	return nil
}

func (s *registrationSteps) verifyWithReceivedCode(ctx context.Context) error {
	otp := s.tc.Get("otp")
	if otp == "" {
		return fmt.Errorf("no verification code was echoed; run the server with APP_ENV=development")
	}
	return s.verifyWithCode(ctx, otp)
}

func (s *registrationSteps) verifyWithCode(ctx context.Context, code string) error {
	body := s.identity()
	body["otp"] = code
	if err := s.tc.POST("/registrations/verify-otp", body, nil); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return nil
	}
	token, err := s.tc.GetResponseField("verification_token")
	if err != nil {
		return err
	}
	s.tc.Set("token", fmt.Sprint(token))
	if regID, err := s.tc.GetResponseField("registration_id"); err == nil && regID != nil {
		s.tc.Set("registration_id", fmt.Sprint(regID))
	}
	return nil
}

func (s *registrationSteps) verifiedRegistrant(ctx context.Context) error {
	if err := s.newRegistrant(ctx); err != nil {
		return err
	}
	if err := s.requestCode(ctx); err != nil {
		return err
	}
	if err := s.expectStatus(200); err != nil {
		return err
	}
	if err := s.verifyWithReceivedCode(ctx); err != nil {
		return err
	}
	return s.expectStatus(200)
}

func (s *registrationSteps) bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.tc.Get("token")}
}

func (s *registrationSteps) stepPath() string {
	if regID := s.tc.Get("registration_id"); regID != "" {
		return "/registrations/step/" + regID
	}
	return "/registrations/step/new"
}

func (s *registrationSteps) save(step int, stepData string, headers map[string]string) error {
	data := json.RawMessage(s.tc.Expand(stepData))
	if !json.Valid(data) {
		return fmt.Errorf("step %d data is not valid JSON: %s", step, stepData)
	}
	body := map[string]any{"step": step, "stepData": data}
	if err := s.tc.POST(s.stepPath(), body, headers); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status == 200 || status == 201 {
		regID, err := s.tc.GetResponseField("registration_id")
		if err != nil {
			return err
		}
		s.tc.Set("registration_id", fmt.Sprint(regID))
	}
	return nil
}

func (s *registrationSteps) saveStep(ctx context.Context, step int, doc *godog.DocString) error {
	return s.save(step, doc.Content, s.bearer())
}

func (s *registrationSteps) saveStepWithoutToken(ctx context.Context, step int, doc *godog.DocString) error {
	return s.save(step, doc.Content, nil)
}

func (s *registrationSteps) fetchRegistration(ctx context.Context) error {
	return s.tc.GET("/registrations/{registration_id}", s.bearer())
}

func (s *registrationSteps) fetchRegistrationWithoutToken(ctx context.Context) error {
	return s.tc.GET("/registrations/{registration_id}", nil)
}

func (s *registrationSteps) completeWizard(ctx context.Context, adults, pledge int) error {
	return s.walkWizard(adults, fmt.Sprintf(`{"financial": {"willContribute": %t, "contributionAmount": %d}}`, pledge > 0, pledge))
}

func (s *registrationSteps) completeWizardWithHardship(ctx context.Context, adults, proposed int) error {
	return s.walkWizard(adults, fmt.Sprintf(
		`{"financial": {"willContribute": true, "proposedAmount": %d, "hardshipDeclined": true}}`, proposed))
}

// walkWizard saves every step with minimal data, finishing with final.
func (s *registrationSteps) walkWizard(adults int, final string) error {
	pages := []string{
		`{"personalInfo": {"name": "E2E Registrant", "email": "{email}", "contactNumber": "{contact}", "school": "JNV Test", "yearOfPassing": 2005, "country": "IN"}}`,
		`{"professional": {"profession": "Engineer"}}`,
		fmt.Sprintf(`{"eventAttendance": {"isAttending": true, "attendees": {"adults": {"veg": %d}}}}`, adults),
		`{"sponsorship": {"interestedInSponsorship": false}}`,
		`{"transportation": {"isTravelling": false}}`,
		`{"accommodation": {"planAccommodation": false}}`,
		`{"optional": {"mentorshipOptions": []}}`,
		final,
	}
	for i, page := range pages {
		step := i + 1
		if err := s.save(step, page, s.bearer()); err != nil {
			return err
		}
		if err := s.expectStatus(200, 201); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
	}
	return nil
}

func (s *registrationSteps) expectStatus(allowed ...int) error {
	status := s.tc.GetLastResponseStatus()
	for _, a := range allowed {
		if status == a {
			return nil
		}
	}
	return fmt.Errorf("unexpected status %d: %s", status, s.tc.GetLastResponseBody())
}
