package payment

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	Get(key string) string
	Expand(s string) string
	GetAdminToken() string
}

// RegisterSteps registers payment and operator step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &paymentSteps{tc: tc}

	ctx.Step(`^I pay (\d+) with gateway reference "([^"]*)"$`, steps.payWithReference)
	ctx.Step(`^I pay (\d+) through the gateway callback "([^"]*)"$`, steps.payWithGatewayResponse)
	ctx.Step(`^I donate (\d+) anonymously$`, steps.donateAnonymously)

	ctx.Step(`^an operator views my registration$`, steps.adminViewRegistration)
	ctx.Step(`^an operator corrects my contribution to (\d+) because "([^"]*)"$`, steps.adminCorrectContribution)
	ctx.Step(`^an operator resends my confirmation$`, steps.adminResendConfirmation)
	ctx.Step(`^an operator requests the dashboard$`, steps.adminStats)
	ctx.Step(`^an operator requests the dashboard without a token$`, steps.adminStatsWithoutToken)
	ctx.Step(`^an operator runs reconciliation$`, steps.adminReconcile)
}

type paymentSteps struct {
	tc TestContext
}

func (s *paymentSteps) transactionsPath() string {
	return "/registrations/{registration_id}/transactions"
}

func (s *paymentSteps) payWithReference(ctx context.Context, amount int, ref string) error {
	return s.tc.POST(s.transactionsPath(), map[string]any{
		"amount":           amount,
		"paymentMethod":    "upi",
		"gatewayReference": s.tc.Expand(ref),
		"email":            s.tc.Get("email"),
	}, nil)
}

func (s *paymentSteps) payWithGatewayResponse(ctx context.Context, amount int, paymentID string) error {
	return s.tc.POST(s.transactionsPath(), map[string]any{
		"amount":                 amount,
		"paymentMethod":          "razorpay",
		"paymentGatewayResponse": map[string]string{"razorpay_payment_id": s.tc.Expand(paymentID)},
	}, nil)
}

func (s *paymentSteps) donateAnonymously(ctx context.Context, amount int) error {
	return s.tc.POST(s.transactionsPath(), map[string]any{
		"amount":        amount,
		"paymentMethod": "upi",
		"purpose":       "donation",
		"isAnonymous":   true,
	}, nil)
}

func (s *paymentSteps) admin() map[string]string {
	return map[string]string{"X-Admin-Token": s.tc.GetAdminToken()}
}

func (s *paymentSteps) adminViewRegistration(ctx context.Context) error {
	if s.tc.GetAdminToken() == "" {
		return godog.ErrPending
	}
	return s.tc.GET("/admin/registrations/{registration_id}", s.admin())
}

func (s *paymentSteps) adminCorrectContribution(ctx context.Context, total int, reason string) error {
	if s.tc.GetAdminToken() == "" {
		return godog.ErrPending
	}
	return s.tc.POST("/admin/registrations/{registration_id}/contribution", fmt.Sprintf(
		`{"contribution_total": %d, "reason": %q}`, total, reason), s.admin())
}

func (s *paymentSteps) adminResendConfirmation(ctx context.Context) error {
	if s.tc.GetAdminToken() == "" {
		return godog.ErrPending
	}
	return s.tc.POST("/admin/registrations/{registration_id}/confirmation", nil, s.admin())
}

func (s *paymentSteps) adminStats(ctx context.Context) error {
	if s.tc.GetAdminToken() == "" {
		return godog.ErrPending
	}
	return s.tc.GET("/admin/stats", s.admin())
}

func (s *paymentSteps) adminStatsWithoutToken(ctx context.Context) error {
	return s.tc.GET("/admin/stats", nil)
}

func (s *paymentSteps) adminReconcile(ctx context.Context) error {
	if s.tc.GetAdminToken() == "" {
		return godog.ErrPending
	}
	return s.tc.POST("/admin/reconcile", nil, s.admin())
}
