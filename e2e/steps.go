package e2e

import (
	"github.com/cucumber/godog"

	"alumnireg/e2e/steps/common"
	"alumnireg/e2e/steps/payment"
	"alumnireg/e2e/steps/registration"
)

// RegisterSteps wires every step package into a scenario. Order does not
// matter to godog; the packages share state only through tc.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	registration.RegisterSteps(ctx, tc)
	payment.RegisterSteps(ctx, tc)
}
