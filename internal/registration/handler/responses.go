package handler

import (
	"alumnireg/internal/registration/models"
	"alumnireg/internal/registration/service"
)

type StepResponse struct {
	RegistrationID      string                    `json:"registration_id"`
	CurrentStep         int                       `json:"current_step"`
	IsComplete          bool                      `json:"is_complete"`
	Created             bool                      `json:"created"`
	Stage               models.Stage              `json:"stage"`
	RegistrationStatus  models.RegistrationStatus `json:"registration_status"`
	PaymentStatus       models.PaymentStatus      `json:"payment_status"`
	MinimumContribution int64                     `json:"minimum_contribution,omitempty"`
	HardshipFlow        bool                      `json:"hardship_flow"`
}

// RegistrationResponse is the resume view: the derived summary and the form.
type RegistrationResponse struct {
	Registration models.Summary        `json:"registration"`
	Form         models.StructuredForm `json:"form"`
}

func fromStepResult(result *service.StepResult) *StepResponse {
	reg := result.Registration
	return &StepResponse{
		RegistrationID:      reg.ID.String(),
		CurrentStep:         reg.CurrentStep,
		IsComplete:          reg.FormSubmissionComplete,
		Created:             result.Created,
		Stage:               reg.Stage(),
		RegistrationStatus:  reg.RegistrationStatus,
		PaymentStatus:       reg.PaymentStatus,
		MinimumContribution: result.Minimum,
		HardshipFlow:        result.HardshipFlow,
	}
}

func fromRegistration(reg *models.Registration) *RegistrationResponse {
	return &RegistrationResponse{Registration: reg.Summary(), Form: reg.Form}
}
