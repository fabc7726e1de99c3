package handler

import (
	"net/http"
	"strings"

	"alumnireg/internal/registration/models"
	dErrors "alumnireg/pkg/domain-errors"
)

// StepRequest is the body of POST /registrations/step/{id}.
type StepRequest struct {
	Step     int               `json:"step" validate:"required"`
	StepData *models.FormPatch `json:"stepData"`
	// The wizard sends verificationToken; verification_token is accepted too.
	VerificationToken      string `json:"verificationToken"`
	VerificationTokenSnake string `json:"verification_token"`
}

func (r *StepRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.StepData == nil {
		return dErrors.New(dErrors.CodeValidation, "stepData is required")
	}
	r.VerificationToken = strings.TrimSpace(r.VerificationToken)
	r.VerificationTokenSnake = strings.TrimSpace(r.VerificationTokenSnake)
	return nil
}

// token prefers the Authorization header over the body.
func (r *StepRequest) token(req *http.Request) string {
	if t := bearerToken(req); t != "" {
		return t
	}
	if r.VerificationToken != "" {
		return r.VerificationToken
	}
	return r.VerificationTokenSnake
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
