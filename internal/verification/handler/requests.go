package handler

import (
	"strings"

	dErrors "alumnireg/pkg/domain-errors"
)

// SendCodeRequest is the body of POST /registrations/send-otp.
type SendCodeRequest struct {
	Email         string `json:"email" validate:"required,max=254"`
	ContactNumber string `json:"contactNumber" validate:"required,max=32"`
}

func (r *SendCodeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	r.ContactNumber = strings.TrimSpace(r.ContactNumber)
	return nil
}

// VerifyCodeRequest is the body of POST /registrations/verify-otp.
type VerifyCodeRequest struct {
	Email         string `json:"email" validate:"required,max=254"`
	ContactNumber string `json:"contactNumber" validate:"required,max=32"`
	OTP           string `json:"otp" validate:"required,numeric,max=10"`
}

func (r *VerifyCodeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	r.ContactNumber = strings.TrimSpace(r.ContactNumber)
	r.OTP = strings.TrimSpace(r.OTP)
	return nil
}
