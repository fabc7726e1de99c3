package handler

import "alumnireg/internal/verification/models"

type SendCodeResponse struct {
	Message string `json:"message"`
	OTPID   string `json:"otp_id"`
	// OTP is only populated outside production.
	OTP string `json:"otp,omitempty"`
}

type VerifyCodeResponse struct {
	Verified             bool    `json:"verified"`
	VerificationToken    string  `json:"verification_token"`
	ExistingRegistration bool    `json:"existing_registration"`
	RegistrationID       *string `json:"registration_id,omitempty"`
}

func fromIssued(issued *models.Issued) *SendCodeResponse {
	return &SendCodeResponse{
		Message: "verification code sent",
		OTPID:   issued.RecordID.String(),
		OTP:     issued.Code,
	}
}

func fromResult(result *models.Result) *VerifyCodeResponse {
	resp := &VerifyCodeResponse{
		Verified:             result.Verified,
		VerificationToken:    result.Token,
		ExistingRegistration: result.ExistingRegistration,
	}
	if result.RegistrationID != nil {
		regID := result.RegistrationID.String()
		resp.RegistrationID = &regID
	}
	return resp
}
