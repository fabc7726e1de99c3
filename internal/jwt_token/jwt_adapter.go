package jwttoken

import (
	"time"

	"github.com/google/uuid"

	"alumnireg/internal/verification/models"
	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
)

// ToGrant converts validated claims into the grant they prove. Claims whose
// identity no longer parses are rejected as an invalid token.
func ToGrant(claims *Claims) (*models.Grant, error) {
	verificationID, err := id.ParseVerificationID(claims.VerificationID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid verification token claims")
	}
	email, err := id.ParseEmail(claims.Email)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid verification token claims")
	}
	contact, err := id.ParseContactNumber(claims.ContactNumber)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid verification token claims")
	}
	return &models.Grant{VerificationID: verificationID, Email: email, ContactNumber: contact}, nil
}

// GrantTokens adapts JWTService to the verification service's token port.
type GrantTokens struct {
	service *JWTService
}

func NewGrantTokens(service *JWTService) *GrantTokens {
	return &GrantTokens{service: service}
}

func (a *GrantTokens) Issue(grant models.Grant, expiresIn time.Duration) (string, error) {
	return a.service.GenerateVerificationToken(uuid.UUID(grant.VerificationID), grant.Email.String(), grant.ContactNumber.String(), expiresIn)
}

func (a *GrantTokens) Parse(token string) (*models.Grant, error) {
	claims, err := a.service.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return ToGrant(claims)
}
