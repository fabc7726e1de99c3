package adapters

import (
	"context"

	registrationModels "alumnireg/internal/registration/models"
	id "alumnireg/pkg/domain"
)

// registrationLookup is the part of the registration store the gate needs.
// Defined locally so the verification package does not depend on the store.
type registrationLookup interface {
	FindByIdentity(ctx context.Context, email id.Email, contact id.ContactNumber) (*registrationModels.Registration, error)
}

// RegistrationFinder adapts the registration store to service.RegistrationFinder.
type RegistrationFinder struct {
	registrations registrationLookup
}

func NewRegistrationFinder(registrations registrationLookup) *RegistrationFinder {
	return &RegistrationFinder{registrations: registrations}
}

// FindIDByIdentity returns the id of the registration holding either
// identifier. Store errors, including sentinel.ErrNotFound, pass through.
func (a *RegistrationFinder) FindIDByIdentity(ctx context.Context, email id.Email, contact id.ContactNumber) (id.RegistrationID, error) {
	reg, err := a.registrations.FindByIdentity(ctx, email, contact)
	if err != nil {
		return id.RegistrationID{}, err
	}
	return reg.ID, nil
}
