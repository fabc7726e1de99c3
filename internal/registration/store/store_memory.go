// Package store persists Registration aggregates.
//
// Stores are pure I/O. They enforce identity uniqueness and the optimistic
// version check, and return sentinel errors; the service owns every business rule.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"alumnireg/internal/registration/models"
	id "alumnireg/pkg/domain"
	"alumnireg/pkg/platform/sentinel"
)

// ErrDuplicateIdentity is returned when email or contact already belong to
// another registration.
var ErrDuplicateIdentity = fmt.Errorf("duplicate identity: %w", sentinel.ErrConflict)

// IsDuplicateIdentity distinguishes a uniqueness failure from a version conflict.
func IsDuplicateIdentity(err error) bool {
	return errors.Is(err, ErrDuplicateIdentity)
}

// InMemoryStore keeps registrations in process memory.
type InMemoryStore struct {
	mu        sync.RWMutex
	byID      map[id.RegistrationID]models.Registration
	byEmail   map[id.Email]id.RegistrationID
	byContact map[id.ContactNumber]id.RegistrationID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[id.RegistrationID]models.Registration),
		byEmail:   make(map[id.Email]id.RegistrationID),
		byContact: make(map[id.ContactNumber]id.RegistrationID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[reg.ID]; ok {
		return fmt.Errorf("registration %s exists: %w", reg.ID, sentinel.ErrConflict)
	}
	if _, ok := s.byEmail[reg.Email]; ok {
		return ErrDuplicateIdentity
	}
	if _, ok := s.byContact[reg.ContactNumber]; ok {
		return ErrDuplicateIdentity
	}
	s.byID[reg.ID] = *reg
	s.byEmail[reg.Email] = reg.ID
	s.byContact[reg.ContactNumber] = reg.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, regID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.byID[regID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &reg, nil
}

// FindByIdentity returns the registration holding email or contact.
func (s *InMemoryStore) FindByIdentity(_ context.Context, email id.Email, contact id.ContactNumber) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regID, ok := s.byEmail[email]
	if !ok {
		regID, ok = s.byContact[contact]
	}
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	reg := s.byID[regID]
	return &reg, nil
}

// Update writes reg if the stored version still equals reg.Version, then
// increments reg.Version.
func (s *InMemoryStore) Update(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[reg.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != reg.Version {
		return fmt.Errorf("registration %s version %d: %w", reg.ID, reg.Version, sentinel.ErrConflict)
	}
	reg.Version++
	s.byID[reg.ID] = *reg
	return nil
}

func (s *InMemoryStore) Stats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := models.NewStats()
	for _, reg := range s.byID {
		stats.Add(&reg)
	}
	return stats, nil
}
