// Package store persists verification records. Records are short-lived: the
// Redis store expires them by TTL, the in-memory store on access.
package store

import (
	"context"
	"sync"
	"time"

	"alumnireg/internal/verification/models"
	id "alumnireg/pkg/domain"
	"alumnireg/pkg/platform/sentinel"
)

// AttemptFunc inspects and may mutate a record; the returned action is applied
// atomically before the function's error is handed back.
type AttemptFunc func(rec *models.Record) (models.Action, error)

// InMemoryStore keeps records behind a single mutex.
type InMemoryStore struct {
	mu        sync.Mutex
	records   map[id.VerificationID]*models.Record
	byEmail   map[id.Email]id.VerificationID
	byContact map[id.ContactNumber]id.VerificationID
	ttl       time.Duration
	now       func() time.Time
}

// NewInMemoryStore keeps each record for ttl after issuance.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		records:   make(map[id.VerificationID]*models.Record),
		byEmail:   make(map[id.Email]id.VerificationID),
		byContact: make(map[id.ContactNumber]id.VerificationID),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Replace removes every record holding either identifier and stores rec.
func (s *InMemoryStore) Replace(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byEmail[rec.Email]; ok {
		s.deleteLocked(old)
	}
	if old, ok := s.byContact[rec.ContactNumber]; ok {
		s.deleteLocked(old)
	}
	stored := *rec
	s.records[rec.ID] = &stored
	s.byEmail[rec.Email] = rec.ID
	s.byContact[rec.ContactNumber] = rec.ID
	return nil
}

// FindByIdentity returns the record for the pair, falling back to a record that
// holds only one of the two identifiers.
func (s *InMemoryStore) FindByIdentity(_ context.Context, email id.Email, contact id.ContactNumber) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupLocked(email, contact)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *rec
	return &out, nil
}

// Execute runs fn against a copy of the record under the store lock and applies
// the returned action.
func (s *InMemoryStore) Execute(_ context.Context, email id.Email, contact id.ContactNumber, fn AttemptFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupLocked(email, contact)
	if !ok {
		return sentinel.ErrNotFound
	}
	working := *rec
	action, err := fn(&working)
	switch action {
	case models.ActionSave:
		s.records[working.ID] = &working
	case models.ActionDelete:
		s.deleteLocked(working.ID)
	}
	return err
}

// Delete removes the record with recordID. Missing records are not an error.
func (s *InMemoryStore) Delete(_ context.Context, recordID id.VerificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(recordID)
	return nil
}

func (s *InMemoryStore) lookupLocked(email id.Email, contact id.ContactNumber) (*models.Record, bool) {
	for _, recordID := range s.candidatesLocked(email, contact) {
		rec, ok := s.records[recordID]
		if !ok {
			continue
		}
		if s.ttl > 0 && s.now().Sub(rec.CreatedAt) > s.ttl {
			s.deleteLocked(recordID)
			continue
		}
		return rec, true
	}
	return nil, false
}

func (s *InMemoryStore) candidatesLocked(email id.Email, contact id.ContactNumber) []id.VerificationID {
	var out []id.VerificationID
	if recordID, ok := s.byEmail[email]; ok {
		out = append(out, recordID)
	}
	if recordID, ok := s.byContact[contact]; ok {
		out = append(out, recordID)
	}
	return out
}

func (s *InMemoryStore) deleteLocked(recordID id.VerificationID) {
	rec, ok := s.records[recordID]
	if !ok {
		return
	}
	delete(s.records, recordID)
	if s.byEmail[rec.Email] == recordID {
		delete(s.byEmail, rec.Email)
	}
	if s.byContact[rec.ContactNumber] == recordID {
		delete(s.byContact, rec.ContactNumber)
	}
}
