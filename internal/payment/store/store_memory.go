// Package store persists payment transactions.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"alumnireg/internal/payment/models"
	id "alumnireg/pkg/domain"
	"alumnireg/pkg/platform/sentinel"
)

// ErrDuplicateReference is returned when a gateway reference was already recorded.
var ErrDuplicateReference = fmt.Errorf("duplicate gateway reference: %w", sentinel.ErrAlreadyUsed)

func IsDuplicateReference(err error) bool {
	return errors.Is(err, ErrDuplicateReference)
}

// InMemoryStore keeps transactions in process memory, in insertion order.
type InMemoryStore struct {
	mu    sync.RWMutex
	order []id.TransactionID
	byID  map[id.TransactionID]models.Transaction
	byRef map[string]id.TransactionID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[id.TransactionID]models.Transaction),
		byRef: make(map[string]id.TransactionID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[txn.ID]; ok {
		return fmt.Errorf("transaction %s exists: %w", txn.ID, sentinel.ErrConflict)
	}
	if txn.GatewayReference != "" {
		if _, ok := s.byRef[txn.GatewayReference]; ok {
			return ErrDuplicateReference
		}
		s.byRef[txn.GatewayReference] = txn.ID
	}
	s.byID[txn.ID] = copyTransaction(txn)
	s.order = append(s.order, txn.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, txID id.TransactionID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.byID[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := copyTransaction(&txn)
	return &out, nil
}

func (s *InMemoryStore) FindByReference(ctx context.Context, ref string) (*models.Transaction, error) {
	s.mu.RLock()
	txID, ok := s.byRef[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, txID)
}

func (s *InMemoryStore) ListByRegistration(_ context.Context, regID id.RegistrationID) ([]*models.Transaction, error) {
	return s.collect(0, func(t *models.Transaction) bool { return t.RegistrationID == regID }), nil
}

// ListUnapplied returns up to limit unapplied transactions, oldest first.
func (s *InMemoryStore) ListUnapplied(_ context.Context, limit int) ([]*models.Transaction, error) {
	return s.collect(limit, func(t *models.Transaction) bool { return !t.Applied() }), nil
}

// MarkApplied records that txID reached its registration. It returns
// sentinel.ErrAlreadyUsed when another writer applied it first.
func (s *InMemoryStore) MarkApplied(_ context.Context, txID id.TransactionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.byID[txID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if txn.Applied() {
		return sentinel.ErrAlreadyUsed
	}
	txn.AppliedAt = &at
	s.byID[txID] = txn
	return nil
}

// Discard deletes an unapplied transaction. Applied ones are kept and
// sentinel.ErrAlreadyUsed is returned.
func (s *InMemoryStore) Discard(_ context.Context, txID id.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.byID[txID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if txn.Applied() {
		return sentinel.ErrAlreadyUsed
	}
	delete(s.byID, txID)
	if txn.GatewayReference != "" {
		delete(s.byRef, txn.GatewayReference)
	}
	s.order = slices.DeleteFunc(s.order, func(other id.TransactionID) bool { return other == txID })
	return nil
}

func (s *InMemoryStore) Summary(_ context.Context) (models.Summary, error) {
	summary := models.NewSummary()
	for _, txn := range s.collect(0, func(*models.Transaction) bool { return true }) {
		summary.Add(txn)
	}
	return summary, nil
}

func (s *InMemoryStore) collect(limit int, keep func(*models.Transaction) bool) []*models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Transaction, 0)
	for _, txID := range s.order {
		txn := s.byID[txID]
		if !keep(&txn) {
			continue
		}
		c := copyTransaction(&txn)
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func copyTransaction(t *models.Transaction) models.Transaction {
	c := *t
	c.GatewayResponse = slices.Clone(t.GatewayResponse)
	if t.AppliedAt != nil {
		at := *t.AppliedAt
		c.AppliedAt = &at
	}
	return c
}
