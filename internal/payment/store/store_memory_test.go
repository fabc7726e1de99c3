package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnireg/internal/payment/models"
	id "alumnireg/pkg/domain"
	"alumnireg/pkg/platform/sentinel"
)

func newTransaction(t *testing.T, n int64, regID id.RegistrationID, ref string, purpose models.Purpose) *models.Transaction {
	t.Helper()
	txn, err := models.NewTransaction(id.NewTransactionID(n), models.NewTransactionInput{
		RegistrationID:   regID,
		Amount:           100 * n,
		PaymentMethod:    "card",
		GatewayReference: ref,
		Purpose:          purpose,
	}, time.Now())
	require.NoError(t, err)
	return txn
}

func TestInMemoryStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	regID := id.NewRegistrationID()

	txn := newTransaction(t, 1, regID, "pay_1", "")
	require.NoError(t, s.Create(ctx, txn))

	got, err := s.FindByReference(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)

	err = s.Create(ctx, newTransaction(t, 2, regID, "pay_1", ""))
	assert.True(t, IsDuplicateReference(err))

	err = s.Create(ctx, txn)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	_, err = s.FindByReference(ctx, "pay_unknown")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStoreTransactionsWithoutReference(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	regID := id.NewRegistrationID()

	require.NoError(t, s.Create(ctx, newTransaction(t, 1, regID, "", "")))
	require.NoError(t, s.Create(ctx, newTransaction(t, 2, regID, "", "")))
	require.NoError(t, s.Create(ctx, newTransaction(t, 3, id.NewRegistrationID(), "", "")))

	list, err := s.ListByRegistration(ctx, regID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id.NewTransactionID(1), list[0].ID)
	assert.Equal(t, id.NewTransactionID(2), list[1].ID)
}

func TestInMemoryStoreMarkApplied(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	regID := id.NewRegistrationID()

	first := newTransaction(t, 1, regID, "", "")
	second := newTransaction(t, 2, regID, "", "")
	donation := newTransaction(t, 3, regID, "", models.PurposeDonation)
	for _, txn := range []*models.Transaction{first, second, donation} {
		require.NoError(t, s.Create(ctx, txn))
	}

	pending, err := s.ListUnapplied(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	limited, err := s.ListUnapplied(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)

	require.NoError(t, s.MarkApplied(ctx, first.ID, time.Now()))
	assert.ErrorIs(t, s.MarkApplied(ctx, first.ID, time.Now()), sentinel.ErrAlreadyUsed)
	assert.ErrorIs(t, s.MarkApplied(ctx, id.NewTransactionID(99), time.Now()), sentinel.ErrNotFound)

	pending, err = s.ListUnapplied(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	summary, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, int64(600), summary.Total)
	assert.Equal(t, 1, summary.Unapplied)
	assert.Equal(t, int64(300), summary.ByPurpose[models.PurposeDonation])
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	txn := newTransaction(t, 1, id.NewRegistrationID(), "", "")
	require.NoError(t, s.Create(ctx, txn))

	got, err := s.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	got.Amount = 1

	again, err := s.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), again.Amount)
}

func TestInMemoryStoreDiscard(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	regID := id.NewRegistrationID()

	applied := newTransaction(t, 1, regID, "", "")
	orphan := newTransaction(t, 2, regID, "pay_2", "")
	require.NoError(t, s.Create(ctx, applied))
	require.NoError(t, s.Create(ctx, orphan))
	require.NoError(t, s.MarkApplied(ctx, applied.ID, time.Now()))

	require.NoError(t, s.Discard(ctx, orphan.ID))
	_, err := s.FindByID(ctx, orphan.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.FindByReference(ctx, "pay_2")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	assert.ErrorIs(t, s.Discard(ctx, applied.ID), sentinel.ErrAlreadyUsed)
	assert.ErrorIs(t, s.Discard(ctx, orphan.ID), sentinel.ErrNotFound)

	list, err := s.ListByRegistration(ctx, regID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, applied.ID, list[0].ID)
}
