//go:build integration

package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"alumnireg/internal/payment/models"
	"alumnireg/internal/payment/store"
	id "alumnireg/pkg/domain"
	"alumnireg/pkg/platform/sentinel"
	"alumnireg/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "transactions"))
}

func (s *PostgresStoreSuite) transaction(n int64, regID id.RegistrationID, ref string, purpose models.Purpose) *models.Transaction {
	txn, err := models.NewTransaction(id.NewTransactionID(n), models.NewTransactionInput{
		RegistrationID:   regID,
		Amount:           100 * n,
		PaymentMethod:    "upi",
		GatewayReference: ref,
		Purpose:          purpose,
	}, time.Now().UTC().Truncate(time.Microsecond).Add(time.Duration(n)*time.Millisecond))
	s.Require().NoError(err)
	return txn
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	regID := id.NewRegistrationID()
	txn := s.transaction(1, regID, "pay_1", "")
	txn.GatewayResponse = json.RawMessage(`{"razorpay_payment_id":"pay_1"}`)
	txn.Payer = models.Payer{Name: "Asha", Email: "asha@x.com"}
	txn.IsAnonymous = true
	s.Require().NoError(s.store.Create(ctx, txn))

	got, err := s.store.FindByID(ctx, txn.ID)
	s.Require().NoError(err)
	s.Equal(txn.RegistrationID, got.RegistrationID)
	s.Equal(txn.Amount, got.Amount)
	s.Equal(models.PurposeRegistration, got.Purpose)
	s.Equal(txn.Payer, got.Payer)
	s.True(got.IsAnonymous)
	s.JSONEq(`{"razorpay_payment_id":"pay_1"}`, string(got.GatewayResponse))
	s.Nil(got.AppliedAt)

	byRef, err := s.store.FindByReference(ctx, "pay_1")
	s.Require().NoError(err)
	s.Equal(txn.ID, byRef.ID)

	_, err = s.store.FindByReference(ctx, "pay_unknown")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(ctx, id.NewTransactionID(99))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateReference() {
	ctx := context.Background()
	regID := id.NewRegistrationID()
	s.Require().NoError(s.store.Create(ctx, s.transaction(1, regID, "pay_1", "")))

	err := s.store.Create(ctx, s.transaction(2, regID, "pay_1", ""))
	s.True(store.IsDuplicateReference(err))

	err = s.store.Create(ctx, s.transaction(1, regID, "pay_other", ""))
	s.ErrorIs(err, sentinel.ErrConflict)

	s.Require().NoError(s.store.Create(ctx, s.transaction(3, regID, "", "")))
	s.Require().NoError(s.store.Create(ctx, s.transaction(4, regID, "", "")))
}

func (s *PostgresStoreSuite) TestListAndSummary() {
	ctx := context.Background()
	regID := id.NewRegistrationID()
	first := s.transaction(1, regID, "", "")
	second := s.transaction(2, regID, "", "")
	donation := s.transaction(3, regID, "", models.PurposeDonation)
	other := s.transaction(4, id.NewRegistrationID(), "", "")
	for _, txn := range []*models.Transaction{first, second, donation, other} {
		s.Require().NoError(s.store.Create(ctx, txn))
	}

	list, err := s.store.ListByRegistration(ctx, regID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(first.ID, list[0].ID)
	s.Equal(donation.ID, list[2].ID)
	s.NotNil(list[2].AppliedAt)

	pending, err := s.store.ListUnapplied(ctx, 0)
	s.Require().NoError(err)
	s.Len(pending, 3)

	limited, err := s.store.ListUnapplied(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(limited, 2)
	s.Equal(first.ID, limited[0].ID)

	summary, err := s.store.Summary(ctx)
	s.Require().NoError(err)
	s.Equal(4, summary.Count)
	s.Equal(int64(1000), summary.Total)
	s.Equal(3, summary.Unapplied)
	s.Equal(int64(300), summary.ByPurpose[models.PurposeDonation])
	s.Equal(int64(700), summary.ByPurpose[models.PurposeRegistration])
}

func (s *PostgresStoreSuite) TestMarkApplied() {
	ctx := context.Background()
	txn := s.transaction(1, id.NewRegistrationID(), "", "")
	s.Require().NoError(s.store.Create(ctx, txn))

	s.Require().NoError(s.store.MarkApplied(ctx, txn.ID, time.Now()))
	s.ErrorIs(s.store.MarkApplied(ctx, txn.ID, time.Now()), sentinel.ErrAlreadyUsed)
	s.ErrorIs(s.store.MarkApplied(ctx, id.NewTransactionID(99), time.Now()), sentinel.ErrNotFound)

	got, err := s.store.FindByID(ctx, txn.ID)
	s.Require().NoError(err)
	s.NotNil(got.AppliedAt)

	pending, err := s.store.ListUnapplied(ctx, 0)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *PostgresStoreSuite) TestDiscard() {
	ctx := context.Background()
	regID := id.NewRegistrationID()
	applied := s.transaction(1, regID, "", "")
	orphan := s.transaction(2, regID, "pay_2", "")
	s.Require().NoError(s.store.Create(ctx, applied))
	s.Require().NoError(s.store.Create(ctx, orphan))
	s.Require().NoError(s.store.MarkApplied(ctx, applied.ID, time.Now()))

	s.Require().NoError(s.store.Discard(ctx, orphan.ID))
	_, err := s.store.FindByReference(ctx, "pay_2")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Discard(ctx, applied.ID), sentinel.ErrAlreadyUsed)
	s.ErrorIs(s.store.Discard(ctx, orphan.ID), sentinel.ErrNotFound)
}

// TestConcurrentMarkAppliedWinsOnce verifies that the conditional update lets
// exactly one caller apply a transaction.
func (s *PostgresStoreSuite) TestConcurrentMarkAppliedWinsOnce() {
	ctx := context.Background()
	txn := s.transaction(1, id.NewRegistrationID(), "", "")
	s.Require().NoError(s.store.Create(ctx, txn))

	const goroutines = 20
	var wg sync.WaitGroup
	var applied, rejected atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.MarkApplied(ctx, txn.ID, time.Now()); err == nil {
				applied.Add(1)
			} else if errors.Is(err, sentinel.ErrAlreadyUsed) {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), applied.Load())
	s.Equal(int32(goroutines-1), rejected.Load())
}
