//go:build integration

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"alumnireg/internal/contribution"
	notificationmocks "alumnireg/internal/notification/mocks"
	"alumnireg/internal/payment/models"
	"alumnireg/internal/payment/store"
	"alumnireg/internal/payment/txid"
	regModels "alumnireg/internal/registration/models"
	regStore "alumnireg/internal/registration/store"
	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
	"alumnireg/pkg/platform/sentinel"
	"alumnireg/pkg/testutil/containers"
)

// PostgresPaymentSuite runs the payment unit of work against a real database,
// where the transaction boundary is what keeps payments exactly-once.
type PostgresPaymentSuite struct {
	suite.Suite
	postgres      *containers.PostgresContainer
	registrations *regStore.PostgresStore
	transactions  *store.PostgresStore
	policy        *contribution.Policy
	service       *Service
}

func TestPostgresPaymentSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresPaymentSuite))
}

func (s *PostgresPaymentSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.registrations = regStore.NewPostgres(s.postgres.DB)
	s.transactions = store.NewPostgres(s.postgres.DB)
	s.policy = contribution.NewPolicy(contribution.Rates{Standard: 500, RecentGraduate: 350, Youth: 350}, 2025, 2)
}

func (s *PostgresPaymentSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background()))

	ids, err := txid.New(7)
	s.Require().NoError(err)
	notifier := notificationmocks.NewMockPort(gomock.NewController(s.T()))
	notifier.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	tx := NewPostgresTx(s.postgres.DB, Stores{Transactions: s.transactions, Registrations: s.registrations}, 5*time.Second)
	s.service = New(tx, s.transactions, s.policy, ids, notifier, Config{
		DispatchTimeout:    time.Second,
		Currency:           "INR",
		MaxConflictRetries: 5,
	})
}

// storeSubmitted saves a submitted registration for two attending adults,
// which puts the minimum at 1000.
func (s *PostgresPaymentSuite) storeSubmitted(email id.Email, contact id.ContactNumber) *regModels.Registration {
	var patch regModels.FormPatch
	s.Require().NoError(json.Unmarshal([]byte(`{"personalInfo": {"name": "Asha Menon", "yearOfPassing": 2010, "country": "IN"}}`), &patch))
	reg, err := regModels.NewRegistration(id.NewRegistrationID(), email, contact, id.NewVerificationID(), patch, time.Now())
	s.Require().NoError(err)

	_, err = reg.MergeStep(4, regModels.FormPatch{EventAttendance: &regModels.EventAttendancePatch{
		IsAttending: regModels.Set(true),
		Attendees:   regModels.Set(regModels.AttendeeCounts{Adults: regModels.MealSplit{Veg: 2}}),
	}}, s.policy, time.Now())
	s.Require().NoError(err)
	_, err = reg.MergeStep(regModels.FinalStep, regModels.FormPatch{Financial: &regModels.FinancialPatch{
		WillContribute:     regModels.Set(true),
		ContributionAmount: regModels.Set(regModels.Amount(1000)),
	}}, s.policy, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.registrations.Create(context.Background(), reg))
	return reg
}

func (s *PostgresPaymentSuite) pay(reg *regModels.Registration, amount int64, ref string) (*models.Receipt, error) {
	return s.service.RecordPayment(context.Background(), PaymentCommand{
		RegistrationRef:  reg.ID.String(),
		Amount:           amount,
		PaymentMethod:    "upi",
		GatewayReference: ref,
		IsAnonymous:      true,
	})
}

func (s *PostgresPaymentSuite) stored(reg *regModels.Registration) *regModels.Registration {
	got, err := s.registrations.FindByID(context.Background(), reg.ID)
	s.Require().NoError(err)
	return got
}

func (s *PostgresPaymentSuite) TestPaymentsPromoteAndReplayChangesNothing() {
	reg := s.storeSubmitted("a@x.com", "+911234567890")
	s.Equal(regModels.RegistrationIncomplete, reg.RegistrationStatus)

	_, err := s.pay(reg, 600, "pay_1")
	s.Require().NoError(err)
	receipt, err := s.pay(reg, 400, "pay_2")
	s.Require().NoError(err)
	s.Equal(int64(1000), receipt.ContributionTotal)
	s.Equal(string(regModels.RegistrationComplete), receipt.RegistrationStatus)

	replay, err := s.pay(reg, 600, "pay_1")
	s.Require().NoError(err)
	s.True(replay.Replayed)
	s.Equal(int64(1000), replay.ContributionTotal)

	stored := s.stored(reg)
	s.Equal(int64(1000), stored.ContributionTotal)
	s.Equal(reg.Version+2, stored.Version)

	txns, err := s.transactions.ListByRegistration(context.Background(), reg.ID)
	s.Require().NoError(err)
	s.Len(txns, 2)
	for _, txn := range txns {
		s.NotNil(txn.AppliedAt)
	}
}

func (s *PostgresPaymentSuite) TestConcurrentPaymentsAllApply() {
	reg := s.storeSubmitted("a@x.com", "+911234567890")

	const payments = 4
	var wg sync.WaitGroup
	errs := make(chan error, payments)
	for i := range payments {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.pay(reg, 250, fmt.Sprintf("pay_%d", i))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	stored := s.stored(reg)
	s.Equal(int64(1000), stored.ContributionTotal)
	s.Equal(regModels.RegistrationComplete, stored.RegistrationStatus)
}

// TestConcurrentCallbacksForOneReferenceApplyOnce covers a gateway delivering
// the same callback several times at once.
func (s *PostgresPaymentSuite) TestConcurrentCallbacksForOneReferenceApplyOnce() {
	reg := s.storeSubmitted("a@x.com", "+911234567890")

	const callbacks = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	recorded := 0
	for range callbacks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := s.pay(reg, 700, "pay_dup")
			if err != nil {
				s.True(dErrors.HasCode(err, dErrors.CodeConflict), "unexpected error: %v", err)
				return
			}
			if !receipt.Replayed {
				mu.Lock()
				recorded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, recorded)
	s.Equal(int64(700), s.stored(reg).ContributionTotal)
}

// TestConcurrentReconcileAppliesOnce leaves a transaction unapplied, as a
// crash between recording and applying would, and races reconcilers on it.
func (s *PostgresPaymentSuite) TestConcurrentReconcileAppliesOnce() {
	ctx := context.Background()
	reg := s.storeSubmitted("a@x.com", "+911234567890")
	txn, err := models.NewTransaction(id.NewTransactionID(42), models.NewTransactionInput{
		RegistrationID: reg.ID,
		Amount:         1000,
		PaymentMethod:  "upi",
	}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.transactions.Create(ctx, txn))

	const reconcilers = 4
	var wg sync.WaitGroup
	var mu sync.Mutex
	var total ReconcileResult
	for range reconcilers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.service.ReconcilePending(ctx)
			s.NoError(err)
			mu.Lock()
			total.Applied += result.Applied
			total.Failed += result.Failed
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Equal(1, total.Applied)
	s.Zero(total.Failed)
	stored := s.stored(reg)
	s.Equal(int64(1000), stored.ContributionTotal)
	s.Equal(regModels.RegistrationComplete, stored.RegistrationStatus)

	pending, err := s.transactions.ListUnapplied(ctx, 0)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *PostgresPaymentSuite) TestFailuresLeaveNoPartialWrites() {
	reg := s.storeSubmitted("a@x.com", "+911234567890")
	_, err := s.pay(reg, 500, "pay_1")
	s.Require().NoError(err)

	// CorrectContribution below zero fails inside the unit of work.
	_, err = s.service.CorrectContribution(context.Background(), reg.ID, -1, "typo")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(int64(500), s.stored(reg).ContributionTotal)

	_, err = s.pay(&regModels.Registration{ID: id.NewRegistrationID()}, 500, "pay_orphan")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.transactions.FindByReference(context.Background(), "pay_orphan")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
