//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"alumnireg/internal/registration/models"
	"alumnireg/internal/registration/store"
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
	s.Require().NoError(s.postgres.TruncateTables(context.Background()))
}

func (s *PostgresStoreSuite) registration(email id.Email, contact id.ContactNumber) *models.Registration {
	reg, err := models.NewRegistration(id.NewRegistrationID(), email, contact, id.NewVerificationID(), models.FormPatch{
		PersonalInfo: &models.PersonalInfoPatch{Name: models.Set("Asha")},
	}, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return reg
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	reg := s.registration("a@x.com", "+911234567890")
	s.Require().NoError(s.store.Create(ctx, reg))

	got, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(reg.Email, got.Email)
	s.Equal(reg.VerificationID, got.VerificationID)
	s.Equal(reg.Form.PersonalInfo, got.Form.PersonalInfo)
	s.Equal(reg.Steps, got.Steps)
	s.Equal(reg.RegistrationDate, got.RegistrationDate)

	byContact, err := s.store.FindByIdentity(ctx, "other@x.com", "+911234567890")
	s.Require().NoError(err)
	s.Equal(reg.ID, byContact.ID)

	_, err = s.store.FindByID(ctx, id.NewRegistrationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByIdentityPrefersEmailMatch() {
	ctx := context.Background()
	byEmail := s.registration("a@x.com", "+911111111111")
	byContact := s.registration("b@x.com", "+912222222222")
	s.Require().NoError(s.store.Create(ctx, byContact))
	s.Require().NoError(s.store.Create(ctx, byEmail))

	got, err := s.store.FindByIdentity(ctx, "a@x.com", "+912222222222")
	s.Require().NoError(err)
	s.Equal(byEmail.ID, got.ID)
}

func (s *PostgresStoreSuite) TestRejectsDuplicateIdentity() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.registration("a@x.com", "+911234567890")))

	s.True(store.IsDuplicateIdentity(s.store.Create(ctx, s.registration("a@x.com", "+919999999999"))))
	s.True(store.IsDuplicateIdentity(s.store.Create(ctx, s.registration("b@x.com", "+911234567890"))))
}

func (s *PostgresStoreSuite) TestUpdateChecksVersion() {
	ctx := context.Background()
	reg := s.registration("a@x.com", "+911234567890")
	s.Require().NoError(s.store.Create(ctx, reg))

	first, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	second, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)

	first.CurrentStep = 2
	first.ContributionTotal = 1000
	s.Require().NoError(s.store.Update(ctx, first))
	s.Equal(int64(2), first.Version)

	second.CurrentStep = 3
	err = s.store.Update(ctx, second)
	s.ErrorIs(err, sentinel.ErrConflict)

	stored, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(2, stored.CurrentStep)
	s.Equal(int64(1000), stored.ContributionTotal)

	missing := s.registration("z@x.com", "+910000000000")
	s.ErrorIs(s.store.Update(ctx, missing), sentinel.ErrNotFound)
}

// TestConcurrentUpdatesSerialize verifies that only one writer wins each
// version when many read the same snapshot.
func (s *PostgresStoreSuite) TestConcurrentUpdatesSerialize() {
	ctx := context.Background()
	reg := s.registration("a@x.com", "+911234567890")
	s.Require().NoError(s.store.Create(ctx, reg))

	const writers = 20
	var wg sync.WaitGroup
	var won, lost atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshot := *reg
			snapshot.ContributionTotal += 100
			err := s.store.Update(ctx, &snapshot)
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				lost.Add(1)
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), won.Load())
	s.Equal(int32(writers-1), lost.Load())
	stored, err := s.store.FindByID(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(int64(100), stored.ContributionTotal)
	s.Equal(int64(2), stored.Version)
}

func (s *PostgresStoreSuite) TestStats() {
	ctx := context.Background()
	a := s.registration("a@x.com", "+911234567890")
	a.Form.EventAttendance.IsAttending = true
	a.Form.EventAttendance.Attendees.Adults.Veg = 2
	a.Form.EventAttendance.Attendees.Children.NonVeg = 1
	a.PaymentStatus = models.PaymentFinancialDifficulty
	a.FormSubmissionComplete = true
	a.Form.Financial.HardshipDeclined = true
	a.RegistrationStatus = models.RegistrationIncomplete
	b := s.registration("b@x.com", "+911234567891")
	b.ContributionTotal = 1500
	b.PaymentStatus = models.PaymentCompleted
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	stats, err := s.store.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.Total)
	s.Equal(1, stats.Submitted)
	s.Equal(1, stats.Attending)
	s.Equal(3, stats.TotalAttendees)
	s.Equal(1, stats.Hardship)
	s.Equal(int64(1500), stats.ContributionTotal)
	s.Equal(2, stats.ByRegistrationType[models.DefaultRegistrationType])
	s.Equal(1, stats.ByPaymentStatus[models.PaymentCompleted])
	s.Equal(1, stats.ByPaymentStatus[models.PaymentFinancialDifficulty])
}
