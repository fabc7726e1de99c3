package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnireg/internal/registration/models"
	"alumnireg/internal/registration/store"
	id "alumnireg/pkg/domain"
	"alumnireg/pkg/platform/sentinel"
)

func TestRegistrationFinder(t *testing.T) {
	ctx := context.Background()
	registrations := store.NewInMemoryStore()
	finder := NewRegistrationFinder(registrations)

	_, err := finder.FindIDByIdentity(ctx, "a@x.com", "+911234567890")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	reg, err := models.NewRegistration(id.NewRegistrationID(), "a@x.com", "+911234567890", id.NewVerificationID(),
		models.FormPatch{PersonalInfo: &models.PersonalInfoPatch{Name: models.Set("Asha")}}, time.Now())
	require.NoError(t, err)
	require.NoError(t, registrations.Create(ctx, reg))

	t.Run("matches on contact alone", func(t *testing.T) {
		got, err := finder.FindIDByIdentity(ctx, "other@x.com", "+911234567890")
		require.NoError(t, err)
		assert.Equal(t, reg.ID, got)
	})
}
