package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "alumnireg/pkg/domain"
	dErrors "alumnireg/pkg/domain-errors"
)

func TestNewRecord(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	rec, err := NewRecord(id.NewVerificationID(), "a@x.com", "+911234567890", "hash", Requester{IP: "10.0.0.1", Device: "Firefox on Linux"}, now)
	require.NoError(t, err)
	assert.Zero(t, rec.Attempts)
	assert.False(t, rec.Verified)
	assert.Equal(t, "10.0.0.1", rec.RequesterIP)

	_, err = NewRecord(id.VerificationID{}, "a@x.com", "+911234567890", "hash", Requester{}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewRecord(id.NewVerificationID(), "a@x.com", "", "hash", Requester{}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestRecordLifecycle(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	rec, err := NewRecord(id.NewVerificationID(), "a@x.com", "+911234567890", "hash", Requester{}, now)
	require.NoError(t, err)

	assert.False(t, rec.IsExpired(now.Add(10*time.Minute), 10*time.Minute))
	assert.True(t, rec.IsExpired(now.Add(10*time.Minute+time.Second), 10*time.Minute))

	for i := 1; i <= 5; i++ {
		assert.False(t, rec.RecordAttempt(5))
		assert.Equal(t, 5-i, rec.RemainingAttempts(5))
	}
	assert.True(t, rec.RecordAttempt(5))
	assert.Zero(t, rec.RemainingAttempts(5))

	rec.MarkVerified(now)
	require.NotNil(t, rec.VerifiedAt)
	assert.True(t, rec.Verified)

	grant := rec.Grant()
	assert.True(t, grant.Covers("a@x.com", "+911234567890"))
	assert.False(t, grant.Covers("a@x.com", "+919999999999"))
}
