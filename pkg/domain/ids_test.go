package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "alumnireg/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRegistrationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRegistrationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRegistrationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseRegistrationID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, RegistrationID(validUUID), id)
	})
}

func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE registrations;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errReg := ParseRegistrationID(tt.input)
			_, errVer := ParseVerificationID(tt.input)
			if tt.wantErr {
				require.Error(t, errReg)
				require.Error(t, errVer)
				assert.True(t, dErrors.HasCode(errReg, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, errReg)
				require.NoError(t, errVer)
			}
		})
	}
}

func TestRegistrationIDText(t *testing.T) {
	id := NewRegistrationID()
	text, err := id.MarshalText()
	require.NoError(t, err)

	var decoded RegistrationID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
	assert.False(t, decoded.IsNil())
}

func TestParseTransactionID(t *testing.T) {
	valid := NewTransactionID(1789012345678901234)
	assert.Equal(t, "TXN-1789012345678901234", valid.String())

	parsed, err := ParseTransactionID(valid.String())
	require.NoError(t, err)
	assert.Equal(t, valid, parsed)

	for _, bad := range []string{"", "TXN-", "TXN-12a", "txn-123", "123", "TXN-" + strings.Repeat("1", 40)} {
		_, err := ParseTransactionID(bad)
		assert.Error(t, err, bad)
	}
}
