package attrs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	u := uuid.MustParse("6f1c2a1e-8d1c-4f39-9a57-2b8f3f2c9d11")
	list := []any{"step", 3, "registration_id", u, "subject", "a@x.com", "dangling"}

	assert.Equal(t, "a@x.com", ExtractString(list, "subject"))
	assert.Equal(t, u.String(), ExtractString(list, "registration_id"))
	assert.Empty(t, ExtractString(list, "step"))
	assert.Empty(t, ExtractString(list, "dangling"))
}

func TestToMap(t *testing.T) {
	list := []any{"step", 3, "registration_id", "r-1", 42, "ignored", "amount", int64(500)}

	assert.Equal(t, map[string]any{"step": 3, "amount": int64(500)}, ToMap(list, "registration_id"))
	assert.Nil(t, ToMap([]any{"registration_id", "r-1"}, "registration_id"))
}
