package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "alumnireg/pkg/domain-errors"
)

type sampleRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		require.NoError(t, Struct(&sampleRequest{Email: "a@x.com", Amount: 10}))
	})

	t.Run("missing field uses json name", func(t *testing.T) {
		err := Struct(&sampleRequest{Amount: 10})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		de, _ := dErrors.As(err)
		assert.Equal(t, "email is required", de.Message)
	})

	t.Run("bound violation", func(t *testing.T) {
		err := Struct(&sampleRequest{Email: "a@x.com"})
		require.Error(t, err)
		de, _ := dErrors.As(err)
		assert.Equal(t, "amount must be greater than 0", de.Message)
	})

	t.Run("untagged structs pass", func(t *testing.T) {
		require.NoError(t, Struct(&struct{ Name string }{}))
	})
}
