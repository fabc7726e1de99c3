package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnireg/internal/platform/config"
)

func TestProductionLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.EnvProduction)
	log.Info("registration created", "registration_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "registration created", line["msg"])
	assert.Equal(t, "alumnireg", line["service"])
	assert.Equal(t, "abc", line["registration_id"])
}

func TestDevelopmentLoggerIncludesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.EnvDevelopment)
	log.Debug("otp issued")

	assert.Contains(t, buf.String(), "otp issued")
}
