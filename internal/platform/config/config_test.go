package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("OTP_VALIDITY_WINDOW", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Server.IsProduction())
	assert.Equal(t, 10*time.Minute, cfg.Verification.ValidityWindow)
	assert.Equal(t, 5, cfg.Verification.MaxAttempts)
	assert.Equal(t, 6, cfg.Verification.CodeLength)
	assert.Equal(t, int64(500), cfg.Contribution.StandardRate)
	assert.Equal(t, int64(350), cfg.Contribution.RecentGraduateRate)
	assert.Equal(t, int64(350), cfg.Contribution.YouthRate)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("OTP_VALIDITY_WINDOW", "5m")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CONTRIBUTION_LATEST_COHORT", "2026")
	t.Setenv("RECONCILE_ON_BOOT", "false")

	cfg := FromEnv()

	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, 5*time.Minute, cfg.Verification.ValidityWindow)
	assert.Equal(t, 3, cfg.Verification.MaxAttempts)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 2026, cfg.Contribution.LatestCohort)
	assert.False(t, cfg.Storage.ReconcileOnBoot)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("OTP_VALIDITY_WINDOW", "forever")
	t.Setenv("OTP_CODE_LENGTH", "six")

	cfg := FromEnv()

	assert.Equal(t, 10*time.Minute, cfg.Verification.ValidityWindow)
	assert.Equal(t, 6, cfg.Verification.CodeLength)
}

func TestRateLimitSettings(t *testing.T) {
	t.Setenv("RATE_LIMIT_DISABLED", "")
	t.Setenv("RATE_LIMIT_OTP_ISSUE_PER_EMAIL", "0")
	t.Setenv("RATE_LIMIT_OTP_WINDOW", "1h")

	cfg := FromEnv()

	assert.False(t, cfg.RateLimit.Disabled)
	assert.Equal(t, 0, cfg.RateLimit.IssuePerIdentity, "zero disables the limit")
	assert.Equal(t, 30, cfg.RateLimit.IssuePerIP)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, time.Minute, cfg.RateLimit.WriteWindow)
}
