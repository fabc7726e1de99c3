package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminservice "alumnireg/internal/admin/service"
	paymentModels "alumnireg/internal/payment/models"
	regModels "alumnireg/internal/registration/models"
)

func TestCommandsRequireDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	for _, args := range [][]string{
		{"migrate"},
		{"reconcile"},
		{"stats"},
		{"correct", "6f1c2d3e-0000-4000-8000-000000000001", "--total", "500", "--reason", "refund"},
		{"resend-confirmation", "6f1c2d3e-0000-4000-8000-000000000001"},
		{"migrate", "--reset", "--yes"},
	} {
		t.Run(args[0], func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(args)
			cmd.SetOut(&bytes.Buffer{})
			err := cmd.Execute()
			assert.ErrorIs(t, err, errNoDatabase)
		})
	}
}

func TestMigrateResetNeedsConfirmation(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://unused")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--reset"})
	cmd.SetOut(&bytes.Buffer{})
	assert.ErrorIs(t, cmd.Execute(), errResetNotConfirmed)
}

func TestResendConfirmationTakesOneID(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"resend-confirmation"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestCorrectRequiresReason(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"correct", "6f1c2d3e-0000-4000-8000-000000000001", "--total", "500"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reason")
}

func TestPrintDashboard(t *testing.T) {
	stats := regModels.NewStats()
	stats.Total = 3
	stats.Submitted = 2
	stats.Attending = 2
	stats.TotalAttendees = 5
	stats.ContributionTotal = 2500
	stats.ByPaymentStatus[regModels.PaymentCompleted] = 1
	stats.ByPaymentStatus[regModels.PaymentPending] = 1
	stats.ByRegistrationType["alumni"] = 2

	summary := paymentModels.NewSummary()
	summary.Count = 2
	summary.Total = 1500
	summary.Unapplied = 1

	var out bytes.Buffer
	printDashboard(&out, "INR", &adminservice.Dashboard{Registrations: stats, Payments: summary})

	text := out.String()
	assert.Contains(t, text, "Attending:    2 (5 attendees)")
	assert.Contains(t, text, "Pledged:      2500 INR")
	assert.Contains(t, text, "Collected:    1500 INR")
	assert.Contains(t, text, "Unapplied:    1")
	assert.Contains(t, text, "Completed:")
	assert.Contains(t, text, "alumni:")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("Completed:")), bytes.Index(out.Bytes(), []byte("Pending:")))
}

func TestPrintCountsSkipsEmpty(t *testing.T) {
	var out bytes.Buffer
	printCounts(&out, "Nothing", map[string]int{})
	assert.Empty(t, out.String())
}
