package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration wizard.
type Metrics struct {
	RegistrationsCreated prometheus.Counter

	// Step saves by step number and result: "saved", "unchanged"
	StepSaves *prometheus.CounterVec

	// Final submissions by registration status
	Submissions *prometheus.CounterVec

	HardshipDeclarations prometheus.Counter

	// Writes that lost the optimistic version check and were retried
	VersionConflicts prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "alumnireg_registrations_created_total",
			Help: "Registrations created at step 1",
		}),
		StepSaves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alumnireg_registration_step_saves_total",
			Help: "Wizard step saves by step and result",
		}, []string{"step", "result"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alumnireg_registration_submissions_total",
			Help: "Completed wizard submissions by registration status",
		}, []string{"status"}),
		HardshipDeclarations: f.NewCounter(prometheus.CounterOpts{
			Name: "alumnireg_registration_hardship_total",
			Help: "Submissions that declined the minimum contribution",
		}),
		VersionConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "alumnireg_registration_version_conflicts_total",
			Help: "Step saves that hit a stale registration version",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.RegistrationsCreated.Inc()
	}
}

func (m *Metrics) IncrementStepSave(step, result string) {
	if m != nil {
		m.StepSaves.WithLabelValues(step, result).Inc()
	}
}

func (m *Metrics) IncrementSubmission(status string) {
	if m != nil {
		m.Submissions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementHardship() {
	if m != nil {
		m.HardshipDeclarations.Inc()
	}
}

func (m *Metrics) IncrementConflict() {
	if m != nil {
		m.VersionConflicts.Inc()
	}
}
