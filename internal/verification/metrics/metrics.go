package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification gate.
type Metrics struct {
	CodesIssued prometheus.Counter

	// Verify outcomes: "verified", "reissued", "invalid_code", "expired", "exhausted", "not_found"
	VerifyOutcomes *prometheus.CounterVec

	// Code deliveries the notification port refused
	DispatchFailures prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CodesIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "alumnireg_verification_codes_issued_total",
			Help: "Verification codes issued",
		}),
		VerifyOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alumnireg_verification_attempts_total",
			Help: "Verification attempts by outcome",
		}, []string{"outcome"}),
		DispatchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "alumnireg_verification_dispatch_failures_total",
			Help: "Verification code deliveries that could not be enqueued",
		}),
	}
}

func (m *Metrics) IncrementIssued() {
	if m != nil {
		m.CodesIssued.Inc()
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.VerifyOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementDispatchFailure() {
	if m != nil {
		m.DispatchFailures.Inc()
	}
}
