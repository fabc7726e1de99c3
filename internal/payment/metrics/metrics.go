package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for payment reconciliation.
type Metrics struct {
	// Recorded payments by purpose and result: "recorded", "replayed"
	Payments *prometheus.CounterVec

	// Sum of recorded amounts by purpose, in the smallest currency unit
	Amount *prometheus.CounterVec

	// Transactions replayed onto their registration by ReconcilePending
	Reconciled prometheus.Counter

	Corrections prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Payments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alumnireg_payments_total",
			Help: "Payments recorded by purpose and result",
		}, []string{"purpose", "result"}),
		Amount: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alumnireg_payment_amount_total",
			Help: "Sum of recorded payment amounts by purpose",
		}, []string{"purpose"}),
		Reconciled: f.NewCounter(prometheus.CounterOpts{
			Name: "alumnireg_payments_reconciled_total",
			Help: "Unapplied transactions replayed onto their registration",
		}),
		Corrections: f.NewCounter(prometheus.CounterOpts{
			Name: "alumnireg_contribution_corrections_total",
			Help: "Operator corrections of a registration's contribution",
		}),
	}
}

func (m *Metrics) IncrementPayment(purpose, result string, amount int64) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(purpose, result).Inc()
	if result == "recorded" {
		m.Amount.WithLabelValues(purpose).Add(float64(amount))
	}
}

func (m *Metrics) IncrementReconciled() {
	if m != nil {
		m.Reconciled.Inc()
	}
}

func (m *Metrics) IncrementCorrection() {
	if m != nil {
		m.Corrections.Inc()
	}
}
