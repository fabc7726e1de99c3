package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Rejections by endpoint class and scope ("ip" or "identity").
	Rejections *prometheus.CounterVec
	// Checks that failed and let the request through.
	CheckErrors prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alumnireg_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"class", "scope"}),
		CheckErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "alumnireg_ratelimit_check_errors_total",
			Help: "Rate limit checks that errored and failed open",
		}),
	}
}

func (m *Metrics) IncrementRejection(class, scope string) {
	if m != nil {
		m.Rejections.WithLabelValues(class, scope).Inc()
	}
}

func (m *Metrics) IncrementCheckError() {
	if m != nil {
		m.CheckErrors.Inc()
	}
}
