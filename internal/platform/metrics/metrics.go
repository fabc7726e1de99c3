package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds transport level Prometheus metrics.
type Metrics struct {
	RequestLatency *prometheus.HistogramVec
	Dependencies   *prometheus.GaugeVec
}

// New registers the metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alumnireg_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Dependencies: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alumnireg_dependency_up",
			Help: "Whether a backing dependency is configured and reachable (1) or not (0)",
		}, []string{"dependency"}),
	}
}

// ObserveRequestLatency records d under route.
func (m *Metrics) ObserveRequestLatency(route string, d time.Duration) {
	m.RequestLatency.WithLabelValues(route).Observe(d.Seconds())
}

// SetDependencyUp records the health of a dependency.
func (m *Metrics) SetDependencyUp(name string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.Dependencies.WithLabelValues(name).Set(v)
}
