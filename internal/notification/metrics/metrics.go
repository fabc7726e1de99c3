package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for notification delivery.
type Metrics struct {
	// Intents accepted by a port, by kind and port ("queue", "kafka")
	Enqueued *prometheus.CounterVec

	// Intents a port could not accept
	Dropped *prometheus.CounterVec

	// Delivery outcomes by channel and result ("sent", "failed", "skipped", "circuit_open")
	Deliveries *prometheus.CounterVec

	DeliveryLatency *prometheus.HistogramVec
}

// New registers notification metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers notification metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alumnireg_notifications_enqueued_total",
			Help: "Notification intents accepted for delivery",
		}, []string{"kind", "port"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alumnireg_notifications_dropped_total",
			Help: "Notification intents rejected by the port",
		}, []string{"kind", "port"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "alumnireg_notification_deliveries_total",
			Help: "Notification delivery attempts by channel and result",
		}, []string{"channel", "result"}),
		DeliveryLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alumnireg_notification_delivery_duration_seconds",
			Help:    "Duration of a single delivery attempt by channel",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"channel"}),
	}
}

func (m *Metrics) IncrementEnqueued(kind, port string) {
	if m != nil {
		m.Enqueued.WithLabelValues(kind, port).Inc()
	}
}

func (m *Metrics) IncrementDropped(kind, port string) {
	if m != nil {
		m.Dropped.WithLabelValues(kind, port).Inc()
	}
}

// ObserveDelivery records the result and, for attempted sends, the latency.
func (m *Metrics) ObserveDelivery(channel, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(channel, result).Inc()
	if d > 0 {
		m.DeliveryLatency.WithLabelValues(channel).Observe(d.Seconds())
	}
}
