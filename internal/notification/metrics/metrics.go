package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the notification module.
type Metrics struct {
	Queued    *prometheus.CounterVec
	Delivered *prometheus.CounterVec
	Failed    prometheus.Counter
	Dropped   prometheus.Counter
}

// New creates a new Metrics instance with all notification module metrics
// registered.
func New() *Metrics {
	return &Metrics{
		Queued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsfest_notifications_queued_total",
			Help: "Total number of notifications accepted into the queue by kind",
		}, []string{"kind"}),
		Delivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsfest_notifications_delivered_total",
			Help: "Total number of notifications handed to the sender by kind",
		}, []string{"kind"}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_notifications_failed_total",
			Help: "Total number of notifications the sender refused",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_notifications_dropped_total",
			Help: "Total number of notifications dropped because the queue was full",
		}),
	}
}

// IncrementQueued records a notification accepted into the queue.
func (m *Metrics) IncrementQueued(kind string) {
	if m != nil {
		m.Queued.WithLabelValues(kind).Inc()
	}
}

// IncrementDelivered records a successful delivery.
func (m *Metrics) IncrementDelivered(kind string) {
	if m != nil {
		m.Delivered.WithLabelValues(kind).Inc()
	}
}

// IncrementFailed records a delivery the sender refused.
func (m *Metrics) IncrementFailed() {
	if m != nil {
		m.Failed.Inc()
	}
}

// IncrementDropped records a notification rejected because the queue was
// full.
func (m *Metrics) IncrementDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}
