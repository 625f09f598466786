package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the outbox relay.
type Metrics struct {
	EventsRecorded  prometheus.Counter
	EventsPublished prometheus.Counter
	PublishFailures prometheus.Counter
	Backlog         prometheus.Gauge
}

// New creates a new Metrics instance with all outbox metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_outbox_events_recorded_total",
			Help: "Total number of events written to the outbox",
		}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_outbox_events_published_total",
			Help: "Total number of outbox events delivered by the relay",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_outbox_publish_failures_total",
			Help: "Total number of failed relay delivery attempts",
		}),
		Backlog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sportsfest_outbox_backlog",
			Help: "Outbox events awaiting delivery",
		}),
	}
}

// IncrementRecorded records an event entering the outbox.
func (m *Metrics) IncrementRecorded() {
	if m != nil {
		m.EventsRecorded.Inc()
	}
}

// AddPublished records a delivered batch.
func (m *Metrics) AddPublished(n int) {
	if m != nil {
		m.EventsPublished.Add(float64(n))
	}
}

// IncrementPublishFailure records a delivery attempt that failed.
func (m *Metrics) IncrementPublishFailure() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

// SetBacklog records the current undelivered backlog size.
func (m *Metrics) SetBacklog(n int) {
	if m != nil {
		m.Backlog.Set(float64(n))
	}
}
