package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sponsorship module.
type Metrics struct {
	SponsorshipsApplied prometheus.Counter
	SponsorshipsDecided *prometheus.CounterVec
	SponsorshipsExpired prometheus.Counter
}

// New creates a new Metrics instance with all sponsorship module metrics registered.
func New() *Metrics {
	return &Metrics{
		SponsorshipsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_sponsorships_applied_total",
			Help: "Total number of sponsorship applications received",
		}),
		SponsorshipsDecided: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsfest_sponsorships_decided_total",
			Help: "Total number of sponsorship verdicts, by decision",
		}, []string{"decision"}),
		SponsorshipsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_sponsorships_expired_total",
			Help: "Total number of approved sponsorships lapsed by the expiry sweep",
		}),
	}
}

// IncrementApplied records a new sponsorship application.
func (m *Metrics) IncrementApplied() {
	if m != nil {
		m.SponsorshipsApplied.Inc()
	}
}

// IncrementDecided records a verdict on an application.
func (m *Metrics) IncrementDecided(decision string) {
	if m != nil {
		m.SponsorshipsDecided.WithLabelValues(decision).Inc()
	}
}

// IncrementExpired records an approved grant lapsing.
func (m *Metrics) IncrementExpired() {
	if m != nil {
		m.SponsorshipsExpired.Inc()
	}
}
