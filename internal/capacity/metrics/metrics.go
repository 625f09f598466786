package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the capacity ledger.
type Metrics struct {
	SeatsReserved   prometheus.Counter
	SeatsReleased   prometheus.Counter
	ReserveRejected prometheus.Counter
}

// New creates a new Metrics instance with all capacity ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		SeatsReserved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_capacity_seats_reserved_total",
			Help: "Total number of seats reserved across categories",
		}),
		SeatsReleased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_capacity_seats_released_total",
			Help: "Total number of seats released back to categories",
		}),
		ReserveRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_capacity_reserve_rejected_total",
			Help: "Total number of reservations rejected because the category was full",
		}),
	}
}

// IncrementReserved records a successful seat reservation.
func (m *Metrics) IncrementReserved() {
	if m != nil {
		m.SeatsReserved.Inc()
	}
}

// IncrementReleased records a seat release.
func (m *Metrics) IncrementReleased() {
	if m != nil {
		m.SeatsReleased.Inc()
	}
}

// IncrementRejected records a reservation rejected at the ceiling.
func (m *Metrics) IncrementRejected() {
	if m != nil {
		m.ReserveRejected.Inc()
	}
}
