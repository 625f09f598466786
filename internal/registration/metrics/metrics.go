package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	RegistrationsCreated   prometheus.Counter
	RegistrationsConfirmed prometheus.Counter
	RegistrationsCancelled *prometheus.CounterVec
	RegistrationsRejected  prometheus.Counter
	RegistrationsPaid      prometheus.Counter
	SeatCompensations      prometheus.Counter
}

// New creates a new Metrics instance with all registration module metrics registered.
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_registrations_created_total",
			Help: "Total number of registrations created",
		}),
		RegistrationsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_registrations_confirmed_total",
			Help: "Total number of registrations confirmed with a seat",
		}),
		RegistrationsCancelled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsfest_registrations_cancelled_total",
			Help: "Total number of registrations cancelled, by origin",
		}, []string{"origin"}),
		RegistrationsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_registrations_rejected_total",
			Help: "Total number of registrations rejected",
		}),
		RegistrationsPaid: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_registrations_paid_total",
			Help: "Total number of registrations marked paid",
		}),
		SeatCompensations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_registration_seat_compensations_total",
			Help: "Total number of seats released to compensate a failed payment",
		}),
	}
}

// IncrementCreated records a registration entering the system.
func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.RegistrationsCreated.Inc()
	}
}

// IncrementConfirmed records a registration securing its seat.
func (m *Metrics) IncrementConfirmed() {
	if m != nil {
		m.RegistrationsConfirmed.Inc()
	}
}

// IncrementCancelled records a cancellation; origin is "user" or
// "payment_failed".
func (m *Metrics) IncrementCancelled(origin string) {
	if m != nil {
		m.RegistrationsCancelled.WithLabelValues(origin).Inc()
	}
}

// IncrementRejected records an administrative rejection.
func (m *Metrics) IncrementRejected() {
	if m != nil {
		m.RegistrationsRejected.Inc()
	}
}

// IncrementPaid records a registration's payment settling.
func (m *Metrics) IncrementPaid() {
	if m != nil {
		m.RegistrationsPaid.Inc()
	}
}

// IncrementSeatCompensation records a seat released because the payment for
// it failed.
func (m *Metrics) IncrementSeatCompensation() {
	if m != nil {
		m.SeatCompensations.Inc()
	}
}
