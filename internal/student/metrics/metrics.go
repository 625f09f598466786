package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the student module.
type Metrics struct {
	StudentsEnrolled prometheus.Counter
}

// New creates a new Metrics instance with all student module metrics registered.
func New() *Metrics {
	return &Metrics{
		StudentsEnrolled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_students_enrolled_total",
			Help: "Total number of students enrolled",
		}),
	}
}

// IncrementStudentEnrolled records a successful enrollment.
func (m *Metrics) IncrementStudentEnrolled() {
	if m != nil {
		m.StudentsEnrolled.Inc()
	}
}
