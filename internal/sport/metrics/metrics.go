package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sport module.
type Metrics struct {
	SportsCreated     prometheus.Counter
	CategoriesCreated prometheus.Counter
	CategoriesClosed  prometheus.Counter
}

// New creates a new Metrics instance with all sport module metrics registered.
func New() *Metrics {
	return &Metrics{
		SportsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_sports_created_total",
			Help: "Total number of sports created",
		}),
		CategoriesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_categories_created_total",
			Help: "Total number of sport categories created",
		}),
		CategoriesClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_categories_closed_total",
			Help: "Total number of sport categories closed to registration",
		}),
	}
}

// IncrementSportCreated records a successful sport creation.
func (m *Metrics) IncrementSportCreated() {
	if m != nil {
		m.SportsCreated.Inc()
	}
}

// IncrementCategoryCreated records a successful category creation.
func (m *Metrics) IncrementCategoryCreated() {
	if m != nil {
		m.CategoriesCreated.Inc()
	}
}

// IncrementCategoryClosed records a category deactivation.
func (m *Metrics) IncrementCategoryClosed() {
	if m != nil {
		m.CategoriesClosed.Inc()
	}
}
