package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the payment module.
type Metrics struct {
	PaymentsCreated prometheus.Counter
	PaymentsSettled *prometheus.CounterVec
	RefundsApplied  prometheus.Counter
	RefundsRejected prometheus.Counter
	WebhookReplays  prometheus.Counter
	SettledAmount   prometheus.Histogram
}

// New creates a new Metrics instance with all payment module metrics registered.
func New() *Metrics {
	return &Metrics{
		PaymentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_payments_created_total",
			Help: "Total number of payments created",
		}),
		PaymentsSettled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsfest_payments_settled_total",
			Help: "Total number of payments settled, by outcome",
		}, []string{"outcome"}),
		RefundsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_refunds_applied_total",
			Help: "Total number of refunds applied",
		}),
		RefundsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_refunds_rejected_total",
			Help: "Total number of refunds rejected by the cumulative ceiling",
		}),
		WebhookReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_payment_webhook_replays_total",
			Help: "Total number of replayed provider outcomes detected",
		}),
		SettledAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sportsfest_payment_settled_amount_minor",
			Help:    "Settled payment amounts in minor currency units",
			Buckets: prometheus.ExponentialBuckets(1000, 4, 8),
		}),
	}
}

// IncrementCreated records a payment entering the ledger.
func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.PaymentsCreated.Inc()
	}
}

// IncrementSettled records a payment reaching the given outcome.
func (m *Metrics) IncrementSettled(outcome string) {
	if m != nil {
		m.PaymentsSettled.WithLabelValues(outcome).Inc()
	}
}

// IncrementRefundApplied records a refund passing the cumulative ceiling.
func (m *Metrics) IncrementRefundApplied() {
	if m != nil {
		m.RefundsApplied.Inc()
	}
}

// IncrementRefundRejected records a refund bouncing off the ceiling.
func (m *Metrics) IncrementRefundRejected() {
	if m != nil {
		m.RefundsRejected.Inc()
	}
}

// IncrementWebhookReplay records a provider outcome that had already been
// applied.
func (m *Metrics) IncrementWebhookReplay() {
	if m != nil {
		m.WebhookReplays.Inc()
	}
}

// ObserveSettledAmount records the size of a successfully settled payment.
func (m *Metrics) ObserveSettledAmount(minor int64) {
	if m != nil {
		m.SettledAmount.Observe(float64(minor))
	}
}
