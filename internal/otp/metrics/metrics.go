package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the OTP login flow.
type Metrics struct {
	CodesRequested prometheus.Counter
	LoginsVerified prometheus.Counter
	VerifyRejected *prometheus.CounterVec
	Lockouts       prometheus.Counter
}

// New creates a new Metrics instance with all OTP module metrics registered.
func New() *Metrics {
	return &Metrics{
		CodesRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_otp_codes_requested_total",
			Help: "Total number of login codes issued",
		}),
		LoginsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_otp_logins_verified_total",
			Help: "Total number of successful code verifications",
		}),
		VerifyRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sportsfest_otp_verify_rejected_total",
			Help: "Total number of rejected verifications by reason",
		}, []string{"reason"}),
		Lockouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sportsfest_otp_lockouts_total",
			Help: "Total number of challenges locked after too many failures",
		}),
	}
}

// IncrementRequested records an issued login code.
func (m *Metrics) IncrementRequested() {
	if m != nil {
		m.CodesRequested.Inc()
	}
}

// IncrementVerified records a successful verification.
func (m *Metrics) IncrementVerified() {
	if m != nil {
		m.LoginsVerified.Inc()
	}
}

// IncrementRejected records a rejected verification. Reason is one of
// "missing", "expired", "mismatch" or "locked".
func (m *Metrics) IncrementRejected(reason string) {
	if m != nil {
		m.VerifyRejected.WithLabelValues(reason).Inc()
	}
}

// IncrementLockout records a challenge invalidated by repeated failures.
func (m *Metrics) IncrementLockout() {
	if m != nil {
		m.Lockouts.Inc()
	}
}
