package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for sign-in and registration.
type Metrics struct {
	Registrations   *prometheus.CounterVec
	Logins          prometheus.Counter
	AuthFailures    *prometheus.CounterVec
	TokenRefreshes  prometheus.Counter
	LoginDurationMs prometheus.Histogram
}

// New registers and returns auth metrics collectors.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_registrations_total",
			Help: "Accounts registered, by role",
		}, []string{"role"}),
		Logins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orbit_logins_total",
			Help: "Successful sign-ins",
		}),
		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_auth_failures_total",
			Help: "Rejected sign-in and refresh attempts, by reason",
		}, []string{"reason"}),
		TokenRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orbit_token_refreshes_total",
			Help: "Access tokens issued from a refresh token",
		}),
		LoginDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "orbit_login_duration_ms",
			Help:    "Duration of sign-in requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

func (m *Metrics) IncrementRegistrations(role string) {
	m.Registrations.WithLabelValues(role).Inc()
}

func (m *Metrics) IncrementLogins() {
	m.Logins.Inc()
}

func (m *Metrics) IncrementAuthFailures(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementTokenRefreshes() {
	m.TokenRefreshes.Inc()
}

func (m *Metrics) ObserveLoginDuration(durationMs float64) {
	m.LoginDurationMs.Observe(durationMs)
}
