package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Sent         *prometheus.CounterVec
	Failed       *prometheus.CounterVec
	Dropped      prometheus.Counter
	CircuitState prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Sent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_notifications_sent_total",
			Help: "Emails delivered, by template",
		}, []string{"kind"}),
		Failed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_notifications_failed_total",
			Help: "Emails that could not be delivered, by template and reason",
		}, []string{"kind", "reason"}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orbit_notifications_dropped_total",
			Help: "Emails dropped because the queue was full or closed",
		}),
		CircuitState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "orbit_notifications_circuit_open",
			Help: "1 while the mail circuit breaker is open",
		}),
	}
}

func (m *Metrics) incSent(kind string) {
	if m != nil {
		m.Sent.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) incFailed(kind, reason string) {
	if m != nil {
		m.Failed.WithLabelValues(kind, reason).Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) setCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitState.Set(1)
		return
	}
	m.CircuitState.Set(0)
}
