package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Admitted *prometheus.CounterVec
	Denied   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Admitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_quota_admitted_total",
			Help: "Quota admissions granted by resource kind",
		}, []string{"kind"}),
		Denied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_quota_denied_total",
			Help: "Quota admissions denied by resource kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) IncAdmitted(kind Kind) {
	m.Admitted.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) IncDenied(kind Kind) {
	m.Denied.WithLabelValues(string(kind)).Inc()
}
