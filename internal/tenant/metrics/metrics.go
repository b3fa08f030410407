package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"orbit/internal/plan"
)

type Metrics struct {
	TenantCreated *prometheus.CounterVec
	TenantDeleted prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		TenantCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_tenants_created_total",
			Help: "Total number of organizations created directly, by plan",
		}, []string{"plan"}),
		TenantDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orbit_tenants_deleted_total",
			Help: "Total number of organizations deleted",
		}),
	}
}

func (m *Metrics) IncrementTenantCreated(p plan.Plan) {
	if m == nil {
		return
	}
	m.TenantCreated.WithLabelValues(string(p)).Inc()
}

func (m *Metrics) IncrementTenantDeleted() {
	if m == nil {
		return
	}
	m.TenantDeleted.Inc()
}
