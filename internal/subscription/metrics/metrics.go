package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	WebhookEvents *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	Checkouts     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_subscription_webhook_events_total",
			Help: "Billing webhook events handled, by event type and outcome",
		}, []string{"type", "outcome"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_subscription_transitions_total",
			Help: "Plan transitions applied to tenants",
		}, []string{"from", "to"}),
		Checkouts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_subscription_checkouts_started_total",
			Help: "Checkout sessions opened, by plan",
		}, []string{"plan"}),
	}
}

func (m *Metrics) IncWebhookEvent(eventType, outcome string) {
	m.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) IncTransition(from, to string) {
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncCheckout(plan string) {
	m.Checkouts.WithLabelValues(plan).Inc()
}
