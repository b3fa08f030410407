package request

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewMetrics registers the HTTP collectors with the default registry.
// Call it once per process.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orbit_http_request_duration_seconds",
			Help:    "Latency of HTTP routes in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orbit_http_requests_total",
			Help: "HTTP requests by route, method and status class",
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) observe(route, method string, status int, elapsed time.Duration) {
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
	m.requests.WithLabelValues(route, method, statusClass(status)).Inc()
}

// statusClass folds codes into "2xx", "4xx" and so on to bound cardinality.
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
