package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the search instrumentation.
type Metrics struct {
	// requests counts searches by strategy and outcome kind.
	requests *prometheus.CounterVec
	// duration observes end-to-end search latency by strategy.
	duration *prometheus.HistogramVec
}

// NewMetrics registers the search metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sommelier_search_requests_total",
			Help: "Catalog searches by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sommelier_search_duration_seconds",
			Help:    "Catalog search latency by strategy.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
	}
}

func (m *Metrics) observe(strategy string, r Result, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strategy, r.Kind.String()).Inc()
	m.duration.WithLabelValues(strategy).Observe(seconds)
}
