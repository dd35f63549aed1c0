package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "sommelier"

// chatBuckets spans a quick catalog lookup up to a slow multi-tool turn.
var chatBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120}

// serverMetrics is created per Server so tests can pass their own registry.
type serverMetrics struct {
	// chatRequestsTotal counts finished chat turns by outcome: ok, timeout
	// or error. Requests rejected before the agent runs are not turns.
	chatRequestsTotal *prometheus.CounterVec

	// chatDurationSeconds is the turn time from request to the last SSE
	// event, by outcome.
	chatDurationSeconds *prometheus.HistogramVec

	chatActiveStreams prometheus.Gauge

	// rateLimitedTotal counts chat requests refused with 429.
	rateLimitedTotal prometheus.Counter

	// httpRequestsTotal and httpDurationSeconds are labelled with the route
	// name given to instrument, never the raw path.
	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	f := promauto.With(reg)
	chat := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: metricsNamespace, Subsystem: "chat", Name: name, Help: help}
	}

	return &serverMetrics{
		chatRequestsTotal: f.NewCounterVec(prometheus.CounterOpts(
			chat("requests_total", "Chat turns served over /api/chat by outcome."),
		), []string{"outcome"}),
		chatDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Chat turn duration by outcome.",
			Buckets:   chatBuckets,
		}, []string{"outcome"}),
		chatActiveStreams: f.NewGauge(prometheus.GaugeOpts(
			chat("active_streams", "Open /api/chat SSE streams."),
		)),
		rateLimitedTotal: f.NewCounter(prometheus.CounterOpts(
			chat("rate_limited_total", "Chat requests refused by the per-IP limit."),
		)),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "handler", "code"}),
		httpDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "handler"}),
	}
}

// instrument records request count and latency under the route name.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
