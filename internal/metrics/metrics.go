// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	ingestRequestsTotal        *prometheus.CounterVec
	ingestReplaysTotal         prometheus.Counter
	pagesCreatedTotal          *prometheus.CounterVec
	sideEffectFailuresTotal    *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		ingestRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_requests_total",
				Help: "Total webhook ingestion requests, labeled by dialect and status code.",
			},
			[]string{"dialect", "code"},
		)

		ingestReplaysTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_idempotent_replays_total",
				Help: "Total responses served from the idempotency store.",
			},
		)

		pagesCreatedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "landing_pages_created_total",
				Help: "Total landing pages created, labeled by language.",
			},
			[]string{"language"},
		)

		sideEffectFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_side_effect_failures_total",
				Help: "Total fire-and-forget side effect failures, labeled by effect.",
			},
			[]string{"effect"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveIngest increments the ingestion counter for one request.
func ObserveIngest(dialect string, code int) {
	ingestRequestsTotal.WithLabelValues(dialect, strconv.Itoa(code)).Inc()
}

// ObserveReplay increments the idempotent replay counter.
func ObserveReplay() {
	ingestReplaysTotal.Inc()
}

// ObservePageCreated increments the created-pages counter.
func ObservePageCreated(language string) {
	pagesCreatedTotal.WithLabelValues(language).Inc()
}

// ObserveSideEffectFailure increments the side effect failure counter.
func ObserveSideEffectFailure(effect string) {
	sideEffectFailuresTotal.WithLabelValues(effect).Inc()
}
