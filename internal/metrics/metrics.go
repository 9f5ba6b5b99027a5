// Package metrics exposes Prometheus collectors for the resolver.
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

// Render outcomes used as the status label.
const (
	RenderOK     = "ok"
	RenderFailed = "failed"
	// StrategyNone labels accounts that no extractor resolved.
	StrategyNone = "none"
)

var (
	resolutionsTotal      *prometheus.CounterVec
	renderTotal           *prometheus.CounterVec
	renderRetriesTotal    prometheus.Counter
	renderDurationSeconds prometheus.Histogram
	rendersInFlight       prometheus.Gauge
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		resolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_resolutions_total",
				Help: "Accounts processed, labeled by the strategy that resolved them.",
			},
			[]string{"strategy"},
		)

		renderTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_render_total",
				Help: "Profile page renders, labeled by status.",
			},
			[]string{"status"},
		)

		renderRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "resolver_render_retries_total",
				Help: "Render attempts repeated after a failure.",
			},
		)

		renderDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "resolver_render_duration_seconds",
				Help:    "Histogram of profile page render latencies.",
				Buckets: []float64{1, 2.5, 5, 7.5, 10, 15, 30, 60},
			},
		)

		rendersInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "resolver_renders_in_flight",
				Help: "Number of renders currently running.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_http_requests_total",
				Help: "Ops server requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resolver_http_request_duration_seconds",
				Help:    "Ops server request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveResolution counts one processed account. An empty strategy is
// recorded as StrategyNone.
func ObserveResolution(strategy string) {
	if strategy == "" {
		strategy = StrategyNone
	}
	resolutionsTotal.WithLabelValues(strategy).Inc()
}

// ObserveRender records a finished render attempt.
func ObserveRender(status string, duration time.Duration) {
	renderTotal.WithLabelValues(status).Inc()
	renderDurationSeconds.Observe(duration.Seconds())
}

// ObserveRenderRetry increments the retry counter.
func ObserveRenderRetry() {
	renderRetriesTotal.Inc()
}

// IncRendersInFlight increments the in-flight gauge.
func IncRendersInFlight() {
	rendersInFlight.Inc()
}

// DecRendersInFlight decrements the in-flight gauge.
func DecRendersInFlight() {
	rendersInFlight.Dec()
}

// ObserveHTTPRequest records an ops server request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
