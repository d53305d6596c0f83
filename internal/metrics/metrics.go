// Package metrics exposes Prometheus collectors for runs, steps and provider
// calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podflow_steps_total",
			Help: "Total number of workflow steps by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podflow_step_duration_seconds",
			Help:    "Workflow step duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		},
		[]string{"kind"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podflow_runs_total",
			Help: "Total number of workflow runs by terminal status",
		},
		[]string{"status"},
	)

	runsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "podflow_runs_in_flight",
			Help: "Number of workflow runs currently executing",
		},
	)

	providerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podflow_provider_calls_total",
			Help: "Total number of provider calls by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	providerRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podflow_provider_retries_total",
			Help: "Total number of rate-limit retries by provider",
		},
		[]string{"provider"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podflow_http_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podflow_http_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordStep records one finished step.
func RecordStep(kind, status string, duration time.Duration) {
	stepsTotal.WithLabelValues(kind, status).Inc()
	stepDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RunStarted increments the in-flight gauge.
func RunStarted() {
	runsInFlight.Inc()
}

// RunFinished records a run's terminal status and decrements the in-flight gauge.
func RunFinished(status string) {
	runsInFlight.Dec()
	runsTotal.WithLabelValues(status).Inc()
}

// RecordProviderCall records one provider call outcome ("ok" or an error kind).
func RecordProviderCall(provider, status string) {
	providerCallsTotal.WithLabelValues(provider, status).Inc()
}

// RecordProviderRetry records a rate-limit retry.
func RecordProviderRetry(provider string) {
	providerRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordHTTPRequest records one API request, bucketing status by class.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	class := "unknown"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	case status >= 300:
		class = "3xx"
	case status >= 200:
		class = "2xx"
	}
	httpRequestsTotal.WithLabelValues(method, route, class).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
