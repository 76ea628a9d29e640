package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Client: API calls
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "market_api_request_duration_seconds",
			Help:    "Latency of calls made to the marketplace API in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"code", "method"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_api_requests_total",
			Help: "Total number of calls made to the marketplace API",
		},
		[]string{"code", "method"},
	)

	// Client: mutation executor
	MutationAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_mutation_attempts_total",
			Help: "Per-token mutation attempts by result",
		},
		[]string{"operation", "result"},
	)

	MutationOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_mutation_outcomes_total",
			Help: "Terminal outcomes of logical mutations",
		},
		[]string{"operation", "outcome"},
	)

	SessionClearsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_session_clears_total",
			Help: "Number of times the local session was cleared, by reason",
		},
		[]string{"reason"},
	)

	QueryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_query_failures_total",
			Help: "Failed read queries by kind",
		},
		[]string{"query", "kind"},
	)

	// Mock API: HTTP server
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ListingsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mock_listings_stored",
			Help: "Number of listings held by the mock API",
		},
	)
)

// InstrumentTransport wraps next so every API call is counted and timed.
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperCounter(APIRequestsTotal,
		promhttp.InstrumentRoundTripperDuration(APIRequestDuration, next))
}

// WriteTextfile dumps the default registry in the Prometheus text format,
// for pickup by a node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
