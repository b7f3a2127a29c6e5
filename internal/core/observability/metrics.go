package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"upstream"},
	)

	upstreamResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_responses_total",
			Help: "Upstream download responses by outcome.",
		},
		[]string{"upstream", "outcome"},
	)

	downloadRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "download_rows",
			Help:    "Rows decoded per successful download.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

// Upstream outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeNoContent    = "no_content"
	OutcomeStatusError  = "status_error"
	OutcomeTransportErr = "transport_error"
	OutcomeDecodeError  = "decode_error"
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

func IncUpstreamOutcome(upstream, outcome string) {
	upstreamResponsesTotal.WithLabelValues(upstream, outcome).Inc()
}

func ObserveRows(n int) {
	downloadRows.Observe(float64(n))
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
