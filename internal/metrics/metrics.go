// Package metrics holds the Prometheus collectors of the analyzer service.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ags_build_info",
			Help: "Build information of the AGS analyzer",
		},
		[]string{"version"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ags_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ags_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ags_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Normalization metrics
	NormalizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ags_normalizations_total",
			Help: "Total number of dataset normalizations",
		},
		[]string{"result"}, // "ok", "schema_error", "type_error", "value_error", "error"
	)

	NormalizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ags_normalization_duration_seconds",
			Help:    "Duration of dataset normalizations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
	)

	DatasetRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ags_dataset_rows",
			Help:    "Number of rows per uploaded dataset",
			Buckets: prometheus.ExponentialBuckets(10, 4, 10),
		},
	)

	// Insight (LLM) metrics
	InsightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ags_insight_requests_total",
			Help: "Total number of insight requests sent to an LLM runtime",
		},
		[]string{"provider", "status"},
	)

	InsightRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ags_insight_request_duration_seconds",
			Help:    "Duration of insight requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~410s
		},
		[]string{"provider"},
	)

	InsightTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ags_insight_tokens_total",
			Help: "Total number of LLM tokens used by insight requests",
		},
		[]string{"type"}, // "input", "output"
	)

	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ags_sessions_active",
			Help: "Number of live analysis sessions",
		},
	)

	SessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ags_sessions_expired_total",
			Help: "Total number of sessions removed after idling",
		},
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available, otherwise use the path
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := strconv.Itoa(ww.Status())
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ResultLabel is implemented by errors that know their metric label.
type ResultLabel interface {
	MetricLabel() string
}

// RecordNormalization records one normalization attempt.
func RecordNormalization(duration time.Duration, rows int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		var rl ResultLabel
		if errors.As(err, &rl) {
			result = rl.MetricLabel()
		}
	} else {
		DatasetRows.Observe(float64(rows))
	}
	NormalizationsTotal.WithLabelValues(result).Inc()
	NormalizationDuration.Observe(duration.Seconds())
}

// RecordInsightRequest records metrics for one LLM call.
func RecordInsightRequest(provider string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	InsightRequestsTotal.WithLabelValues(provider, status).Inc()
	InsightRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordInsightTokens records token usage of one LLM call.
func RecordInsightTokens(inputTokens, outputTokens int64) {
	if inputTokens > 0 {
		InsightTokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		InsightTokensTotal.WithLabelValues("output").Add(float64(outputTokens))
	}
}
