// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	SignaturesFetched   prometheus.Counter
	SignaturePagesTotal prometheus.Counter
	ResolutionsTotal    *prometheus.CounterVec
	ResolverRetries     prometheus.Counter

	// Upstream metrics
	RPCCallLatency     *prometheus.HistogramVec
	UpstreamErrors     *prometheus.CounterVec
	CircuitBreakerOpen prometheus.Gauge

	// Analysis metrics
	AnalysisRunsTotal *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	BuyersClassified  prometheus.Counter
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_buyer_analyze"
	}

	return &Metrics{
		// Ingestion metrics
		SignaturesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "signatures_fetched_total",
			Help:      "Total number of signatures fetched from the signature source",
		}),
		SignaturePagesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "signature_pages_total",
			Help:      "Total number of signature pages requested",
		}),
		ResolutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "resolutions_total",
			Help:      "Total number of transaction resolutions by outcome",
		}, []string{"outcome"}),
		ResolverRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "resolver_retries_total",
			Help:      "Total number of rate-limit retries during resolution",
		}),

		// Upstream metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "helius",
			Name:      "rpc_call_latency_seconds",
			Help:      "Upstream call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "helius",
			Name:      "upstream_errors_total",
			Help:      "Total number of upstream errors by kind",
		}, []string{"kind"}),
		CircuitBreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "helius",
			Name:      "circuit_breaker_open",
			Help:      "1 when the upstream circuit breaker is open, 0 otherwise",
		}),

		// Analysis metrics
		AnalysisRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by status",
		}, []string{"status"}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		BuyersClassified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "buyers_classified_total",
			Help:      "Total number of buyer wallets classified into ranges",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful analysis run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSignaturesFetched adds to the fetched-signatures counter.
func RecordSignaturesFetched(n int) {
	DefaultMetrics.SignaturesFetched.Add(float64(n))
}

// RecordResolution increments the resolutions counter for an outcome label.
func RecordResolution(outcome string) {
	DefaultMetrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordRPCLatency records upstream call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordUpstreamError records an upstream error by kind.
func RecordUpstreamError(kind string) {
	DefaultMetrics.UpstreamErrors.WithLabelValues(kind).Inc()
}

// RecordAnalysisRun records a completed analysis run.
func RecordAnalysisRun(status string, durationSeconds float64) {
	DefaultMetrics.AnalysisRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.AnalysisDuration.Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
