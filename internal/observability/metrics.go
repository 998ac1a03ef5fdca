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
	// Ingest metrics
	BarsIngested      prometheus.Counter
	OptionsIngested   prometheus.Counter
	RowsDropped       *prometheus.CounterVec
	OHLCViolations    prometheus.Counter

	// Build metrics
	BuildRunsTotal     *prometheus.CounterVec
	BuildDuration      *prometheus.HistogramVec
	MicroRowsComputed  prometheus.Counter
	OptionsRowsComputed prometheus.Counter
	LabelRowsComputed  prometheus.Counter
	JoinedRowsEmitted  prometheus.Counter
	SymbolsProcessed   prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulBuild prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "orderflow_lab"
	}

	return &Metrics{
		BarsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "bars_total",
			Help:      "Total number of bars accepted at ingest",
		}),
		OptionsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "options_aggregates_total",
			Help:      "Total number of options aggregates accepted at ingest",
		}),
		RowsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_dropped_total",
			Help:      "Total number of input rows dropped by reason",
		}, []string{"table", "reason"}),
		OHLCViolations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "ohlc_violations_total",
			Help:      "Total number of bars kept despite OHLC inconsistency",
		}),

		BuildRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "runs_total",
			Help:      "Total number of dataset builds by phase and status",
		}, []string{"phase", "status"}),
		BuildDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "duration_seconds",
			Help:      "Dataset build duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
		MicroRowsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "micro_rows_total",
			Help:      "Total number of microstructure feature rows computed",
		}),
		OptionsRowsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "options_rows_total",
			Help:      "Total number of options flow feature rows computed",
		}),
		LabelRowsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "label_rows_total",
			Help:      "Total number of label rows computed",
		}),
		JoinedRowsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "joined_rows_total",
			Help:      "Total number of joined dataset rows emitted",
		}),
		SymbolsProcessed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "symbols",
			Help:      "Number of symbols in the most recent build",
		}),

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

		LastSuccessfulBuild: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_build_timestamp",
			Help:      "Unix timestamp of last successful dataset build",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBarsIngested adds to the bars ingested counter.
func RecordBarsIngested(n int) {
	DefaultMetrics.BarsIngested.Add(float64(n))
}

// RecordOptionsIngested adds to the options aggregates ingested counter.
func RecordOptionsIngested(n int) {
	DefaultMetrics.OptionsIngested.Add(float64(n))
}

// RecordRowsDropped records dropped input rows for a table by reason.
func RecordRowsDropped(table, reason string, n int) {
	if n > 0 {
		DefaultMetrics.RowsDropped.WithLabelValues(table, reason).Add(float64(n))
	}
}

// RecordOHLCViolations adds to the OHLC violation counter.
func RecordOHLCViolations(n int) {
	if n > 0 {
		DefaultMetrics.OHLCViolations.Add(float64(n))
	}
}

// RecordBuildPhase records one dataset build phase.
func RecordBuildPhase(phase, status string, durationSeconds float64) {
	DefaultMetrics.BuildRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.BuildDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
