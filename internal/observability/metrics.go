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
	BarsIngested    *prometheus.CounterVec
	BarsStored      prometheus.Counter
	IngestionErrors *prometheus.CounterVec

	// Simulation metrics
	SimulationRunsTotal *prometheus.CounterVec
	SimulationDuration  prometheus.Histogram
	TradesSimulated     prometheus.Counter
	TradesByExitReason  *prometheus.CounterVec

	// Harness metrics
	SweepRunsTotal    *prometheus.CounterVec
	ResampleRunsTotal *prometheus.CounterVec
	ReportsGenerated  prometheus.Counter

	// Monitor metrics
	MonitorPollsTotal  *prometheus.CounterVec
	MonitorBackoffs    prometheus.Counter
	LastSuccessfulPoll prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_sim_lab"
	}

	return &Metrics{
		BarsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_ingested_total",
			Help:      "Total number of bars received by source",
		}, []string{"source"}),
		BarsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_stored_total",
			Help:      "Total number of bars stored to database",
		}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by type",
		}, []string{"error_type"}),

		SimulationRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by status",
		}, []string{"status"}),
		SimulationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Duration of simulation runs",
			Buckets:   prometheus.DefBuckets,
		}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_total",
			Help:      "Total number of simulated trades",
		}),
		TradesByExitReason: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_by_exit_reason_total",
			Help:      "Total number of simulated trades by exit reason",
		}, []string{"exit_reason"}),

		SweepRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harness",
			Name:      "sweep_runs_total",
			Help:      "Total number of grid search runs by status",
		}, []string{"status"}),
		ResampleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harness",
			Name:      "resample_runs_total",
			Help:      "Total number of resampling runs by status",
		}, []string{"status"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harness",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		MonitorPollsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "polls_total",
			Help:      "Total number of monitor polls by status",
		}, []string{"status"}),
		MonitorBackoffs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "backoffs_total",
			Help:      "Total number of monitor backoff periods entered",
		}),
		LastSuccessfulPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "last_successful_poll_timestamp",
			Help:      "Unix timestamp of the last successful monitor poll",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBarIngested increments the bars ingested counter for a source.
func RecordBarIngested(source string) {
	DefaultMetrics.BarsIngested.WithLabelValues(source).Inc()
}

// RecordBarsStored adds to the bars stored counter.
func RecordBarsStored(n int) {
	DefaultMetrics.BarsStored.Add(float64(n))
}

// RecordIngestionError records an ingestion error.
func RecordIngestionError(errorType string) {
	DefaultMetrics.IngestionErrors.WithLabelValues(errorType).Inc()
}

// RecordSimulationRun records a simulation run and its trade count.
func RecordSimulationRun(status string, durationSeconds float64, trades int) {
	DefaultMetrics.SimulationRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.SimulationDuration.Observe(durationSeconds)
	DefaultMetrics.TradesSimulated.Add(float64(trades))
}

// RecordTradeExit records a simulated trade by exit reason.
func RecordTradeExit(exitReason string) {
	DefaultMetrics.TradesByExitReason.WithLabelValues(exitReason).Inc()
}

// RecordSweepRun records a grid-search sweep outcome.
func RecordSweepRun(status string) {
	DefaultMetrics.SweepRunsTotal.WithLabelValues(status).Inc()
}

// RecordResampleRun records a resampling robustness run outcome.
func RecordResampleRun(status string) {
	DefaultMetrics.ResampleRunsTotal.WithLabelValues(status).Inc()
}

// RecordReportGenerated increments the generated reports counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordMonitorPoll records a monitor poll outcome.
func RecordMonitorPoll(status string) {
	DefaultMetrics.MonitorPollsTotal.WithLabelValues(status).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
