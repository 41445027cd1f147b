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
	// Workflow metrics
	StageRunsTotal  *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	StageFailures   *prometheus.CounterVec
	AirdropsTotal   *prometheus.CounterVec
	TransfersTotal  *prometheus.CounterVec
	CompanionSupply prometheus.Gauge
	UploadsTotal    *prometheus.CounterVec
	UploadedBytes   prometheus.Counter

	// Solana metrics
	RPCCallLatency      *prometheus.HistogramVec
	RPCCallErrors       *prometheus.CounterVec
	TransactionsSent    *prometheus.CounterVec
	ConfirmationLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "transfer_hook_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		StageRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "stage_runs_total",
			Help:      "Total number of stage executions by status",
		}, []string{"stage", "status"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "stage_failures_total",
			Help:      "Total number of stage failures by failure kind",
		}, []string{"stage", "kind"}),
		AirdropsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "airdrops_total",
			Help:      "Total number of airdrop requests by outcome",
		}, []string{"outcome"}),
		TransfersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "legs_total",
			Help:      "Total number of transfer legs by outcome",
		}, []string{"outcome"}),
		CompanionSupply: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "companion_supply",
			Help:      "Companion mint supply observed after the last transfer leg",
		}),
		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "uploads_total",
			Help:      "Total number of uploads by backend and outcome",
		}, []string{"backend", "outcome"}),
		UploadedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "uploaded_bytes_total",
			Help:      "Total bytes uploaded to off-chain storage",
		}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),
		TransactionsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "transactions_sent_total",
			Help:      "Total number of submitted transactions by outcome",
		}, []string{"outcome"}),
		ConfirmationLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "confirmation_latency_seconds",
			Help:      "Time from submission to requested commitment in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last completed issuance run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordStage records one stage execution.
func RecordStage(stage, status string, seconds float64) {
	DefaultMetrics.StageRunsTotal.WithLabelValues(stage, status).Inc()
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordStageFailure records a failed stage by failure kind.
func RecordStageFailure(stage, kind string) {
	DefaultMetrics.StageFailures.WithLabelValues(stage, kind).Inc()
}

// RecordAirdrop records an airdrop request outcome.
func RecordAirdrop(outcome string) {
	DefaultMetrics.AirdropsTotal.WithLabelValues(outcome).Inc()
}

// RecordTransferLeg records a transfer leg and the companion supply after it.
func RecordTransferLeg(outcome string, companionSupply uint64) {
	DefaultMetrics.TransfersTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		DefaultMetrics.CompanionSupply.Set(float64(companionSupply))
	}
}

// RecordUpload records an upload to off-chain storage.
func RecordUpload(backend string, size int, err error) {
	if err != nil {
		DefaultMetrics.UploadsTotal.WithLabelValues(backend, "error").Inc()
		return
	}
	DefaultMetrics.UploadsTotal.WithLabelValues(backend, "ok").Inc()
	DefaultMetrics.UploadedBytes.Add(float64(size))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordTransaction records a submitted transaction and, when it confirmed,
// the confirmation latency.
func RecordTransaction(err error, confirmSeconds float64) {
	if err != nil {
		DefaultMetrics.TransactionsSent.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.TransactionsSent.WithLabelValues("ok").Inc()
	DefaultMetrics.ConfirmationLatency.Observe(confirmSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRunCompleted marks a completed issuance run.
func RecordRunCompleted(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixSeconds))
}
