// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Pass metrics
	PassRunsTotal *prometheus.CounterVec
	PassDuration  *prometheus.HistogramVec
	UnitsTotal    *prometheus.CounterVec

	// Provider metrics
	ProviderCallLatency *prometheus.HistogramVec
	ProviderErrors      *prometheus.CounterVec
	KeyRotations        prometheus.Counter

	// Detection metrics
	SignalsEmitted     *prometheus.CounterVec
	MigrationsDetected prometheus.Counter
	ChangeEvents       *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPass *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "smart_wallet_engine"
	}

	return &Metrics{
		PassRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "runs_total",
			Help:      "Total number of pass runs by pass name and status",
		}, []string{"pass", "status"}),
		PassDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "duration_seconds",
			Help:      "Pass duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"pass"}),
		UnitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pass",
			Name:      "units_total",
			Help:      "Wallets processed, skipped and failed per pass",
		}, []string{"pass", "outcome"}),

		ProviderCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "External provider call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Total number of provider call errors",
		}, []string{"provider", "operation"}),
		KeyRotations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "key_rotations_total",
			Help:      "Total number of credential rotations on rate limits",
		}),

		SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "signals_emitted_total",
			Help:      "Total number of consensus signals emitted by type",
		}, []string{"signal_type"}),
		MigrationsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "migrations_detected_total",
			Help:      "Total number of wallet migrations recorded",
		}),
		ChangeEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "change_events_total",
			Help:      "Total number of position change events by type",
		}, []string{"change_type"}),

		LastSuccessfulPass: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pass_timestamp",
			Help:      "Unix timestamp of the last successful run per pass",
		}, []string{"pass"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPassRun records one pass run with its outcome and duration.
func RecordPassRun(pass, status string, durationSeconds float64) {
	DefaultMetrics.PassRunsTotal.WithLabelValues(pass, status).Inc()
	DefaultMetrics.PassDuration.WithLabelValues(pass).Observe(durationSeconds)
}

// RecordUnit records one processed/skipped/failed wallet for a pass.
func RecordUnit(pass, outcome string) {
	DefaultMetrics.UnitsTotal.WithLabelValues(pass, outcome).Inc()
}

// RecordProviderCall records one external provider call and its duration.
func RecordProviderCall(provider, operation string, durationSeconds float64) {
	DefaultMetrics.ProviderCallLatency.WithLabelValues(provider, operation).Observe(durationSeconds)
}

// RecordProviderError records one failed provider call attempt.
func RecordProviderError(provider, operation string) {
	DefaultMetrics.ProviderErrors.WithLabelValues(provider, operation).Inc()
}

// RecordKeyRotation records one credential rotation on a rate limit.
func RecordKeyRotation() {
	DefaultMetrics.KeyRotations.Inc()
}

// RecordSignal records an emitted consensus signal.
func RecordSignal(signalType string) {
	DefaultMetrics.SignalsEmitted.WithLabelValues(signalType).Inc()
}

// RecordMigration records a detected wallet migration.
func RecordMigration() {
	DefaultMetrics.MigrationsDetected.Inc()
}

// RecordChangeEvent records an emitted position change event.
func RecordChangeEvent(changeType string) {
	DefaultMetrics.ChangeEvents.WithLabelValues(changeType).Inc()
}

// MarkPassSuccess updates the last-success gauge for a pass.
func MarkPassSuccess(pass string, unixSeconds float64) {
	DefaultMetrics.LastSuccessfulPass.WithLabelValues(pass).Set(unixSeconds)
}
