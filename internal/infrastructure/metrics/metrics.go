package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Catalog sync metrics
var (
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "catalog_api",
			Name:      "sync_runs_total",
			Help:      "Total sync runs by outcome",
		},
		[]string{"status", "triggered_by"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelgate",
			Subsystem: "catalog_api",
			Name:      "sync_duration_seconds",
			Help:      "Sync run duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"scope"},
	)

	ProviderLastSyncTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "modelgate",
			Subsystem: "catalog_api",
			Name:      "provider_last_sync_timestamp_seconds",
			Help:      "Unix timestamp of the last successful sync per provider",
		},
		[]string{"provider"},
	)

	ProviderModelsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "catalog_api",
			Name:      "provider_models_synced_total",
			Help:      "Total models written per provider",
		},
		[]string{"provider"},
	)

	ProviderSyncErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "catalog_api",
			Name:      "provider_sync_errors_total",
			Help:      "Total per-provider sync failures by error type",
		},
		[]string{"provider", "error_type"},
	)

	PricingAnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "catalog_api",
			Name:      "pricing_anomalies_total",
			Help:      "Pricing records flagged for review or rejected",
		},
		[]string{"provider", "reason"},
	)

	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "catalog_api",
			Name:      "cache_operations_total",
			Help:      "Cache operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	CacheRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "catalog_api",
			Name:      "cache_rebuilds_total",
			Help:      "Full rebuilds of cached catalog views",
		},
		[]string{"key"},
	)
)

// HTTP metrics
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelgate",
			Subsystem: "catalog_api",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route, method and status",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelgate",
			Subsystem: "catalog_api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"path", "method"},
	)
)

// RecordHTTPRequest records one handled HTTP request.
func RecordHTTPRequest(path, method, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(path, method, status).Inc()
	RequestDuration.WithLabelValues(path, method).Observe(durationSec)
}

// RecordSyncRun records a completed sync run with its outcome.
func RecordSyncRun(status, triggeredBy, scope string, durationSec float64) {
	SyncRunsTotal.WithLabelValues(status, triggeredBy).Inc()
	SyncDuration.WithLabelValues(scope).Observe(durationSec)
}

// RecordProviderSynced updates per-provider gauges after a successful provider sync.
func RecordProviderSynced(provider string, modelsWritten int, completedAtUnix int64) {
	ProviderLastSyncTimestamp.WithLabelValues(provider).Set(float64(completedAtUnix))
	ProviderModelsSynced.WithLabelValues(provider).Add(float64(modelsWritten))
}

// RecordProviderSyncError records a per-provider sync failure.
func RecordProviderSyncError(provider, errorType string) {
	ProviderSyncErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordPricingAnomaly records a rejected or review-flagged pricing record.
func RecordPricingAnomaly(provider, reason string) {
	PricingAnomaliesTotal.WithLabelValues(provider, reason).Inc()
}

// RecordCacheOperation records a cache get/set/delete with its outcome.
func RecordCacheOperation(operation, outcome string) {
	CacheOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordCacheRebuild records a store-backed rebuild of a cached view.
func RecordCacheRebuild(key string) {
	CacheRebuildsTotal.WithLabelValues(key).Inc()
}
