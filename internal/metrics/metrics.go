// Package metrics defines the Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Model registry metrics
var (
	// ModelLoadsTotal tracks model load attempts by model and outcome.
	ModelLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_loads_total",
			Help: "Model load attempts by model and status",
		},
		[]string{"model", "status"},
	)

	// ModelLoadDuration tracks how long model loads take.
	ModelLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_load_duration_seconds",
			Help:    "Model load duration in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	// LoadedModels tracks the number of models currently held in memory.
	LoadedModels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loaded_models",
			Help: "Number of models currently loaded",
		},
	)
)

// Analysis metrics
var (
	// AnalysesTotal tracks completed analyses by model and canonical label.
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyses_total",
			Help: "Completed analyses by model and canonical label",
		},
		[]string{"model", "label"},
	)

	// AnalysisDuration tracks end-to-end analysis latency.
	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"model"},
	)

	// InferenceRetriesTotal tracks transient inference failures that were retried.
	InferenceRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_retries_total",
			Help: "Inference calls retried after a transient failure",
		},
		[]string{"model"},
	)

	// TruncatedInputsTotal tracks inputs truncated to the model's maximum length.
	TruncatedInputsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "truncated_inputs_total",
			Help: "Inputs truncated to the model maximum length",
		},
		[]string{"model"},
	)
)

// Result cache metrics
var (
	// CacheHitsTotal tracks result cache hits.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "result_cache_hits_total",
			Help: "Result cache hits",
		},
	)

	// CacheMissesTotal tracks result cache misses.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "result_cache_misses_total",
			Help: "Result cache misses",
		},
	)

	// CacheErrorsTotal tracks cache backend failures absorbed as misses.
	CacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_errors_total",
			Help: "Result cache backend failures degraded to misses, by operation",
		},
		[]string{"operation"},
	)

	// CacheEvictions tracks expired entries evicted from the in-memory backend.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "result_cache_evictions_total",
			Help: "Expired entries evicted from the in-memory result cache",
		},
	)

	// CacheSize tracks the current entry count of the in-memory backend.
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "result_cache_size",
			Help: "Current in-memory result cache entry count",
		},
	)
)

// History store metrics
var (
	// HistoryWritesTotal tracks history writes by outcome.
	HistoryWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_writes_total",
			Help: "History store writes by status",
		},
		[]string{"status"},
	)
)

// Database metrics
var (
	// DBQueryDuration tracks database query latency by query kind.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database query errors by query kind.
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Database query errors by query kind",
		},
		[]string{"query"},
	)
)

// Inference runtime metrics
var (
	// CircuitBreakerState tracks the inference circuit breaker state
	// (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inference_circuit_breaker_state",
			Help: "Inference circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// CircuitBreakerStateChanges tracks breaker state transitions.
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_circuit_breaker_state_changes_total",
			Help: "Inference circuit breaker state transitions by new state",
		},
		[]string{"state"},
	)
)
