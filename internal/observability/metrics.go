package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NOTE: Currently, all metrics are defined globally here.
// This causes a harmless side-effect where a service (e.g., data-plane)
// initializes metrics from other services (e.g., control-plane) with zero values.

// namespace defines the global prefix for all metrics (e.g., mimir_...).
const namespace = "mimir"

// lowLatencyBuckets defines custom buckets for the cached read path.
// Standard buckets are too coarse (starting at 5ms), so we add 1ms and 2ms resolution.
// Range: 1ms to 500ms.
var lowLatencyBuckets = []float64{.001, .002, .005, .010, .015, .020, .025, .030, .050, .100, .500}

// compileBuckets covers CPU-bound policy compilation, which is bounded by
// configuration size and typically sub-millisecond.
var compileBuckets = []float64{.0001, .00025, .0005, .001, .0025, .005, .010, .025, .050, .100}

var (
	// -------------------------------------------------------------------------
	// POLICY COMPILER
	// -------------------------------------------------------------------------

	// CompilationsTotal counts policy compilations per realm and context.
	// Under a stable configuration generation this stays flat: the metadata
	// cache guarantees at-most-once compilation per context.
	// Metric: mimir_compiler_compilations_total
	CompilationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "compiler",
		Name:      "compilations_total",
		Help:      "Number of profile policy compilations executed",
	}, []string{"realm", "context"})

	// CompilationErrorsTotal counts failed compilations (invalid
	// configuration or context-integrity faults).
	// Metric: mimir_compiler_compilation_errors_total
	CompilationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "compiler",
		Name:      "compilation_errors_total",
		Help:      "Number of profile policy compilations that failed",
	}, []string{"realm", "context"})

	// CompileDuration measures compilation latency.
	// Metric: mimir_compiler_compile_duration_seconds
	CompileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "compiler",
		Name:      "compile_duration_seconds",
		Help:      "Time taken to compile profile policy for one context",
		Buckets:   compileBuckets,
	}, []string{"context"})

	// -------------------------------------------------------------------------
	// METADATA CACHE
	// -------------------------------------------------------------------------

	// MetadataCacheHits counts compiled-metadata cache hits per realm.
	// Metric: mimir_metadata_cache_hits_total
	MetadataCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "metadata_cache",
		Name:      "hits_total",
		Help:      "Number of compiled metadata requests served from cache",
	}, []string{"realm"})

	// MetadataCacheMisses counts compiled-metadata cache misses per realm.
	// Metric: mimir_metadata_cache_misses_total
	MetadataCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "metadata_cache",
		Name:      "misses_total",
		Help:      "Number of compiled metadata requests that triggered compilation",
	}, []string{"realm"})

	// InvalidationsTotal counts cache-generation swaps by trigger source:
	// "api" (configuration replaced through the control plane), "pubsub"
	// (cross-replica invalidation event), "watcher" (store reconciliation).
	// Metric: mimir_metadata_cache_invalidations_total
	InvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "metadata_cache",
		Name:      "invalidations_total",
		Help:      "Number of configuration generation swaps",
	}, []string{"source"})

	// -------------------------------------------------------------------------
	// CONTROL PLANE (HTTP)
	// -------------------------------------------------------------------------

	// ControlPlaneReqDuration measures the latency of HTTP requests.
	// Metric: mimir_control_plane_http_handling_seconds
	ControlPlaneReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests in the Control Plane",
		Buckets:   prometheus.DefBuckets, // Standard buckets are fine for Admin APIs (human speed)
	}, []string{"method", "path"})

	// ControlPlaneReqTotal counts the total number of HTTP requests.
	// Metric: mimir_control_plane_http_requests_total
	ControlPlaneReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests handled by the Control Plane",
	}, []string{"method", "path", "status"})

	// -------------------------------------------------------------------------
	// DATA PLANE (HTTP)
	// -------------------------------------------------------------------------

	// DataPlaneReqDuration measures the latency of data-plane requests.
	// Metric: mimir_data_plane_http_handling_seconds
	DataPlaneReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests in the Data Plane",
		Buckets:   lowLatencyBuckets,
	}, []string{"method", "path"})

	// DataPlaneReqTotal counts the total number of data-plane requests.
	// Metric: mimir_data_plane_http_requests_total
	DataPlaneReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "data_plane",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests handled by the Data Plane",
	}, []string{"method", "path", "status"})

	// -------------------------------------------------------------------------
	// DATABASE POOL
	// -------------------------------------------------------------------------

	// DatabasePoolConnections tracks pgx pool connection counts by state
	// (total, idle, in_use, max). Sampled by database.RunPoolMonitor.
	// Metric: mimir_database_pool_connections
	DatabasePoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_connections",
		Help:      "Current database pool connections by state",
	}, []string{"state"})

	// DatabasePoolAcquireCount mirrors pgx's cumulative acquire counter.
	// Metric: mimir_database_pool_acquire_count_total
	DatabasePoolAcquireCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_count_total",
		Help:      "Cumulative number of successful pool acquires",
	})

	// DatabasePoolAcquireDuration mirrors pgx's cumulative acquire latency.
	// Metric: mimir_database_pool_acquire_duration_seconds_total
	DatabasePoolAcquireDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_duration_seconds_total",
		Help:      "Cumulative time spent acquiring pool connections",
	})

	// DatabasePoolWaitCount mirrors pgx's cumulative empty-pool waits.
	// Metric: mimir_database_pool_wait_count_total
	DatabasePoolWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_wait_count_total",
		Help:      "Cumulative number of acquires that blocked on an exhausted pool",
	})

	// -------------------------------------------------------------------------
	// WATCHER
	// -------------------------------------------------------------------------

	// WatcherCyclesTotal counts reconciliation cycles by result ("ok"/"error").
	// Metric: mimir_watcher_cycles_total
	WatcherCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "watcher",
		Name:      "cycles_total",
		Help:      "Number of configuration reconciliation cycles",
	}, []string{"result"})
)
