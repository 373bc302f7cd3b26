package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (mimir_...).
const namespace = "mimir"

var (
	// -------------------------------------------------------------------------
	// CONFIG API (HTTP)
	// -------------------------------------------------------------------------

	// APIReqDuration measures the latency of HTTP requests.
	// Metric: mimir_config_api_http_handling_seconds
	APIReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "config_api",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests in the config API",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// APIReqTotal counts the total number of HTTP requests.
	// Metric: mimir_config_api_http_requests_total
	APIReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "config_api",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests in the config API",
	}, []string{"method", "path", "code"})

	// -------------------------------------------------------------------------
	// REGISTRY (compiled configs)
	// -------------------------------------------------------------------------

	// RegistryL1Hits counts compiled-config lookups served from memory.
	RegistryL1Hits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "l1_hits_total",
		Help:      "Compiled config lookups served from the in-memory cache",
	})

	// RegistryL1Misses counts lookups that fell through to the raw store.
	RegistryL1Misses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "l1_misses_total",
		Help:      "Compiled config lookups that missed the in-memory cache",
	})

	// RegistryConfigsHeld tracks how many compiled configs sit in memory.
	RegistryConfigsHeld = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "configs_held",
		Help:      "Compiled configs currently held in the in-memory cache",
	})

	// RegistryCompileDuration measures a full parse-and-index pass.
	RegistryCompileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "compile_duration_seconds",
		Help:      "Time taken to decode a datafile and build its lookup index",
		Buckets:   []float64{.0005, .001, .002, .005, .010, .025, .050, .100, .250},
	})

	// RegistryCompileFailures counts payloads rejected at decode or the
	// version gate, labeled by failure class.
	RegistryCompileFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "compile_failures_total",
		Help:      "Datafile payloads rejected before indexing",
	}, []string{"reason"}) // decode, version

	// LookupMisses counts accessor misses on compiled configs by entity kind.
	// Fed by the MetricsErrorHandler wired into every compiled config.
	LookupMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "lookup_misses_total",
		Help:      "Accessor misses on compiled configs by entity kind",
	}, []string{"entity_kind"})

	// -------------------------------------------------------------------------
	// POLLER (datafile fetch worker)
	// -------------------------------------------------------------------------

	// PollerFetchTotal counts datafile fetch attempts by outcome.
	// Metric: mimir_poller_fetches_total
	PollerFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "fetches_total",
		Help:      "Datafile fetch attempts by outcome",
	}, []string{"outcome"}) // updated, not_modified, error

	// PollerCycleDuration measures a full poll pass over all tracked keys.
	PollerCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "poller",
		Name:      "cycle_duration_seconds",
		Help:      "Time taken to poll every tracked SDK key once",
		Buckets:   prometheus.DefBuckets,
	})
)
