package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the exchange core.
type Metrics struct {
	// --- Event processing ---
	EventsProcessed *prometheus.CounterVec
	EventsSkipped   *prometheus.CounterVec
	EventDuration   *prometheus.HistogramVec

	// --- Entity caches ---
	CacheEntries *prometheus.GaugeVec
	CacheDirty   *prometheus.GaugeVec

	// --- Flush scheduler ---
	FlushDuration   *prometheus.HistogramVec
	FlushedEntities *prometheus.CounterVec
	FlushErrors     *prometheus.CounterVec

	// --- Idempotency ---
	DedupDuplicates *prometheus.CounterVec
	DedupLRUSize    prometheus.Gauge
	DedupStoreDur   prometheus.Histogram

	// --- Outbound results ---
	ResultsPublished *prometheus.CounterVec
	PublishErrors    prometheus.Counter

	// --- Startup ---
	HydratedEntities *prometheus.CounterVec

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_events_processed_total",
			Help: "Events dispatched to a processor, by operation and outcome",
		}, []string{"operation", "outcome"}),

		EventsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_events_skipped_total",
			Help: "Events discarded before dispatch (duplicate, unparseable)",
		}, []string{"reason"}),

		EventDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exchange_event_duration_seconds",
			Help:    "Time to process a single event",
			Buckets: latencyBuckets,
		}, []string{"operation"}),

		CacheEntries: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "exchange_cache_entries",
			Help: "Entities held per cache",
		}, []string{"cache"}),

		CacheDirty: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "exchange_cache_dirty_entries",
			Help: "Dirty entries awaiting flush per cache",
		}, []string{"cache"}),

		FlushDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exchange_flush_duration_seconds",
			Help:    "Store write duration per cache flush",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"cache"}),

		FlushedEntities: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_flushed_entities_total",
			Help: "Entities written to the persistent store",
		}, []string{"cache"}),

		FlushErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_flush_errors_total",
			Help: "Failed flush attempts (before retry)",
		}, []string{"cache"}),

		DedupDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_dedup_duplicates_total",
			Help: "Duplicate events caught, by tier (lru/cache/store)",
		}, []string{"tier"}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "exchange_dedup_lru_size",
			Help: "Current idempotency LRU occupancy",
		}),

		DedupStoreDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "exchange_dedup_store_duration_seconds",
			Help:    "Persistent-store dedup lookup latency",
			Buckets: latencyBuckets,
		}),

		ResultsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_results_published_total",
			Help: "Process results published to the output sink",
		}, []string{"operation", "status"}),

		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "exchange_publish_errors_total",
			Help: "Outbound publish failures",
		}),

		HydratedEntities: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_hydrated_entities_total",
			Help: "Entities loaded from the store at startup",
		}, []string{"cache"}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_query_requests_total",
			Help: "Read-path requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exchange_query_duration_seconds",
			Help:    "Read-path latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"endpoint"}),
	}
}
