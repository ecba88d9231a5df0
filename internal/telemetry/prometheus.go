package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors exported by the retrieval engine.
// A single Metrics value is meant to be constructed once per process and
// shared across the indexing pipeline, the search engine, and the cache
// layers via dependency injection.
type Metrics struct {
	IndexedDocuments   prometheus.Counter
	ChunksStored       prometheus.Counter
	SearchesByStrategy *prometheus.CounterVec
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	ErrorsByCategory   *prometheus.CounterVec
	IndexingLatency    prometheus.Histogram
	SearchLatency      *prometheus.HistogramVec
}

// NewMetrics constructs and registers the engine's collectors against reg.
// Pass prometheus.NewRegistry() for isolated tests, or
// prometheus.DefaultRegisterer for production use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IndexedDocuments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "knowledgeengine",
			Name:      "indexed_documents_total",
			Help:      "Total number of documents successfully indexed.",
		}),
		ChunksStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "knowledgeengine",
			Name:      "chunks_stored_total",
			Help:      "Total number of chunks upserted into the store.",
		}),
		SearchesByStrategy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "knowledgeengine",
			Name:      "searches_total",
			Help:      "Total number of searches, labeled by result strategy (vector, graph, hybrid).",
		}, []string{"strategy"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "knowledgeengine",
			Name:      "cache_hits_total",
			Help:      "Total cache hits, labeled by cache name.",
		}, []string{"cache"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "knowledgeengine",
			Name:      "cache_misses_total",
			Help:      "Total cache misses, labeled by cache name.",
		}, []string{"cache"}),
		ErrorsByCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "knowledgeengine",
			Name:      "errors_total",
			Help:      "Total errors returned by the engine, labeled by error category.",
		}, []string{"category"}),
		IndexingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "knowledgeengine",
			Name:      "indexing_duration_seconds",
			Help:      "Time to index a single document end to end.",
			Buckets:   prometheus.DefBuckets,
		}),
		SearchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "knowledgeengine",
			Name:      "search_duration_seconds",
			Help:      "Search latency, labeled by arm (vector, keyword, overall).",
			Buckets:   prometheus.DefBuckets,
		}, []string{"arm"}),
	}

	reg.MustRegister(
		m.IndexedDocuments,
		m.ChunksStored,
		m.SearchesByStrategy,
		m.CacheHits,
		m.CacheMisses,
		m.ErrorsByCategory,
		m.IndexingLatency,
		m.SearchLatency,
	)

	return m
}

// RecordCacheResult increments the hit or miss counter for the named cache.
func (m *Metrics) RecordCacheResult(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
	} else {
		m.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// RecordError increments the error counter for the given category.
func (m *Metrics) RecordError(category string) {
	if m == nil {
		return
	}
	m.ErrorsByCategory.WithLabelValues(category).Inc()
}
