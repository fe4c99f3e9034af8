package jotai

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// EntitiesCreated counts issued identifiers per category.
var EntitiesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jotai",
	Subsystem: "entity_store",
	Name:      "entities_created",
}, []string{"category"})

// PropertyChanges counts published value changes per property.
var PropertyChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jotai",
	Subsystem: "property_store",
	Name:      "changes",
}, []string{"property"})

// CascadeRecomputations counts derived-property computations.
var CascadeRecomputations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jotai",
	Subsystem: "dependency_graph",
	Name:      "recomputations",
}, []string{"property"})

// IndexBucketMoves counts entities moved between index buckets.
var IndexBucketMoves = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jotai",
	Subsystem: "index_manager",
	Name:      "bucket_moves",
}, []string{"property"})

// ReindexDuration times the full scan that populates a new index.
var ReindexDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "jotai",
	Subsystem: "index_manager",
	Name:      "reindex_duration",
	Buckets:   []float64{0, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
}, []string{"property"})

// QueryCount counts queries by category and path (index or scan).
var QueryCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jotai",
	Subsystem: "query_engine",
	Name:      "queries",
}, []string{"category", "path"})

// QueryCacheHits counts index-path queries answered from the cache.
var QueryCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "jotai",
	Subsystem: "query_engine",
	Name:      "cache_hits",
}, []string{"category"})

// Collectors returns every collector the store reports to.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		EntitiesCreated,
		PropertyChanges,
		CascadeRecomputations,
		IndexBucketMoves,
		ReindexDuration,
		QueryCount,
		QueryCacheHits,
	}
}

func registerCollectors(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
