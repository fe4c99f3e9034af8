package jotai

import (
	"iter"

	"github.com/cespare/xxhash"
	lru "github.com/hashicorp/golang-lru/v2"
)

// queryEngine caches the results of index-path queries.
type queryEngine struct {
	cache *lru.Cache[uint64, cachedQuery]
}

type cachedQuery struct {
	key     string
	version uint64
	ids     []uint32
}

func (q *queryEngine) init(size int) {
	if size <= 0 {
		return
	}
	cache, err := lru.New[uint64, cachedQuery](size)
	if err != nil {
		panic(err)
	}
	q.cache = cache
}

// resolveCached evaluates pred on the index path, reusing a cached result
// when no entity was created and no value changed since it was computed.
func resolveCached[C any](w *World, pred Predicate[C], category string, n uint32) []uint32 {
	q := &w.queries
	key, ok := pred.key()
	if !ok || q.cache == nil {
		return pred.resolve(w, n)
	}
	key = category + ":" + key
	h := xxhash.Sum64String(key)
	if hit, found := q.cache.Get(h); found && hit.key == key && hit.version == w.mutationVersion {
		QueryCacheHits.WithLabelValues(category).Inc()
		return hit.ids
	}
	ids := pred.resolve(w, n)
	q.cache.Add(h, cachedQuery{key: key, version: w.mutationVersion, ids: ids})
	return ids
}

// Query returns the entities of category C matching pred, in ascending
// identifier order.
//
// The result is lazy: pred is evaluated when the sequence is iterated, and
// again on every iteration. When every property pred reads is indexed the
// result is computed from the indexes; otherwise the stores are scanned. Both
// paths yield the same identifiers in the same order.
//
// Example:
//
//	for id := range jotai.Query(w, jotai.And(jotai.Eq(isAdult, true), jotai.Eq(vaccinated, false))) {
//		fmt.Println(id)
//	}
func Query[C any](w *World, pred Predicate[C]) iter.Seq[EntityID[C]] {
	return func(yield func(EntityID[C]) bool) {
		w.mustBeFinalized()
		if !pred.indexed(w) {
			scan[C](w, pred, yield)
			return
		}
		name := CategoryName[C]()
		QueryCount.WithLabelValues(name, "index").Inc()
		n := uint32(Entities[C](w).Count())
		for _, i := range resolveCached[C](w, pred, name, n) {
			if !yield(EntityID[C]{index: i}) {
				return
			}
		}
	}
}

// Scan is like Query but always evaluates pred against the stores, one
// entity at a time.
func Scan[C any](w *World, pred Predicate[C]) iter.Seq[EntityID[C]] {
	return func(yield func(EntityID[C]) bool) {
		w.mustBeFinalized()
		scan[C](w, pred, yield)
	}
}

func scan[C any](w *World, pred Predicate[C], yield func(EntityID[C]) bool) {
	QueryCount.WithLabelValues(CategoryName[C](), "scan").Inc()
	for id := range Entities[C](w).All() {
		if pred.match(id) && !yield(id) {
			return
		}
	}
}

// Collect gathers a query result into a slice.
func Collect[C any](seq iter.Seq[EntityID[C]]) []EntityID[C] {
	var out []EntityID[C]
	for id := range seq {
		out = append(out, id)
	}
	return out
}

// Count returns the number of identifiers a query yields.
func Count[C any](seq iter.Seq[EntityID[C]]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}
