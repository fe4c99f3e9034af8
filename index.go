package jotai

import (
	"slices"
	"time"

	"github.com/pkg/errors"
)

// indexer is what the IndexManager keeps for every index, whatever its types.
type indexer interface {
	property() PropertyRef
	Verify() error
}

// IndexManager tracks the value indexes of a World, at most one per property.
type IndexManager struct {
	world      *World
	byProperty map[PropertyID]indexer
}

// Indexed reports whether p has an index.
func (m *IndexManager) Indexed(p PropertyRef) bool {
	_, ok := m.byProperty[p.meta().id]
	return ok
}

// Len returns the number of indexes.
func (m *IndexManager) Len() int {
	return len(m.byProperty)
}

// Verify checks every index against a fresh scan of its property store.
func (m *IndexManager) Verify() error {
	ids := make([]PropertyID, 0, len(m.byProperty))
	for id := range m.byProperty {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if err := m.byProperty[id].Verify(); err != nil {
			return err
		}
	}
	return nil
}

// Indexes returns the world's index manager.
func (w *World) Indexes() *IndexManager { return &w.indexes }

// Index maps each value of one property, absent included, to the set of
// entities currently holding it. It follows the property through the event
// bus, so it is exact after every Set returns.
type Index[C any, V comparable] struct {
	prop    *Property[C, V]
	world   *World
	buckets map[Value[V]]map[uint32]struct{}
	// keys[i] is the bucket entity i is filed under.
	keys     *ValueVec[Value[V]]
	observed uint32
}

// CreateIndex indexes p. If p already has an index, that index is returned.
// Entities that already exist are indexed immediately by a full scan.
func CreateIndex[C any, V comparable](w *World, p *Property[C, V]) *Index[C, V] {
	if p.world != w {
		fault(ErrUnknownCategory, "%s.%s belongs to another world", p.cat.name, p.name)
	}
	if existing, ok := w.indexes.byProperty[p.id]; ok {
		return existing.(*Index[C, V])
	}
	ix := &Index[C, V]{
		prop:    p,
		world:   w,
		buckets: make(map[Value[V]]map[uint32]struct{}),
		keys:    NewValueVec(None[V]()),
	}
	if w.indexes.byProperty == nil {
		w.indexes.byProperty = make(map[PropertyID]indexer)
	}
	w.indexes.byProperty[p.id] = ix

	start := time.Now()
	n := Entities[C](w).Count()
	ix.observe(uint32(n))
	ReindexDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	w.logger.InfoCtx(w.ctx, "index created",
		"property", w.propertyLabel(p.id),
		"entities", n,
		"buckets", len(ix.buckets),
	)

	Subscribe(&w.bus, ix.onCreated)
	OnChange(&w.bus, p, ix.onChanged)
	return ix
}

func (ix *Index[C, V]) property() PropertyRef { return ix.prop }

// Property returns the indexed property.
func (ix *Index[C, V]) Property() *Property[C, V] { return ix.prop }

// observe files every entity below n the index has not seen yet under its
// current value.
func (ix *Index[C, V]) observe(n uint32) {
	if n <= ix.observed {
		return
	}
	ix.keys.GrowTo(int(n))
	for i := ix.observed; i < n; i++ {
		v := ix.prop.store.load(i)
		ix.insert(v, i)
		ix.keys.Set(int(i), v)
	}
	ix.observed = n
}

func (ix *Index[C, V]) onCreated(ev EntityCreated[C]) {
	// a handler that ran earlier may have created further entities already
	ix.observe(ev.ID.index + 1)
}

// onChanged moves the entity from the bucket it is filed under to the bucket
// of its current value. Events can arrive out of order when handlers write
// the property re-entrantly, so the store, not the event, is the source of
// the new key.
func (ix *Index[C, V]) onChanged(ev PropertyChanged[C, V]) {
	i := ev.ID.index
	if i >= ix.observed {
		return
	}
	old := ix.keys.Get(int(i))
	cur := ix.prop.store.load(i)
	if old == cur {
		return
	}
	b, ok := ix.buckets[old]
	if _, filed := b[i]; !ok || !filed {
		fault(ErrIndexInconsistent, "%s: %s not in bucket %s", ix.prop.name, ev.ID, old)
	}
	delete(b, i)
	if len(b) == 0 {
		delete(ix.buckets, old)
	}
	ix.insert(cur, i)
	ix.keys.Set(int(i), cur)
	IndexBucketMoves.WithLabelValues(ix.prop.name).Inc()
}

func (ix *Index[C, V]) insert(v Value[V], i uint32) {
	b, ok := ix.buckets[v]
	if !ok {
		b = make(map[uint32]struct{})
		ix.buckets[v] = b
	}
	b[i] = struct{}{}
}

// Lookup returns the entities whose value is v, in ascending order.
func (ix *Index[C, V]) Lookup(v V) []EntityID[C] {
	return ix.LookupValue(Some(v))
}

// LookupValue is like Lookup but also finds entities with the absent value.
func (ix *Index[C, V]) LookupValue(v Value[V]) []EntityID[C] {
	raw := ix.bucket(v)
	out := make([]EntityID[C], len(raw))
	for k, i := range raw {
		out[k] = EntityID[C]{index: i}
	}
	return out
}

// Len returns the number of entities whose value is v.
func (ix *Index[C, V]) Len(v Value[V]) int {
	return len(ix.buckets[v])
}

// Values returns every value at least one entity holds, in no particular
// order.
func (ix *Index[C, V]) Values() []Value[V] {
	out := make([]Value[V], 0, len(ix.buckets))
	for v := range ix.buckets {
		out = append(out, v)
	}
	return out
}

// bucket returns the sorted raw indexes filed under v.
func (ix *Index[C, V]) bucket(v Value[V]) []uint32 {
	b := ix.buckets[v]
	out := make([]uint32, 0, len(b))
	for i := range b {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// matching returns the sorted union of every bucket whose key satisfies test.
func (ix *Index[C, V]) matching(test func(Value[V]) bool) []uint32 {
	var out []uint32
	for v, b := range ix.buckets {
		if !test(v) {
			continue
		}
		for i := range b {
			out = append(out, i)
		}
	}
	slices.Sort(out)
	return out
}

// Verify compares every bucket with a fresh scan of the property store and
// returns ErrIndexInconsistent on the first difference.
func (ix *Index[C, V]) Verify() error {
	total := 0
	for i := uint32(0); i < ix.observed; i++ {
		v := ix.prop.store.load(i)
		if _, ok := ix.buckets[v][i]; !ok {
			return errors.Wrapf(ErrIndexInconsistent, "%s: %s not in bucket %s",
				ix.prop.name, EntityID[C]{index: i}, v)
		}
		if k := ix.keys.Get(int(i)); k != v {
			return errors.Wrapf(ErrIndexInconsistent, "%s: %s filed under %s, holds %s",
				ix.prop.name, EntityID[C]{index: i}, k, v)
		}
	}
	for _, b := range ix.buckets {
		total += len(b)
	}
	if total != int(ix.observed) {
		return errors.Wrapf(ErrIndexInconsistent, "%s: %d entries for %d entities",
			ix.prop.name, total, ix.observed)
	}
	return nil
}

// indexOf returns the index of p, or nil.
func indexOf[C any, V comparable](w *World, p *Property[C, V]) *Index[C, V] {
	if ix, ok := w.indexes.byProperty[p.id]; ok {
		return ix.(*Index[C, V])
	}
	return nil
}
