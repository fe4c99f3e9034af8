package jotai

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/constraints"
)

// Predicate selects entities of category C by their property values.
// Predicates are built with Eq, In, Unset, IsSet, Where, AtLeast, AtMost,
// Between and combined with And, Or and Not. A predicate over one category is
// not a Predicate of any other: Query[Person] does not accept Eq on a
// Location property.
type Predicate[C any] interface {
	// match evaluates the predicate against the stores.
	match(id EntityID[C]) bool
	// indexed reports whether every property the predicate reads has an index.
	indexed(w *World) bool
	// resolve evaluates the predicate against the indexes. n is the number of
	// entities in the category. The result is sorted.
	resolve(w *World, n uint32) []uint32
	// key is a canonical rendering used to cache results. Predicates over
	// arbitrary functions have none.
	key() (string, bool)
}

// leaf tests the value of one property.
type leaf[C any, V comparable] struct {
	p    *Property[C, V]
	test func(Value[V]) bool
	// exact, when not nil, lists every value test accepts, so the index path
	// can read those buckets directly.
	exact []Value[V]
	repr  string
	keyed bool
}

func (l *leaf[C, V]) match(id EntityID[C]) bool {
	return l.test(l.p.store.load(id.index))
}

func (l *leaf[C, V]) indexed(w *World) bool {
	return indexOf(w, l.p) != nil
}

func (l *leaf[C, V]) resolve(w *World, _ uint32) []uint32 {
	ix := indexOf(w, l.p)
	if l.exact == nil {
		return ix.matching(l.test)
	}
	var out []uint32
	for _, v := range l.exact {
		out = union(out, ix.bucket(v))
	}
	return out
}

func (l *leaf[C, V]) key() (string, bool) {
	return l.repr, l.keyed
}

func newLeaf[C any, V comparable](p *Property[C, V], op string, test func(Value[V]) bool, args ...any) *leaf[C, V] {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%d", op, p.id)
	for _, a := range args {
		fmt.Fprintf(&b, ",%#v", a)
	}
	b.WriteByte(')')
	return &leaf[C, V]{p: p, test: test, repr: b.String(), keyed: true}
}

// Eq matches entities whose value of p is present and equal to v.
func Eq[C any, V comparable](p *Property[C, V], v V) Predicate[C] {
	want := Some(v)
	l := newLeaf(p, "eq", func(x Value[V]) bool { return x == want }, v)
	l.exact = []Value[V]{want}
	return l
}

// In matches entities whose value of p is present and one of vs.
func In[C any, V comparable](p *Property[C, V], vs ...V) Predicate[C] {
	set := make(map[Value[V]]struct{}, len(vs))
	exact := make([]Value[V], 0, len(vs))
	args := make([]any, 0, len(vs))
	for _, v := range vs {
		if _, dup := set[Some(v)]; dup {
			continue
		}
		set[Some(v)] = struct{}{}
		exact = append(exact, Some(v))
		args = append(args, v)
	}
	l := newLeaf(p, "in", func(x Value[V]) bool {
		_, ok := set[x]
		return ok
	}, args...)
	l.exact = exact
	return l
}

// Unset matches entities whose value of p is absent.
func Unset[C any, V comparable](p *Property[C, V]) Predicate[C] {
	l := newLeaf(p, "unset", func(x Value[V]) bool { return !x.present })
	l.exact = []Value[V]{None[V]()}
	return l
}

// IsSet matches entities whose value of p is present.
func IsSet[C any, V comparable](p *Property[C, V]) Predicate[C] {
	return newLeaf(p, "set", Value[V].IsSet)
}

// Where matches entities for which fn accepts the value of p. fn must be
// pure. Results of queries using Where are never cached.
func Where[C any, V comparable](p *Property[C, V], fn func(Value[V]) bool) Predicate[C] {
	l := newLeaf(p, "where", fn)
	l.keyed = false
	return l
}

// AtLeast matches entities whose value of p is present and >= lo.
func AtLeast[C any, V interface {
	comparable
	constraints.Ordered
}](p *Property[C, V], lo V) Predicate[C] {
	return newLeaf(p, "ge", func(x Value[V]) bool { return x.present && x.v >= lo }, lo)
}

// AtMost matches entities whose value of p is present and <= hi.
func AtMost[C any, V interface {
	comparable
	constraints.Ordered
}](p *Property[C, V], hi V) Predicate[C] {
	return newLeaf(p, "le", func(x Value[V]) bool { return x.present && x.v <= hi }, hi)
}

// Between matches entities whose value of p is present and within [lo, hi].
func Between[C any, V interface {
	comparable
	constraints.Ordered
}](p *Property[C, V], lo, hi V) Predicate[C] {
	return newLeaf(p, "between", func(x Value[V]) bool {
		return x.present && x.v >= lo && x.v <= hi
	}, lo, hi)
}

type and[C any] []Predicate[C]

// And matches entities every predicate matches. And() matches everything.
func And[C any](preds ...Predicate[C]) Predicate[C] { return and[C](preds) }

func (a and[C]) match(id EntityID[C]) bool {
	for _, p := range a {
		if !p.match(id) {
			return false
		}
	}
	return true
}

func (a and[C]) indexed(w *World) bool { return allIndexed[C](w, a) }

func (a and[C]) resolve(w *World, n uint32) []uint32 {
	if len(a) == 0 {
		return everything(n)
	}
	out := a[0].resolve(w, n)
	for _, p := range a[1:] {
		if len(out) == 0 {
			break
		}
		out = intersect(out, p.resolve(w, n))
	}
	return out
}

func (a and[C]) key() (string, bool) { return compositeKey[C]("and", a) }

type or[C any] []Predicate[C]

// Or matches entities at least one predicate matches. Or() matches nothing.
func Or[C any](preds ...Predicate[C]) Predicate[C] { return or[C](preds) }

func (o or[C]) match(id EntityID[C]) bool {
	for _, p := range o {
		if p.match(id) {
			return true
		}
	}
	return false
}

func (o or[C]) indexed(w *World) bool { return allIndexed[C](w, o) }

func (o or[C]) resolve(w *World, n uint32) []uint32 {
	var out []uint32
	for _, p := range o {
		out = union(out, p.resolve(w, n))
	}
	return out
}

func (o or[C]) key() (string, bool) { return compositeKey[C]("or", o) }

type not[C any] struct {
	inner Predicate[C]
}

// Not matches entities p does not match.
func Not[C any](p Predicate[C]) Predicate[C] { return not[C]{inner: p} }

func (n not[C]) match(id EntityID[C]) bool { return !n.inner.match(id) }
func (n not[C]) indexed(w *World) bool   { return n.inner.indexed(w) }
func (n not[C]) key() (string, bool)     { return compositeKey[C]("not", []Predicate[C]{n.inner}) }
func (n not[C]) resolve(w *World, count uint32) []uint32 {
	return complement(n.inner.resolve(w, count), count)
}

func allIndexed[C any](w *World, preds []Predicate[C]) bool {
	for _, p := range preds {
		if !p.indexed(w) {
			return false
		}
	}
	return true
}

func compositeKey[C any](op string, preds []Predicate[C]) (string, bool) {
	var b strings.Builder
	b.WriteString(op)
	b.WriteByte('(')
	for i, p := range preds {
		k, ok := p.key()
		if !ok {
			return "", false
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
	}
	b.WriteByte(')')
	return b.String(), true
}

// Set operations over sorted, duplicate-free index lists.

func everything(n uint32) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

func intersect(a, b []uint32) []uint32 {
	out := make([]uint32, 0, min(len(a), len(b)))
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func union(a, b []uint32) []uint32 {
	if len(a) == 0 {
		return slices.Clone(b)
	}
	if len(b) == 0 {
		return a
	}
	out := make([]uint32, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func complement(a []uint32, n uint32) []uint32 {
	out := make([]uint32, 0, int(n)-min(len(a), int(n)))
	j := 0
	for i := uint32(0); i < n; i++ {
		if j < len(a) && a[j] == i {
			j++
			continue
		}
		out = append(out, i)
	}
	return out
}
