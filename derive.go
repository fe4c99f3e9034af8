package jotai

// Derive1 declares a derived property computed from a. The result is absent
// whenever a is absent.
//
// Example:
//
//	isAdult := jotai.Derive1(w, "IsAdult", age, func(a uint8) bool { return a >= 18 })
func Derive1[C any, A, V comparable](w *World, name string, a *Property[C, A], fn func(A) V, opts ...Option[V]) *Property[C, V] {
	return DeriveValue1(w, name, a, func(av Value[A]) Value[V] {
		x, ok := av.Get()
		if !ok {
			return None[V]()
		}
		return Some(fn(x))
	}, opts...)
}

// Derive2 declares a derived property computed from a and b. The result is
// absent whenever either input is absent.
func Derive2[C any, A, B, V comparable](w *World, name string, a *Property[C, A], b *Property[C, B], fn func(A, B) V, opts ...Option[V]) *Property[C, V] {
	return DeriveValue2(w, name, a, b, func(av Value[A], bv Value[B]) Value[V] {
		x, ok := av.Get()
		if !ok {
			return None[V]()
		}
		y, ok := bv.Get()
		if !ok {
			return None[V]()
		}
		return Some(fn(x, y))
	}, opts...)
}

// Derive3 declares a derived property computed from a, b and c. The result is
// absent whenever any input is absent.
func Derive3[C any, A, B, D, V comparable](w *World, name string, a *Property[C, A], b *Property[C, B], c *Property[C, D], fn func(A, B, D) V, opts ...Option[V]) *Property[C, V] {
	p := DefineDerived[C, V](w, name, opts...)
	return p.Compute(func(id EntityID[C]) Value[V] {
		x, ok := a.store.load(id.index).Get()
		if !ok {
			return None[V]()
		}
		y, ok := b.store.load(id.index).Get()
		if !ok {
			return None[V]()
		}
		z, ok := c.store.load(id.index).Get()
		if !ok {
			return None[V]()
		}
		return Some(fn(x, y, z))
	}, a, b, c)
}

// DeriveValue1 declares a derived property computed from a, with absence
// handled by fn.
func DeriveValue1[C any, A, V comparable](w *World, name string, a *Property[C, A], fn func(Value[A]) Value[V], opts ...Option[V]) *Property[C, V] {
	p := DefineDerived[C, V](w, name, opts...)
	return p.Compute(func(id EntityID[C]) Value[V] {
		return fn(a.store.load(id.index))
	}, a)
}

// DeriveValue2 declares a derived property computed from a and b, with
// absence handled by fn.
func DeriveValue2[C any, A, B, V comparable](w *World, name string, a *Property[C, A], b *Property[C, B], fn func(Value[A], Value[B]) Value[V], opts ...Option[V]) *Property[C, V] {
	p := DefineDerived[C, V](w, name, opts...)
	return p.Compute(func(id EntityID[C]) Value[V] {
		return fn(a.store.load(id.index), b.store.load(id.index))
	}, a, b)
}
