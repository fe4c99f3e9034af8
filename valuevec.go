package jotai

import "iter"

// ValueVec is a flat, growable vector of plain values. It backs the storage of
// one property.
//
// The element type must be storable (see CheckStorable): every slot is plain
// data, so growing, bulk filling and overwriting are straight copies with no
// per-slot cleanup.
type ValueVec[T any] struct {
	data []T
	fill T
}

// NewValueVec creates an empty vector whose new slots hold fill. It panics
// with ErrNotStorable if T is not storable.
func NewValueVec[T any](fill T) *ValueVec[T] {
	mustBeStorable[T]()
	return &ValueVec[T]{fill: fill}
}

// Len returns the number of slots.
func (v *ValueVec[T]) Len() int {
	return len(v.data)
}

// Cap returns the number of slots the vector can hold without reallocating.
func (v *ValueVec[T]) Cap() int {
	return cap(v.data)
}

// Get returns the value at i. It panics with ErrOutOfBounds if i >= Len().
func (v *ValueVec[T]) Get(i int) T {
	if i < 0 || i >= len(v.data) {
		fault(ErrOutOfBounds, "get %d of %d", i, len(v.data))
	}
	return v.data[i]
}

// Set overwrites the value at i. It panics with ErrOutOfBounds if i >= Len();
// use GrowTo first.
func (v *ValueVec[T]) Set(i int, x T) {
	if i < 0 || i >= len(v.data) {
		fault(ErrOutOfBounds, "set %d of %d", i, len(v.data))
	}
	v.data[i] = x
}

// GrowTo extends the vector to n slots, filling the new ones with the fill
// value. It never shrinks.
func (v *ValueVec[T]) GrowTo(n int) {
	old := len(v.data)
	if n <= old {
		return
	}
	v.data = extendSlice(v.data, n-old)
	fillSlice(v.data[old:], v.fill)
}

// Reserve makes room for at least n slots without changing Len.
func (v *ValueVec[T]) Reserve(n int) {
	if n <= cap(v.data) {
		return
	}
	ns := make([]T, len(v.data), n)
	copy(ns, v.data)
	v.data = ns
}

// Fill overwrites slots [from, to) with x.
func (v *ValueVec[T]) Fill(from, to int, x T) {
	if from < 0 || to > len(v.data) || from > to {
		fault(ErrOutOfBounds, "fill [%d, %d) of %d", from, to, len(v.data))
	}
	fillSlice(v.data[from:to], x)
}

// All iterates over index, value pairs.
func (v *ValueVec[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, x := range v.data {
			if !yield(i, x) {
				return
			}
		}
	}
}
