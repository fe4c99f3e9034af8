package jotai

import "fmt"

// Value is a possibly-absent property value. The zero Value is absent, which
// is distinct from a present zero, false or empty value.
type Value[V any] struct {
	v       V
	present bool
}

// Some returns a present value.
func Some[V any](v V) Value[V] {
	return Value[V]{v: v, present: true}
}

// None returns the absent value.
func None[V any]() Value[V] {
	return Value[V]{}
}

// Get returns the value and whether it is present.
func (x Value[V]) Get() (V, bool) {
	return x.v, x.present
}

// IsSet reports whether the value is present.
func (x Value[V]) IsSet() bool {
	return x.present
}

// Or returns the value if present and fallback otherwise.
func (x Value[V]) Or(fallback V) V {
	if x.present {
		return x.v
	}
	return fallback
}

// isNaN reports whether x holds a value that is not equal to itself, which
// only happens when a float inside it is NaN. Such values cannot be compared
// for change detection or used as index keys.
func isNaN[V comparable](x Value[V]) bool {
	return x != x
}

func (x Value[V]) String() string {
	if !x.present {
		return "<unset>"
	}
	return fmt.Sprint(x.v)
}
