// Package jotai is an in-process store for the state of a discrete-event
// simulation: typed entities, typed and possibly-absent properties attached
// to them, derived properties kept consistent by a synchronous cascade, and
// value indexes and predicate queries built on change notifications.
//
// Features:
// - Category-tagged identifiers: EntityID[Person] never converts to EntityID[Location].
// - Columnar property storage on flat, finalizer-free value vectors.
// - A static dependency graph with a cached topological order.
// - Synchronous events: Set returns only after the whole cascade has run.
// - Incrementally maintained value indexes and index-or-scan queries.
//
// A World is single-writer. It performs no locking; callers that share one
// across goroutines must serialize access themselves.
package jotai

import (
	"fmt"
	"reflect"
)

// EntityID identifies one entity of category C. The category is a zero-sized
// marker type that exists only at the type level, so identifiers of different
// categories are distinct Go types and cannot be mixed up.
//
// Identifiers are issued by an EntityStore, starting at 0, and are never
// reused or invalidated.
type EntityID[C any] struct {
	index uint32
}

// Index returns the entity's position in its category.
func (id EntityID[C]) Index() int {
	return int(id.index)
}

func (id EntityID[C]) String() string {
	return fmt.Sprintf("%s#%d", CategoryName[C](), id.index)
}

// CategoryName returns the name of the category type C.
func CategoryName[C any]() string {
	return reflect.TypeFor[C]().Name()
}

// category is the runtime tag for a category type. It is only consulted where
// property references have been type-erased.
type category struct {
	typ  reflect.Type
	name string
}

func categoryOf[C any]() category {
	t := reflect.TypeFor[C]()
	return category{typ: t, name: t.Name()}
}
