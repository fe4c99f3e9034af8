package jotai

import "github.com/pkg/errors"

// PropertyStore holds the values of one property for every entity of category
// C, indexed by identifier.
//
// Slots that were never written hold the absent value; reading an identifier
// beyond the current length is the same as reading an absent slot.
type PropertyStore[C any, V comparable] struct {
	entities *EntityStore[C]
	values   *ValueVec[Value[V]]
	bus      *EventBus
	owner    *Property[C, V]
	world    *World
}

// NewPropertyStore creates a standalone store over entities. It publishes
// nothing. It panics with ErrNotStorable if V is not storable.
func NewPropertyStore[C any, V comparable](entities *EntityStore[C]) *PropertyStore[C, V] {
	return &PropertyStore[C, V]{
		entities: entities,
		values:   NewValueVec(None[V]()),
	}
}

func (s *PropertyStore[C, V]) checkRange(id EntityID[C]) error {
	if !s.entities.Contains(id) {
		return errors.Wrapf(ErrOutOfRange, "%s (issued %d)", id, s.entities.Count())
	}
	return nil
}

// Get returns the value stored for id.
func (s *PropertyStore[C, V]) Get(id EntityID[C]) (Value[V], error) {
	if err := s.checkRange(id); err != nil {
		return Value[V]{}, err
	}
	return s.load(id.index), nil
}

func (s *PropertyStore[C, V]) load(index uint32) Value[V] {
	if int(index) >= s.values.Len() {
		return Value[V]{}
	}
	return s.values.Get(int(index))
}

// Set stores v for id. If the value changed, PropertyChanged is published and
// Set returns only after every handler, including the derived-property
// cascade, has run. NaN values are rejected with ErrNaN.
func (s *PropertyStore[C, V]) Set(id EntityID[C], v V) error {
	nv := Some(v)
	if isNaN(nv) {
		return errors.Wrapf(ErrNaN, "%s", id)
	}
	return s.store(id, nv)
}

// Unset makes the value for id absent.
func (s *PropertyStore[C, V]) Unset(id EntityID[C]) error {
	return s.store(id, None[V]())
}

func (s *PropertyStore[C, V]) store(id EntityID[C], nv Value[V]) error {
	if err := s.checkRange(id); err != nil {
		return err
	}
	s.write(id.index, nv)
	return nil
}

// write assumes index has been issued.
func (s *PropertyStore[C, V]) write(index uint32, nv Value[V]) {
	s.values.GrowTo(int(index) + 1)
	old := s.values.Get(int(index))
	if old == nv {
		return
	}
	s.values.Set(int(index), nv)
	if s.world != nil {
		s.world.mutationVersion++
	}
	if s.owner != nil {
		PropertyChanges.WithLabelValues(s.owner.name).Inc()
	}
	if s.bus != nil {
		Publish(s.bus, PropertyChanged[C, V]{
			ID:       EntityID[C]{index: index},
			Property: s.owner,
			Old:      old,
			New:      nv,
		})
	}
}

// Len returns the number of allocated slots.
func (s *PropertyStore[C, V]) Len() int {
	return s.values.Len()
}

// growTo keeps the store at least as long as its entity store.
func (s *PropertyStore[C, V]) growTo(n int) {
	s.values.GrowTo(n)
}
