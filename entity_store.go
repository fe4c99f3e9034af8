package jotai

import (
	"iter"
	"math"

	"github.com/pkg/errors"
)

// EntityStore allocates identifiers for one category and tracks how many have
// been issued. Entities are never removed.
type EntityStore[C any] struct {
	world *World
	bus   *EventBus
	count uint32
}

// NewEntityStore creates a standalone store that publishes nothing.
func NewEntityStore[C any]() *EntityStore[C] {
	return &EntityStore[C]{}
}

// Create issues the next identifier. When the store belongs to a World, it
// publishes EntityCreated and then initializes the entity's properties:
// constant defaults first, then every derived property in dependency order.
//
// It panics with ErrCapacityExhausted once 2^32 identifiers have been issued.
func (s *EntityStore[C]) Create() EntityID[C] {
	if s.world != nil {
		s.world.mustBeFinalized()
	}
	id := s.issue()
	if s.world != nil {
		s.world.initEntity(categoryOf[C](), id.index, propertyMask{}, nil)
	}
	return id
}

// CreateBatch issues n identifiers in order.
func (s *EntityStore[C]) CreateBatch(n int) []EntityID[C] {
	if n <= 0 {
		return nil
	}
	ids := make([]EntityID[C], n)
	for i := range ids {
		ids[i] = s.Create()
	}
	return ids
}

// Spawn creates an entity with the given initial values. The list is checked
// before anything is created: every property may appear once, required
// properties must be present, derived properties cannot be initialized and
// NaN values are rejected.
func (s *EntityStore[C]) Spawn(inits ...Init[C]) (EntityID[C], error) {
	if s.world == nil {
		if len(inits) > 0 {
			fault(ErrUnknownCategory, "%s: initial values need a world-owned store", CategoryName[C]())
		}
		return s.issue(), nil
	}
	s.world.mustBeFinalized()
	refs, err := initRefs(inits)
	if err != nil {
		return EntityID[C]{}, err
	}
	given, err := s.world.validateInits(categoryOf[C](), refs)
	if err != nil {
		return EntityID[C]{}, err
	}
	id := s.issue()
	s.world.initEntity(categoryOf[C](), id.index, given, func() {
		for _, in := range inits {
			in.apply(id)
		}
	})
	return id, nil
}

func (s *EntityStore[C]) issue() EntityID[C] {
	if s.count == math.MaxUint32 {
		fault(ErrCapacityExhausted, "category %s", CategoryName[C]())
	}
	id := EntityID[C]{index: s.count}
	s.count++
	if s.world != nil {
		s.world.mutationVersion++
		EntitiesCreated.WithLabelValues(CategoryName[C]()).Inc()
	}
	if s.bus != nil {
		Publish(s.bus, EntityCreated[C]{ID: id})
	}
	return id
}

// Contains reports whether id was issued by this store.
func (s *EntityStore[C]) Contains(id EntityID[C]) bool {
	return id.index < s.count
}

// At returns the identifier at index i. It returns ErrOutOfRange unless i was
// issued. Shells and loaders use it to turn stored numbers back into
// identifiers.
func (s *EntityStore[C]) At(i int) (EntityID[C], error) {
	if i < 0 || i >= int(s.count) {
		return EntityID[C]{}, errors.Wrapf(ErrOutOfRange, "%s#%d (issued %d)", CategoryName[C](), i, s.count)
	}
	return EntityID[C]{index: uint32(i)}, nil
}

// Count returns the number of identifiers issued so far.
func (s *EntityStore[C]) Count() int {
	return int(s.count)
}

// All iterates over every issued identifier in ascending order. The count is
// read when iteration starts.
func (s *EntityStore[C]) All() iter.Seq[EntityID[C]] {
	return func(yield func(EntityID[C]) bool) {
		n := s.count
		for i := uint32(0); i < n; i++ {
			if !yield(EntityID[C]{index: i}) {
				return
			}
		}
	}
}
