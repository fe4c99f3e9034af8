package jotai

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// categoryInfo holds everything a World knows about one category.
type categoryInfo struct {
	cat      category
	entities any            // *EntityStore[C]
	props    []propertyNode // definition order
	derived  []propertyNode // topological order, set at Finalize
}

// World owns the entity stores, property stores, dependency graph, event bus
// and indexes of one simulation.
//
// A World has two phases. While building, categories and properties are
// declared. Finalize then builds the dependency graph and wires the stores to
// the event bus; only after that can entities be created and values read or
// written. Declaring after Finalize, or using stores before it, panics.
//
// A World is not safe for concurrent use.
type World struct {
	opts       Options
	logger     Logger
	ctx        context.Context
	id         uuid.UUID
	categories map[reflect.Type]*categoryInfo
	catOrder   []*categoryInfo
	properties []propertyNode
	indexes    IndexManager
	queries    queryEngine
	cascades   []cascade
	graph      DependencyGraph
	bus        EventBus
	// mutationVersion is incremented on every entity creation and value change.
	mutationVersion uint64
	finalized       bool
}

// NewWorld creates a World in its building phase.
//
// Parameters:
//   - opts: Store configuration. Zero fields take their defaults.
//
// Returns:
//   - The newly created World, or an error if its collectors could not be
//     registered.
func NewWorld(opts Options) (*World, error) {
	opts.SetDefaults()
	w := &World{
		opts:       opts,
		logger:     opts.Logger,
		id:         uuid.New(),
		categories: make(map[reflect.Type]*categoryInfo),
	}
	w.ctx = WithDefaultArgs(context.Background(), "world", w.id.String())
	w.graph.Label = w.propertyLabel
	w.indexes.world = w
	w.queries.init(opts.QueryCacheSize)
	if opts.Registerer != nil {
		if err := registerCollectors(opts.Registerer); err != nil {
			return nil, errors.Wrap(err, "jotai: register collectors")
		}
	}
	return w, nil
}

// ID returns the instance identifier the world logs under.
func (w *World) ID() uuid.UUID { return w.id }

// Bus returns the world's event bus. Simulation code subscribes to
// EntityCreated and PropertyChanged events through it.
func (w *World) Bus() *EventBus { return &w.bus }

// Graph returns the dependency graph. It is complete once Finalize succeeds.
func (w *World) Graph() *DependencyGraph { return &w.graph }

// MutationVersion counts entity creations and value changes since the world
// was created.
func (w *World) MutationVersion() uint64 { return w.mutationVersion }

// Logger returns the logger the world reports to.
func (w *World) Logger() Logger { return w.logger }

// Finalized reports whether Finalize has succeeded.
func (w *World) Finalized() bool { return w.finalized }

// Entities returns the entity store of category C. During the building phase
// the category is registered on first use; afterwards an unknown category
// panics with ErrUnknownCategory.
func Entities[C any](w *World) *EntityStore[C] {
	t := reflect.TypeFor[C]()
	if info, ok := w.categories[t]; ok {
		return info.entities.(*EntityStore[C])
	}
	if w.finalized {
		fault(ErrUnknownCategory, "%s", t)
	}
	s := &EntityStore[C]{world: w, bus: &w.bus}
	info := &categoryInfo{cat: categoryOf[C](), entities: s}
	w.categories[t] = info
	w.catOrder = append(w.catOrder, info)
	return s
}

func (w *World) addProperty(p propertyNode) {
	m := p.meta()
	if len(w.properties) >= MaxProperties {
		fault(ErrTooManyProperties, "%s.%s: at most %d", m.cat.name, m.name, MaxProperties)
	}
	info := w.categories[m.cat.typ]
	for _, q := range info.props {
		if q.meta().name == m.name {
			fault(ErrDuplicateProperty, "%s.%s", m.cat.name, m.name)
		}
	}
	m.id = PropertyID(len(w.properties))
	w.properties = append(w.properties, p)
	info.props = append(info.props, p)
	if err := w.graph.Register(m.id); err != nil {
		panic(err)
	}
}

func (w *World) propertyLabel(id PropertyID) string {
	if int(id) >= len(w.properties) {
		return "#?"
	}
	m := w.properties[id].meta()
	return m.cat.name + "." + m.name
}

// Finalize ends the building phase. It checks every derived property has a
// compute function, builds the dependency graph and connects every store to
// the event bus. On error the world stays unusable.
func (w *World) Finalize() error {
	if w.finalized {
		return nil
	}
	for _, p := range w.properties {
		if m := p.meta(); m.kind == Derived && !m.computed {
			return errors.Wrapf(ErrIncompleteDerived, "%s", w.propertyLabel(m.id))
		}
	}
	if err := w.graph.Build(); err != nil {
		w.logger.ErrorCtx(w.ctx, "dependency graph rejected", "err", err)
		return err
	}
	for _, id := range w.graph.Order() {
		p := w.properties[id]
		if m := p.meta(); m.kind == Derived {
			info := w.categories[m.cat.typ]
			info.derived = append(info.derived, p)
		}
	}
	for _, p := range w.properties {
		p.wire()
	}
	w.finalized = true
	w.logger.InfoCtx(w.ctx, "world finalized",
		"categories", len(w.catOrder),
		"properties", len(w.properties),
		"indexes", len(w.indexes.byProperty),
	)
	return nil
}

func (w *World) mustBeFinalized() {
	if !w.finalized {
		fault(ErrNotFinalized, "world %s", w.id)
	}
}

func (w *World) mustBeBuilding() {
	if w.finalized {
		fault(ErrFinalized, "world %s", w.id)
	}
}

// validateInits checks a spawn list for category cat and returns the set of
// properties it names.
func (w *World) validateInits(cat category, refs []PropertyRef) (propertyMask, error) {
	var given propertyMask
	for _, r := range refs {
		m := r.meta()
		if m.cat.typ != cat.typ {
			fault(ErrCategoryMismatch, "%s.%s in a %s spawn list", m.cat.name, m.name, cat.name)
		}
		if m.kind == Derived {
			return given, errors.Wrapf(ErrDerivedWrite, "%s.%s", m.cat.name, m.name)
		}
		if given.containsBit(m.id) {
			return given, errors.Wrapf(ErrDuplicateInit, "%s.%s", m.cat.name, m.name)
		}
		given.set(m.id)
	}
	for _, p := range w.categories[cat.typ].props {
		if m := p.meta(); m.required && !given.containsBit(m.id) {
			return given, errors.Wrapf(ErrMissingRequired, "%s.%s", m.cat.name, m.name)
		}
	}
	return given, nil
}

// initEntity runs after EntityCreated has been published for a new entity:
// defaults for properties the spawn list does not set, then the spawn list,
// then every derived property in dependency order.
func (w *World) initEntity(cat category, index uint32, given propertyMask, apply func()) {
	info := w.categories[cat.typ]
	level := w.pushCascade(cascade{index: index, seeding: true})
	defer w.popCascade(level)
	for _, p := range info.props {
		if m := p.meta(); m.kind == Base && m.hasDefault && !given.containsBit(m.id) {
			p.applyDefault(index)
		}
	}
	if apply != nil {
		apply()
	}
	w.cascades[level].seeding = false
	for _, p := range info.derived {
		w.step(level, p.meta().id)
	}
}
