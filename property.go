package jotai

import (
	"fmt"

	"github.com/pkg/errors"
)

// PropertyID is a property's position in its World, unique across categories.
type PropertyID uint8

// Kind tells how a property gets its values.
type Kind uint8

const (
	// Base properties are written directly by simulation code.
	Base Kind = iota
	// Derived properties are computed from other properties of the same entity.
	Derived
)

func (k Kind) String() string {
	if k == Derived {
		return "derived"
	}
	return "base"
}

// PropertyRef is a type-erased reference to a property. Any *Property[C, V]
// is a PropertyRef.
type PropertyRef interface {
	meta() *propertyMeta
}

type propertyMeta struct {
	name       string
	cat        category
	deps       []PropertyID
	id         PropertyID
	kind       Kind
	required   bool
	hasDefault bool
	computed   bool
}

func (m *propertyMeta) meta() *propertyMeta { return m }

// propertyNode is what the World keeps for every property, whatever its types.
type propertyNode interface {
	PropertyRef
	wire()
	applyDefault(index uint32)
	recompute(index uint32)
}

// Property is a named, typed, possibly-absent attribute of category C.
type Property[C any, V comparable] struct {
	propertyMeta
	world   *World
	store   *PropertyStore[C, V]
	compute func(EntityID[C]) Value[V]
	display func(V) string
	def     V
}

// Option configures a property at definition time.
type Option[V any] func(*propertyConfig[V])

type propertyConfig[V any] struct {
	def        V
	hasDefault bool
	required   bool
	display    func(V) string
}

// WithDefault gives every new entity the value v unless a spawn list sets it.
func WithDefault[V any](v V) Option[V] {
	return func(c *propertyConfig[V]) {
		c.def = v
		c.hasDefault = true
	}
}

// Required makes Spawn reject initial value lists that do not set the property.
func Required[V any]() Option[V] {
	return func(c *propertyConfig[V]) {
		c.required = true
	}
}

// WithDisplay sets how Display renders present values.
func WithDisplay[V any](fn func(V) string) Option[V] {
	return func(c *propertyConfig[V]) {
		c.display = fn
	}
}

// Define declares a base property of category C. It must be called before
// Finalize. It panics with ErrNotStorable if V is not storable and with
// ErrDuplicateProperty if C already has a property of that name.
func Define[C any, V comparable](w *World, name string, opts ...Option[V]) *Property[C, V] {
	return defineProperty[C, V](w, name, Base, opts)
}

// DefineDerived declares a derived property of category C. Its dependencies
// and compute function are bound with Compute before Finalize.
func DefineDerived[C any, V comparable](w *World, name string, opts ...Option[V]) *Property[C, V] {
	return defineProperty[C, V](w, name, Derived, opts)
}

func defineProperty[C any, V comparable](w *World, name string, kind Kind, opts []Option[V]) *Property[C, V] {
	w.mustBeBuilding()
	var cfg propertyConfig[V]
	for _, opt := range opts {
		opt(&cfg)
	}
	if kind == Derived && (cfg.hasDefault || cfg.required) {
		fault(ErrDerivedWrite, "%s.%s: derived properties take no default and cannot be required", CategoryName[C](), name)
	}
	if cfg.hasDefault && isNaN(Some(cfg.def)) {
		fault(ErrNaN, "%s.%s: default", CategoryName[C](), name)
	}
	entities := Entities[C](w)
	store := NewPropertyStore[C, V](entities)
	store.values.Reserve(w.opts.InitialCapacity)
	p := &Property[C, V]{
		propertyMeta: propertyMeta{
			name:       name,
			cat:        categoryOf[C](),
			kind:       kind,
			required:   cfg.required,
			hasDefault: cfg.hasDefault,
		},
		world:   w,
		store:   store,
		display: cfg.display,
		def:     cfg.def,
	}
	store.bus = &w.bus
	store.owner = p
	store.world = w
	w.addProperty(p)
	return p
}

// Compute binds a derived property to its direct dependencies and compute
// function. fn must be pure: it reads the current values of deps for the
// given entity and nothing else. All deps must belong to category C; a
// mismatch panics with ErrCategoryMismatch.
func (p *Property[C, V]) Compute(fn func(EntityID[C]) Value[V], deps ...PropertyRef) *Property[C, V] {
	p.world.mustBeBuilding()
	if p.kind != Derived {
		fault(ErrDerivedWrite, "%s: compute on a base property", p.name)
	}
	if p.computed {
		fault(ErrDuplicateProperty, "%s: compute already bound", p.name)
	}
	ids := make([]PropertyID, 0, len(deps))
	for _, d := range deps {
		m := d.meta()
		if m.cat.typ != p.cat.typ {
			fault(ErrCategoryMismatch, "%s.%s depends on %s.%s", p.cat.name, p.name, m.cat.name, m.name)
		}
		ids = append(ids, m.id)
	}
	if err := p.world.graph.Register(p.id, ids...); err != nil {
		panic(err)
	}
	p.deps = ids
	p.compute = fn
	p.computed = true
	return p
}

// Name returns the property name, unique within its category.
func (p *Property[C, V]) Name() string { return p.name }

// ID returns the property's position in its World.
func (p *Property[C, V]) ID() PropertyID { return p.id }

// Kind reports whether p is a base or a derived property.
func (p *Property[C, V]) Kind() Kind { return p.kind }

// IsRequired reports whether Spawn lists must set p.
func (p *Property[C, V]) IsRequired() bool { return p.required }

// Default returns the constant default, if the property has one.
func (p *Property[C, V]) Default() (V, bool) {
	return p.def, p.hasDefault
}

// Dependencies returns the names of the properties p is computed from.
func (p *Property[C, V]) Dependencies() []string {
	names := make([]string, len(p.deps))
	for i, d := range p.deps {
		names[i] = p.world.properties[d].meta().name
	}
	return names
}

// Get returns the value of p for id. It returns ErrOutOfRange if id was never
// issued; an absent value is not an error.
func (p *Property[C, V]) Get(id EntityID[C]) (Value[V], error) {
	p.world.mustBeFinalized()
	v, err := p.store.Get(id)
	return v, errors.WithMessage(err, p.name)
}

// MustGet is like Get but panics on error. Compute functions use it to read
// their dependencies.
func (p *Property[C, V]) MustGet(id EntityID[C]) Value[V] {
	v, err := p.Get(id)
	if err != nil {
		panic(err)
	}
	return v
}

// GetOr returns the value of p for id, or fallback when it is absent or id
// was never issued.
func (p *Property[C, V]) GetOr(id EntityID[C], fallback V) V {
	v, err := p.Get(id)
	if err != nil {
		return fallback
	}
	return v.Or(fallback)
}

// Set stores v for id and runs the resulting cascade before returning.
// Derived properties cannot be set.
func (p *Property[C, V]) Set(id EntityID[C], v V) error {
	p.world.mustBeFinalized()
	if p.kind == Derived {
		return errors.Wrap(ErrDerivedWrite, p.name)
	}
	return errors.WithMessage(p.store.Set(id, v), p.name)
}

// Unset makes the value for id absent.
func (p *Property[C, V]) Unset(id EntityID[C]) error {
	p.world.mustBeFinalized()
	if p.kind == Derived {
		return errors.Wrap(ErrDerivedWrite, p.name)
	}
	return errors.WithMessage(p.store.Unset(id), p.name)
}

// Display renders the value of p for id.
func (p *Property[C, V]) Display(id EntityID[C]) string {
	v, err := p.Get(id)
	if err != nil {
		return "<invalid>"
	}
	x, ok := v.Get()
	if !ok {
		return "<unset>"
	}
	if p.display != nil {
		return p.display(x)
	}
	return fmt.Sprint(x)
}

// Init is one entry of a Spawn initial value list.
type Init[C any] interface {
	property() PropertyRef
	check() error
	apply(id EntityID[C])
}

type propertyInit[C any, V comparable] struct {
	p *Property[C, V]
	v V
}

func (in propertyInit[C, V]) property() PropertyRef { return in.p }

func (in propertyInit[C, V]) check() error {
	if isNaN(Some(in.v)) {
		return errors.Wrapf(ErrNaN, "%s.%s", in.p.cat.name, in.p.name)
	}
	return nil
}

func (in propertyInit[C, V]) apply(id EntityID[C]) {
	in.p.store.write(id.index, Some(in.v))
}

// With returns an initial value for Spawn.
func (p *Property[C, V]) With(v V) Init[C] {
	return propertyInit[C, V]{p: p, v: v}
}

func initRefs[C any](inits []Init[C]) ([]PropertyRef, error) {
	refs := make([]PropertyRef, len(inits))
	for i, in := range inits {
		if err := in.check(); err != nil {
			return nil, err
		}
		refs[i] = in.property()
	}
	return refs, nil
}

func (p *Property[C, V]) applyDefault(index uint32) {
	if p.hasDefault {
		p.store.write(index, Some(p.def))
	}
}

// recompute stores the compute result. A NaN result is stored as absent.
func (p *Property[C, V]) recompute(index uint32) {
	CascadeRecomputations.WithLabelValues(p.name).Inc()
	nv := p.compute(EntityID[C]{index: index})
	if isNaN(nv) {
		nv = None[V]()
	}
	p.store.write(index, nv)
}

// wire connects the property to the world's event flow at Finalize: its store
// grows with the entity store, and its changes drive the cascade when other
// properties depend on it.
func (p *Property[C, V]) wire() {
	w := p.world
	Subscribe(&w.bus, func(ev EntityCreated[C]) {
		p.store.growTo(int(ev.ID.index) + 1)
	})
	if len(w.graph.Dependents(p.id)) == 0 {
		return
	}
	OnChange(&w.bus, p, func(ev PropertyChanged[C, V]) {
		w.propagate(p.id, ev.ID.index)
	})
}
