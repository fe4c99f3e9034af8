package main

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/edwinsyarief/jotai"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

type Person struct{}

var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrUnsupportedOp   = errors.New("operation not supported by property")
)

// column exposes one property to the shell with its values as text.
type column struct {
	name    string
	derived bool
	display func(jotai.EntityID[Person]) string
	set     func(id jotai.EntityID[Person], raw string) error
	unset   func(id jotai.EntityID[Person]) error
	index   func()
	indexed func() bool
	eq      func(raw string) (jotai.Predicate[Person], error)
	ge      func(raw string) (jotai.Predicate[Person], error)
	le      func(raw string) (jotai.Predicate[Person], error)
	isSet   func() jotai.Predicate[Person]
	isUnset func() jotai.Predicate[Person]
}

func newColumn[V comparable](w *jotai.World, p *jotai.Property[Person, V], parse func(string) (V, error)) *column {
	return &column{
		name:    p.Name(),
		derived: p.Kind() == jotai.Derived,
		display: p.Display,
		set: func(id jotai.EntityID[Person], raw string) error {
			v, err := parse(raw)
			if err != nil {
				return errors.Wrapf(err, "%s value %q", p.Name(), raw)
			}
			return p.Set(id, v)
		},
		unset: p.Unset,
		index: func() { jotai.CreateIndex(w, p) },
		indexed: func() bool {
			return w.Indexes().Indexed(p)
		},
		eq: func(raw string) (jotai.Predicate[Person], error) {
			v, err := parse(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "%s value %q", p.Name(), raw)
			}
			return jotai.Eq(p, v), nil
		},
		isSet:   func() jotai.Predicate[Person] { return jotai.IsSet(p) },
		isUnset: func() jotai.Predicate[Person] { return jotai.Unset(p) },
	}
}

func newOrderedColumn[V interface {
	comparable
	constraints.Ordered
}](w *jotai.World, p *jotai.Property[Person, V], parse func(string) (V, error)) *column {
	c := newColumn(w, p, parse)
	bound := func(op func(*jotai.Property[Person, V], V) jotai.Predicate[Person]) func(string) (jotai.Predicate[Person], error) {
		return func(raw string) (jotai.Predicate[Person], error) {
			v, err := parse(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "%s value %q", p.Name(), raw)
			}
			return op(p, v), nil
		}
	}
	c.ge = bound(jotai.AtLeast[Person, V])
	c.le = bound(jotai.AtMost[Person, V])
	return c
}

func parseAge(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	return uint8(n), err
}

func parseString(s string) (string, error) {
	return s, nil
}

// Model is the population the shell works on.
type Model struct {
	World      *jotai.World
	People     *jotai.EntityStore[Person]
	Age        *jotai.Property[Person, uint8]
	Vaccinated *jotai.Property[Person, bool]
	IsAdult    *jotai.Property[Person, bool]
	AgeGroup   *jotai.Property[Person, string]

	columns []*column
}

func NewModel(cfg Config, logger jotai.Logger) (*Model, error) {
	w, err := jotai.NewWorld(jotai.Options{
		InitialCapacity: cfg.InitialCapacity,
		QueryCacheSize:  cfg.QueryCacheSize,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	m := &Model{World: w, People: jotai.Entities[Person](w)}
	m.Age = jotai.Define[Person, uint8](w, "Age", jotai.WithDisplay(func(a uint8) string {
		return strconv.Itoa(int(a)) + "y"
	}))
	m.Vaccinated = jotai.Define[Person, bool](w, "Vaccinated", jotai.WithDefault(false))
	m.IsAdult = jotai.Derive1(w, "IsAdult", m.Age, func(a uint8) bool { return a >= cfg.AdultAge })
	m.AgeGroup = jotai.Derive1(w, "AgeGroup", m.Age, func(a uint8) string {
		switch {
		case a < cfg.AdultAge:
			return "minor"
		case a < 65:
			return "adult"
		default:
			return "senior"
		}
	})
	m.columns = []*column{
		newOrderedColumn(w, m.Age, parseAge),
		newColumn(w, m.Vaccinated, strconv.ParseBool),
		newColumn(w, m.IsAdult, strconv.ParseBool),
		newOrderedColumn(w, m.AgeGroup, parseString),
	}
	if err := w.Finalize(); err != nil {
		return nil, err
	}
	for _, name := range cfg.Indexes {
		c, err := m.column(name)
		if err != nil {
			return nil, err
		}
		c.index()
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	for range cfg.Population {
		inits := []jotai.Init[Person]{m.Age.With(uint8(rng.IntN(95)))}
		if rng.IntN(2) == 0 {
			inits = append(inits, m.Vaccinated.With(true))
		}
		if _, err := m.People.Spawn(inits...); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// column finds a property by case-insensitive name.
func (m *Model) column(name string) (*column, error) {
	i := slices.IndexFunc(m.columns, func(c *column) bool {
		return strings.EqualFold(c.name, name)
	})
	if i < 0 {
		return nil, errors.Wrap(ErrUnknownProperty, name)
	}
	return m.columns[i], nil
}

// Person parses an entity number, with or without a leading '#'.
func (m *Model) Person(raw string) (jotai.EntityID[Person], error) {
	n, err := strconv.Atoi(strings.TrimPrefix(raw, "#"))
	if err != nil {
		return jotai.EntityID[Person]{}, errors.Wrapf(err, "person %q", raw)
	}
	return m.People.At(n)
}
