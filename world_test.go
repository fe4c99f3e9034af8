package jotai

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonScenarios(t *testing.T) {
	m := newPeople(t)

	// three people
	ids := m.persons.CreateBatch(3)
	assert.Equal(t, entityIDs[Person](0, 1, 2), ids)
	assert.Equal(t, 3, m.persons.Count())

	// set and get
	require.NoError(t, m.age.Set(ids[1], 30))
	assert.Equal(t, Some[uint8](30), m.age.MustGet(ids[1]))
	assert.False(t, m.age.MustGet(ids[0]).IsSet())

	// cascade within the same call
	require.NoError(t, m.age.Set(ids[1], 17))
	assert.Equal(t, Some(false), m.isAdult.MustGet(ids[1]))
	require.NoError(t, m.age.Set(ids[1], 19))
	assert.Equal(t, Some(true), m.isAdult.MustGet(ids[1]))

	// index on the derived property
	adults := CreateIndex(m.w, m.isAdult)
	assert.Equal(t, entityIDs[Person](1), adults.Lookup(true))
	require.NoError(t, m.age.Set(ids[0], 20))
	assert.Equal(t, entityIDs[Person](0, 1), adults.Lookup(true))

	// scan and index agree
	assert.Equal(t,
		Collect(Query(m.w, Eq(m.isAdult, true))),
		Collect(Query(m.w, AtLeast(m.age, 18))),
	)
}

func TestWorldLifecycle(t *testing.T) {
	m := buildPeople(t)
	assert.False(t, m.w.Finalized())
	requireFault(t, ErrNotFinalized, func() { m.persons.Create() })
	requireFault(t, ErrNotFinalized, func() { _, _ = m.age.Get(EntityID[Person]{}) })
	requireFault(t, ErrNotFinalized, func() { _ = m.age.Set(EntityID[Person]{}, 1) })
	requireFault(t, ErrNotFinalized, func() { _, _ = m.persons.Spawn() })

	require.NoError(t, m.w.Finalize())
	assert.True(t, m.w.Finalized())
	require.NoError(t, m.w.Finalize(), "finalize is idempotent")
	assert.True(t, m.w.Graph().Built())

	requireFault(t, ErrFinalized, func() { Define[Person, int](m.w, "Height") })
	requireFault(t, ErrFinalized, func() {
		m.isAdult.Compute(func(EntityID[Person]) Value[bool] { return None[bool]() }, m.age)
	})
	requireFault(t, ErrUnknownCategory, func() { Entities[Location](m.w) })
	assert.Same(t, m.persons, Entities[Person](m.w))
}

func TestWorldIncompleteDerived(t *testing.T) {
	w := newWorld(t)
	DefineDerived[Person, int](w, "Score")
	assert.ErrorIs(t, w.Finalize(), ErrIncompleteDerived)
	assert.False(t, w.Finalized())
}

func TestWorldTooManyProperties(t *testing.T) {
	w := newWorld(t)
	for i := range MaxProperties {
		Define[Person, bool](w, string(rune(0x4e00+i)))
	}
	requireFault(t, ErrTooManyProperties, func() { Define[Person, bool](w, "overflow") })
}

func TestSpawnValidation(t *testing.T) {
	w := newWorld(t)
	name := Define[Person, string](w, "Name", Required[string]())
	age := Define[Person, uint8](w, "Age", WithDefault[uint8](1))
	adult := Derive1(w, "IsAdult", age, func(a uint8) bool { return a >= 18 })
	zone := Define[Location, int](w, "Zone")
	require.NoError(t, w.Finalize())
	persons := Entities[Person](w)
	assert.True(t, name.IsRequired())

	_, err := persons.Spawn(age.With(3))
	assert.ErrorIs(t, err, ErrMissingRequired)
	_, err = persons.Spawn(name.With("a"), name.With("b"))
	assert.ErrorIs(t, err, ErrDuplicateInit)
	_, err = persons.Spawn(name.With("a"), adult.With(true))
	assert.ErrorIs(t, err, ErrDerivedWrite)
	persons.Create()
	assert.Equal(t, 1, persons.Count(), "rejected spawns create nothing")

	id, err := persons.Spawn(name.With("ada"))
	require.NoError(t, err)
	assert.Equal(t, Some("ada"), name.MustGet(id))
	assert.Equal(t, Some[uint8](1), age.MustGet(id), "default applied")
	assert.Equal(t, Some(false), adult.MustGet(id))

	id, err = persons.Spawn(name.With("bo"), age.With(40))
	require.NoError(t, err)
	assert.Equal(t, Some[uint8](40), age.MustGet(id), "init overrides default")
	assert.Equal(t, Some(true), adult.MustGet(id))

	requireFault(t, ErrCategoryMismatch, func() {
		_, _ = persons.Spawn(spoofedInit{ref: zone})
	})
}

// spoofedInit names a property of another category. Typed Inits make this
// impossible outside the package.
type spoofedInit struct{ ref PropertyRef }

func (s spoofedInit) property() PropertyRef { return s.ref }
func (s spoofedInit) check() error { return nil }
func (s spoofedInit) apply(EntityID[Person]) {}

func TestDefaultsSkipSpawnedValues(t *testing.T) {
	w := newWorld(t)
	status := Define[Person, string](w, "Status", WithDefault("new"))
	require.NoError(t, w.Finalize())
	var seen []Value[string]
	OnChange(w.Bus(), status, func(ev PropertyChanged[Person, string]) {
		seen = append(seen, ev.New)
	})
	_, err := Entities[Person](w).Spawn(status.With("imported"))
	require.NoError(t, err)
	assert.Equal(t, []Value[string]{Some("imported")}, seen)
}

func TestWorldMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := quietOptions()
	opts.Registerer = reg
	w, err := NewWorld(opts)
	require.NoError(t, err)
	// a second world shares the collectors
	_, err = NewWorld(opts)
	require.NoError(t, err)

	flag := Define[Location, bool](w, "Flooded")
	require.NoError(t, w.Finalize())
	CreateIndex(w, flag)
	places := Entities[Location](w)

	created := counterValue(t, EntitiesCreated.WithLabelValues("Location"))
	changes := counterValue(t, PropertyChanges.WithLabelValues("Flooded"))
	moves := counterValue(t, IndexBucketMoves.WithLabelValues("Flooded"))
	id := places.Create()
	require.NoError(t, flag.Set(id, true))
	Count(Query(w, Eq(flag, true)))
	Count(Query(w, Eq(flag, true)))

	assert.Equal(t, created+1, counterValue(t, EntitiesCreated.WithLabelValues("Location")))
	assert.Equal(t, changes+1, counterValue(t, PropertyChanges.WithLabelValues("Flooded")))
	assert.Equal(t, moves+1, counterValue(t, IndexBucketMoves.WithLabelValues("Flooded")))
	assert.GreaterOrEqual(t, counterValue(t, QueryCacheHits.WithLabelValues("Location")), 1.0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func counterValue(tb testing.TB, c prometheus.Counter) float64 {
	tb.Helper()
	var m dto.Metric
	require.NoError(tb, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestWorldLogsWithInstanceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	w, err := NewWorld(Options{Logger: logger})
	require.NoError(t, err)
	assert.Same(t, logger, w.Logger())
	flag := Define[Person, bool](w, "Flag")
	require.NoError(t, w.Finalize())
	CreateIndex(w, flag)

	out := buf.String()
	assert.Contains(t, out, "[jotai] world finalized")
	assert.Contains(t, out, "[jotai] index created")
	assert.Contains(t, out, "property=Person.Flag")
	assert.Contains(t, out, "world="+w.ID().String())
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	o.SetDefaults()
	assert.Equal(t, defaultInitialCapacity, o.InitialCapacity)
	assert.Equal(t, defaultQueryCacheSize, o.QueryCacheSize)
	assert.NotNil(t, o.Logger)

	o = Options{InitialCapacity: 8, QueryCacheSize: -1}
	o.SetDefaults()
	assert.Equal(t, 8, o.InitialCapacity)
	assert.Equal(t, -1, o.QueryCacheSize)
}

func BenchmarkSpawn(b *testing.B) {
	m := newPeople(b)
	b.ReportAllocs()
	a := uint8(0)
	for b.Loop() {
		a = (a + 1) % 90
		if _, err := m.persons.Spawn(m.age.With(a)); err != nil {
			b.Fatal(err)
		}
	}
}
