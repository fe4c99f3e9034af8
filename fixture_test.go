package jotai

import (
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type Person struct{}
type Location struct{}

// people is the model most tests run against: Age and Vaccinated are base
// properties, IsAdult = Age >= 18 and AgeGroup is bucketed from Age.
type people struct {
	w          *World
	persons    *EntityStore[Person]
	age        *Property[Person, uint8]
	vaccinated *Property[Person, bool]
	isAdult    *Property[Person, bool]
	ageGroup   *Property[Person, string]
}

func quietOptions() Options {
	return Options{Logger: NewDefaultLogger(slog.LevelError + 4)}
}

func newWorld(tb testing.TB) *World {
	tb.Helper()
	w, err := NewWorld(quietOptions())
	require.NoError(tb, err)
	return w
}

func buildPeople(tb testing.TB) *people {
	tb.Helper()
	w := newWorld(tb)
	m := &people{w: w, persons: Entities[Person](w)}
	m.age = Define[Person, uint8](w, "Age")
	m.vaccinated = Define[Person, bool](w, "Vaccinated", WithDefault(false))
	m.isAdult = Derive1(w, "IsAdult", m.age, func(a uint8) bool { return a >= 18 })
	m.ageGroup = Derive1(w, "AgeGroup", m.age, ageGroup)
	return m
}

func newPeople(tb testing.TB) *people {
	tb.Helper()
	m := buildPeople(tb)
	require.NoError(tb, m.w.Finalize())
	return m
}

func ageGroup(a uint8) string {
	switch {
	case a < 18:
		return "minor"
	case a < 65:
		return "adult"
	default:
		return "senior"
	}
}

// requireFault runs fn and requires it to panic with an error matching want.
func requireFault(tb testing.TB, want error, fn func()) {
	tb.Helper()
	defer func() {
		tb.Helper()
		r := recover()
		require.NotNil(tb, r, "expected panic with %v", want)
		err, ok := r.(error)
		require.True(tb, ok, "panic value %v is not an error", r)
		require.True(tb, errors.Is(err, want), "panic %v does not match %v", err, want)
	}()
	fn()
}

func entityIDs[C any](indexes ...uint32) []EntityID[C] {
	out := make([]EntityID[C], len(indexes))
	for i, x := range indexes {
		out[i] = EntityID[C]{index: x}
	}
	return out
}
