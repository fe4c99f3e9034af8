package jotai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphTopologicalOrder(t *testing.T) {
	var g DependencyGraph
	// 0 base; 1 = f(0); 2 = f(0); 3 = f(1, 2); 4 = f(3)
	require.NoError(t, g.Register(0))
	require.NoError(t, g.Register(4, 3))
	require.NoError(t, g.Register(3, 1, 2))
	require.NoError(t, g.Register(1, 0))
	require.NoError(t, g.Register(2, 0))
	require.NoError(t, g.Build())
	require.True(t, g.Built())

	order := g.Order()
	require.Len(t, order, 5)
	for node := range PropertyID(5) {
		for _, d := range g.DirectDependencies(node) {
			assert.Less(t, g.Rank(d), g.Rank(node), "%d before %d", d, node)
		}
	}

	assert.Equal(t, []PropertyID{1, 2, 3, 4}, g.Dependents(0))
	assert.Equal(t, []PropertyID{3, 4}, g.Dependents(1))
	assert.Equal(t, []PropertyID{4}, g.Dependents(3))
	assert.Empty(t, g.Dependents(4))
	assert.Equal(t, -1, g.Rank(200))
}

func TestGraphDuplicateEdges(t *testing.T) {
	var g DependencyGraph
	require.NoError(t, g.Register(1, 0, 0))
	require.NoError(t, g.Register(1, 0))
	assert.Equal(t, []PropertyID{0}, g.DirectDependencies(1))
	require.NoError(t, g.Build())
	assert.Equal(t, []PropertyID{1}, g.Dependents(0))
}

func TestGraphRejectsCycles(t *testing.T) {
	var g DependencyGraph
	g.Label = func(id PropertyID) string { return string(rune('A' + id)) }
	require.NoError(t, g.Register(0, 1))
	require.NoError(t, g.Register(1, 0))
	require.NoError(t, g.Register(2))
	err := g.Build()
	require.ErrorIs(t, err, ErrCyclicDependency)
	assert.Contains(t, err.Error(), "A")
	assert.Contains(t, err.Error(), "B")
	assert.NotContains(t, err.Error(), "C")
	assert.False(t, g.Built())
}

func TestGraphRejectsSelfCycle(t *testing.T) {
	var g DependencyGraph
	require.NoError(t, g.Register(3, 3))
	err := g.Build()
	require.ErrorIs(t, err, ErrCyclicDependency)
	assert.Contains(t, err.Error(), "#3 -> #3")
}

func TestGraphLongCycle(t *testing.T) {
	var g DependencyGraph
	// 0 feeds a cycle 1 -> 2 -> 3 -> 1
	require.NoError(t, g.Register(1, 0, 3))
	require.NoError(t, g.Register(2, 1))
	require.NoError(t, g.Register(3, 2))
	err := g.Build()
	require.ErrorIs(t, err, ErrCyclicDependency)
	assert.NotContains(t, err.Error(), "#0")
}

func TestGraphImmutableAfterBuild(t *testing.T) {
	var g DependencyGraph
	require.NoError(t, g.Register(1, 0))
	require.NoError(t, g.Build())
	assert.ErrorIs(t, g.Register(2, 1), ErrGraphBuilt)
	assert.ErrorIs(t, g.Build(), ErrGraphBuilt)
}

func TestWorldCycleFailsAtFinalize(t *testing.T) {
	w := newWorld(t)
	a := DefineDerived[Person, int](w, "A")
	b := DefineDerived[Person, int](w, "B")
	a.Compute(func(id EntityID[Person]) Value[int] { return b.MustGet(id) }, b)
	b.Compute(func(id EntityID[Person]) Value[int] { return a.MustGet(id) }, a)

	err := w.Finalize()
	require.ErrorIs(t, err, ErrCyclicDependency)
	assert.Contains(t, err.Error(), "Person.A")
	assert.Contains(t, err.Error(), "Person.B")
	assert.False(t, w.Finalized())
	requireFault(t, ErrNotFinalized, func() { Entities[Person](w).Create() })
}
