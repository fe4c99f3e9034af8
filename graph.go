package jotai

import (
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DependencyGraph records which properties are computed from which. Nodes and
// edges are registered during the build phase; Build then checks the graph is
// acyclic and caches a topological order and, for every node, its transitive
// dependents in that order. The graph is immutable afterwards.
type DependencyGraph struct {
	// Label names nodes in error messages. Defaults to the numeric ID.
	Label func(PropertyID) string

	deps       [][]PropertyID // direct dependencies, by node
	known      []bool
	order      []PropertyID
	rank       []int
	dependents [][]PropertyID // transitive dependents, topologically ordered
	built      bool
}

// Register adds node, if new, and an edge from node to each of deps: node is
// computed from deps. Dependencies not yet registered are added as nodes.
func (g *DependencyGraph) Register(node PropertyID, deps ...PropertyID) error {
	if g.built {
		return errors.Wrapf(ErrGraphBuilt, "register %s", g.label(node))
	}
	g.ensure(node)
	for _, d := range deps {
		g.ensure(d)
		if !slices.Contains(g.deps[node], d) {
			g.deps[node] = append(g.deps[node], d)
		}
	}
	return nil
}

func (g *DependencyGraph) ensure(node PropertyID) {
	if int(node) >= len(g.known) {
		n := int(node) + 1
		g.known = extendSlice(g.known, n-len(g.known))
		g.deps = extendSlice(g.deps, n-len(g.deps))
	}
	g.known[node] = true
}

// Build computes the topological order and transitive dependents. It returns
// ErrCyclicDependency, naming the nodes of one cycle, if the graph has one.
func (g *DependencyGraph) Build() error {
	if g.built {
		return ErrGraphBuilt
	}
	n := len(g.known)
	// reverse edges: dependency -> nodes computed from it
	users := make([][]PropertyID, n)
	indegree := make([]int, n)
	for node, ds := range g.deps {
		for _, d := range ds {
			users[d] = append(users[d], PropertyID(node))
		}
		indegree[node] = len(ds)
	}

	order := make([]PropertyID, 0, n)
	queue := make([]PropertyID, 0, n)
	for i := range n {
		if g.known[i] && indegree[i] == 0 {
			queue = append(queue, PropertyID(i))
		}
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, u := range users[node] {
			indegree[u]--
			if indegree[u] == 0 {
				queue = append(queue, u)
			}
		}
	}
	known := 0
	for _, k := range g.known {
		if k {
			known++
		}
	}
	if len(order) != known {
		return errors.Wrapf(ErrCyclicDependency, "%s", g.describeCycle(indegree))
	}

	rank := make([]int, n)
	for i, node := range order {
		rank[node] = i
	}
	dependents := make([][]PropertyID, n)
	for _, node := range order {
		var seen propertyMask
		var out []PropertyID
		stack := append([]PropertyID(nil), users[node]...)
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen.containsBit(u) {
				continue
			}
			seen.set(u)
			out = append(out, u)
			stack = append(stack, users[u]...)
		}
		slices.SortFunc(out, func(a, b PropertyID) int { return rank[a] - rank[b] })
		dependents[node] = out
	}

	g.order = order
	g.rank = rank
	g.dependents = dependents
	g.built = true
	return nil
}

// describeCycle walks dependency edges among the nodes Kahn's algorithm could
// not order until a node repeats, and renders that loop.
func (g *DependencyGraph) describeCycle(indegree []int) string {
	start := -1
	for i, d := range indegree {
		if g.known[i] && d > 0 {
			start = i
			break
		}
	}
	if start < 0 {
		return "unknown cycle"
	}
	pos := make(map[PropertyID]int)
	var path []PropertyID
	node := PropertyID(start)
	for {
		if at, ok := pos[node]; ok {
			path = append(path[at:], node)
			break
		}
		pos[node] = len(path)
		path = append(path, node)
		for _, d := range g.deps[node] {
			if indegree[d] > 0 {
				node = d
				break
			}
		}
	}
	names := make([]string, len(path))
	for i, p := range path {
		names[i] = g.label(p)
	}
	return strings.Join(names, " -> ")
}

func (g *DependencyGraph) label(node PropertyID) string {
	if g.Label != nil {
		return g.Label(node)
	}
	return "#" + strconv.Itoa(int(node))
}

// Built reports whether Build has succeeded.
func (g *DependencyGraph) Built() bool { return g.built }

// Order returns every node in topological order: each node after all of its
// dependencies.
func (g *DependencyGraph) Order() []PropertyID { return g.order }

// Rank returns node's position in Order.
func (g *DependencyGraph) Rank(node PropertyID) int {
	if int(node) >= len(g.rank) {
		return -1
	}
	return g.rank[node]
}

// Dependents returns every node computed, directly or not, from node, in
// topological order. Empty before Build.
func (g *DependencyGraph) Dependents(node PropertyID) []PropertyID {
	if int(node) >= len(g.dependents) {
		return nil
	}
	return g.dependents[node]
}

// DirectDependencies returns the nodes node is computed from.
func (g *DependencyGraph) DirectDependencies(node PropertyID) []PropertyID {
	if int(node) >= len(g.deps) {
		return nil
	}
	return g.deps[node]
}
