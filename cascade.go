package jotai

// cascade is one run of derived-property recomputation for one entity.
type cascade struct {
	visited     propertyMask
	index       uint32
	current     PropertyID
	recomputing bool
	// seeding is set while a new entity receives its defaults and initial
	// values; every derived property is computed right after.
	seeding bool
}

// covered reports whether a change of from on the entity at index is already
// handled by the innermost running cascade.
func (w *World) covered(from PropertyID, index uint32) bool {
	n := len(w.cascades)
	if n == 0 {
		return false
	}
	top := &w.cascades[n-1]
	if top.index != index {
		return false
	}
	return top.seeding || (top.recomputing && top.current == from)
}

func (w *World) pushCascade(c cascade) int {
	w.cascades = append(w.cascades, c)
	return len(w.cascades) - 1
}

func (w *World) popCascade(level int) {
	w.cascades = w.cascades[:level]
}

// step recomputes dep within the cascade at level unless that cascade has
// already visited it.
func (w *World) step(level int, dep PropertyID) {
	c := &w.cascades[level]
	if c.visited.containsBit(dep) {
		return
	}
	c.visited.set(dep)
	c.current = dep
	c.recomputing = true
	w.properties[dep].recompute(c.index)
	// nested cascades may have grown the stack
	w.cascades[level].recomputing = false
}

// propagate recomputes every transitive dependent of the property from, for
// the entity at index, in topological order. Each dependent is recomputed at
// most once per cascade. A recomputed property publishes its own change; that
// change is already covered by the running cascade and is not walked again.
// Any other change raised while the cascade runs, such as a handler writing a
// base property, starts a nested cascade.
func (w *World) propagate(from PropertyID, index uint32) {
	if w.covered(from, index) {
		return
	}
	level := w.pushCascade(cascade{index: index})
	defer w.popCascade(level)
	for _, dep := range w.graph.Dependents(from) {
		w.step(level, dep)
	}
}

// CascadeDepth returns the number of cascades currently running. It is zero
// whenever no Create, Spawn or Set is in progress.
func (w *World) CascadeDepth() int {
	return len(w.cascades)
}
