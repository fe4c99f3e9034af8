package jotai

// EntityCreated is published once for every identifier an EntityStore issues.
type EntityCreated[C any] struct {
	ID EntityID[C]
}

// PropertyChanged is published after a property value changed. It is never
// published for writes that leave the value as it was.
type PropertyChanged[C any, V comparable] struct {
	ID       EntityID[C]
	Property *Property[C, V]
	Old      Value[V]
	New      Value[V]
}

// OnChange subscribes handler to changes of p only.
func OnChange[C any, V comparable](bus *EventBus, p *Property[C, V], handler func(PropertyChanged[C, V])) {
	Subscribe(bus, func(ev PropertyChanged[C, V]) {
		if ev.Property == p {
			handler(ev)
		}
	})
}
