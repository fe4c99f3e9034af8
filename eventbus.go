package jotai

import "reflect"

// MaxEventTypes is the number of distinct event kinds one EventBus accepts.
// A world with n properties over k categories uses at most n+k kinds.
const MaxEventTypes = 256

// EventBus dispatches events synchronously, in-process. The kind of an event
// is its Go type: EntityCreated[Person] and PropertyChanged[Person, uint8] are
// distinct kinds.
//
// There is no queue. Publish runs every handler before it returns, and a
// handler may publish again (that is how derived properties cascade). The bus
// itself does not bound recursion; acyclicity of the dependency graph does.
//
// The zero EventBus is ready to use.
type EventBus struct {
	kinds    map[reflect.Type]int
	handlers [][]any // by kind, each holding func(T) values
}

// Subscribe registers handler for events of type T. Handlers run in the order
// they were subscribed.
//
// Parameters:
//   - bus: The EventBus instance to subscribe to.
//   - handler: A function that takes a single argument of type `T`.
func Subscribe[T any](bus *EventBus, handler func(T)) {
	kind := bus.kindOf(reflect.TypeFor[T]())
	bus.handlers[kind] = append(bus.handlers[kind], handler)
}

// Publish calls every handler subscribed to T with event, synchronously and
// in subscription order. Publishing a kind nobody subscribed to is free.
//
// The handler list is read once, so handlers subscribed while the event is
// being dispatched see only later events.
func Publish[T any](bus *EventBus, event T) {
	kind, ok := bus.kinds[reflect.TypeFor[T]()]
	if !ok {
		return
	}
	for _, h := range bus.handlers[kind] {
		h.(func(T))(event)
	}
}

// HandlerCount returns the number of handlers subscribed to events of type T.
func HandlerCount[T any](bus *EventBus) int {
	if kind, ok := bus.kinds[reflect.TypeFor[T]()]; ok {
		return len(bus.handlers[kind])
	}
	return 0
}

// kindOf returns the kind number of t, assigning the next one on first use.
func (bus *EventBus) kindOf(t reflect.Type) int {
	if kind, ok := bus.kinds[t]; ok {
		return kind
	}
	if bus.kinds == nil {
		bus.kinds = make(map[reflect.Type]int)
	}
	kind := len(bus.handlers)
	if kind >= MaxEventTypes {
		fault(ErrTooManyEventTypes, "%s: at most %d", t, MaxEventTypes)
	}
	bus.kinds[t] = kind
	bus.handlers = append(bus.handlers, make([]any, 0, 4))
	return kind
}
