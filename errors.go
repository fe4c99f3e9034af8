package jotai

import "github.com/pkg/errors"

// Programmer faults. These are raised with panic, wrapped with context, and
// indicate a bug in the caller or in the store itself.
var (
	ErrCategoryMismatch  = errors.New("jotai: entity category mismatch")
	ErrNotStorable       = errors.New("jotai: value type is not storable")
	ErrOutOfBounds       = errors.New("jotai: value vector index out of bounds")
	ErrNotFinalized      = errors.New("jotai: world is not finalized")
	ErrFinalized         = errors.New("jotai: world is already finalized")
	ErrDuplicateProperty = errors.New("jotai: property already defined")
	ErrUnknownCategory   = errors.New("jotai: entity category not registered")
	ErrCapacityExhausted = errors.New("jotai: entity identifiers exhausted")
	ErrIndexInconsistent = errors.New("jotai: index out of sync with property store")
	ErrTooManyProperties = errors.New("jotai: too many properties")
	ErrTooManyEventTypes = errors.New("jotai: too many event types")
)

// Errors returned to the caller.
var (
	ErrOutOfRange        = errors.New("jotai: entity identifier was never issued")
	ErrDerivedWrite      = errors.New("jotai: derived property cannot be written directly")
	ErrMissingRequired   = errors.New("jotai: required property not initialized")
	ErrDuplicateInit     = errors.New("jotai: property initialized more than once")
	ErrCyclicDependency  = errors.New("jotai: cyclic property dependency")
	ErrIncompleteDerived = errors.New("jotai: derived property has no compute function")
	ErrGraphBuilt        = errors.New("jotai: dependency graph already built")
	ErrNaN               = errors.New("jotai: value is not equal to itself (NaN)")
)

// fault panics with err wrapped in a formatted message.
func fault(err error, format string, args ...any) {
	panic(errors.Wrapf(err, format, args...))
}
