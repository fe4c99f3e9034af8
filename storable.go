package jotai

import (
	"io"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

var (
	closerType     = reflect.TypeFor[io.Closer]()
	storableMu     sync.Mutex
	storableByType = make(map[reflect.Type]error)
)

// CheckStorable reports whether values of type T may live in a ValueVec.
//
// A storable type is plain data: nothing in its layout references memory the
// value would own (pointers, maps, slices, channels, funcs, interfaces), and
// neither T nor *T has a Close method. Such values are copied bitwise, and
// overwriting one never needs to release anything. Strings are allowed; they
// are immutable and own no resource.
func CheckStorable[T any]() error {
	return checkStorableType(reflect.TypeFor[T]())
}

func checkStorableType(t reflect.Type) error {
	storableMu.Lock()
	defer storableMu.Unlock()
	if err, ok := storableByType[t]; ok {
		return err
	}
	err := storableErr(t, t)
	storableByType[t] = err
	return err
}

func storableErr(root, t reflect.Type) error {
	if t.Implements(closerType) || reflect.PointerTo(t).Implements(closerType) {
		return errors.Wrapf(ErrNotStorable, "%s: %s needs cleanup (implements io.Closer)", root, t)
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.Chan, reflect.Func, reflect.Interface:
		return errors.Wrapf(ErrNotStorable, "%s: %s is a %s", root, t, t.Kind())
	case reflect.Array:
		return storableErr(root, t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if err := storableErr(root, t.Field(i).Type); err != nil {
				return err
			}
		}
	}
	return nil
}

// mustBeStorable panics with ErrNotStorable unless T is storable.
func mustBeStorable[T any]() {
	if err := CheckStorable[T](); err != nil {
		panic(err)
	}
}
