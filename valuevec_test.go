package jotai

import (
	"fmt"
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handle struct{ fd int }

func (h handle) Close() error { return nil }

type pointerCloser struct{ fd int }

func (h *pointerCloser) Close() error { return nil }

type position struct {
	X, Y float32
	Tag  [4]byte
	Name string
}

type nested struct {
	Pos  position
	Next *nested
}

func TestValueVecRejectsNonStorable(t *testing.T) {
	rejects := map[string]func(){
		"pointer":        func() { NewValueVec[*int](nil) },
		"unsafe pointer": func() { NewValueVec[unsafe.Pointer](nil) },
		"map":            func() { NewValueVec[map[string]int](nil) },
		"slice":          func() { NewValueVec[[]byte](nil) },
		"chan":           func() { NewValueVec[chan int](nil) },
		"func":           func() { NewValueVec[func()](nil) },
		"interface":      func() { NewValueVec[any](nil) },
		"closer":         func() { NewValueVec(handle{}) },
		"pointer closer": func() { NewValueVec(pointerCloser{}) },
		"file":           func() { NewValueVec[os.File](os.File{}) },
		"nested pointer": func() { NewValueVec(nested{}) },
		"array of maps":  func() { NewValueVec([2]map[int]int{}) },
		"absent pointer": func() { NewValueVec(None[*int]()) },
	}
	for name, fn := range rejects {
		t.Run(name, func(t *testing.T) {
			requireFault(t, ErrNotStorable, fn)
		})
	}
}

func TestCheckStorable(t *testing.T) {
	assert.NoError(t, CheckStorable[int]())
	assert.NoError(t, CheckStorable[string]())
	assert.NoError(t, CheckStorable[position]())
	assert.NoError(t, CheckStorable[Value[position]]())
	assert.NoError(t, CheckStorable[[8]uint64]())
	assert.ErrorIs(t, CheckStorable[[]int](), ErrNotStorable)
	assert.ErrorIs(t, CheckStorable[handle](), ErrNotStorable)
	// cached results stay the same
	assert.ErrorIs(t, CheckStorable[handle](), ErrNotStorable)
}

func TestPropertyStoreRejectsNonStorable(t *testing.T) {
	requireFault(t, ErrNotStorable, func() {
		NewPropertyStore[Person, *int](NewEntityStore[Person]())
	})
	w := newWorld(t)
	requireFault(t, ErrNotStorable, func() {
		Define[Person, handle](w, "Handle")
	})
}

func TestValueVecGrowAndFill(t *testing.T) {
	v := NewValueVec(int32(-1))
	assert.Equal(t, 0, v.Len())

	v.GrowTo(5)
	require.Equal(t, 5, v.Len())
	for i := range 5 {
		assert.Equal(t, int32(-1), v.Get(i))
	}

	v.Set(2, 7)
	v.GrowTo(3) // never shrinks
	assert.Equal(t, 5, v.Len())
	assert.Equal(t, int32(7), v.Get(2))

	v.GrowTo(1000)
	assert.Equal(t, 1000, v.Len())
	assert.GreaterOrEqual(t, v.Cap(), 1000)
	assert.Equal(t, int32(-1), v.Get(999))
	assert.Equal(t, int32(7), v.Get(2))

	v.Fill(10, 20, 3)
	for i, x := range v.All() {
		switch {
		case i == 2:
			assert.Equal(t, int32(7), x)
		case i >= 10 && i < 20:
			assert.Equal(t, int32(3), x)
		default:
			assert.Equal(t, int32(-1), x, "slot %d", i)
		}
	}
}

func TestValueVecReserve(t *testing.T) {
	v := NewValueVec("")
	v.Reserve(64)
	assert.Equal(t, 0, v.Len())
	assert.GreaterOrEqual(t, v.Cap(), 64)
	v.GrowTo(2)
	v.Set(1, "b")
	v.Reserve(128)
	assert.Equal(t, "b", v.Get(1))
}

func TestValueVecBounds(t *testing.T) {
	v := NewValueVec(0)
	v.GrowTo(3)
	requireFault(t, ErrOutOfBounds, func() { v.Get(3) })
	requireFault(t, ErrOutOfBounds, func() { v.Set(3, 1) })
	requireFault(t, ErrOutOfBounds, func() { v.Get(-1) })
	requireFault(t, ErrOutOfBounds, func() { v.Fill(2, 4, 1) })
}

func TestFillSlice(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 7, 64, 65, 1000} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			s := make([]int, n)
			fillSlice(s, 9)
			for i, x := range s {
				require.Equal(t, 9, x, "index %d", i)
			}
		})
	}
}

func BenchmarkValueVecGrowTo(b *testing.B) {
	sizes := []int{1000, 10000, 100000, 1000000}
	for _, size := range sizes {
		name := fmt.Sprintf("%dK", size/1000)
		if size == 1000000 {
			name = "1M"
		}
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				v := NewValueVec(None[uint8]())
				v.GrowTo(size)
			}
		})
	}
}
