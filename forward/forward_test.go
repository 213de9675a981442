package forward

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestAllocateAdvancesCursor(t *testing.T) {
	mem := make([]byte, 256)
	a := New(mem)

	p1 := a.Allocate(16, 8)
	require.NotNil(t, p1)
	p2 := a.Allocate(16, 8)
	require.NotNil(t, p2)
	require.Greater(t, uintptr(p2), uintptr(p1))
	require.Equal(t, uintptr(32), a.Used())
}

func TestAllocateRespectsAlignment(t *testing.T) {
	mem := make([]byte, 256)
	a := New(mem)

	a.Allocate(3, 1) // misalign the cursor
	p := a.Allocate(16, 16)
	require.NotNil(t, p)
	require.Zero(t, uintptr(p)%16)
}

func TestAllocateFailsWhenExhausted(t *testing.T) {
	mem := make([]byte, 32)
	a := New(mem)

	require.NotNil(t, a.Allocate(16, 1))
	require.Nil(t, a.Allocate(32, 1))
}

func TestDeallocateIsNoop(t *testing.T) {
	mem := make([]byte, 64)
	a := New(mem)

	p := a.Allocate(16, 1)
	before := a.Used()
	a.Deallocate(p)
	require.Equal(t, before, a.Used())
}

func TestReallocateCopiesIntoNewSlot(t *testing.T) {
	mem := make([]byte, 128)
	a := New(mem)

	p := a.Allocate(4, 1)
	buf := unsafe.Slice((*byte)(p), 4)
	copy(buf, []byte{1, 2, 3, 4})

	p2 := a.Reallocate(p, 8, 1)
	require.NotNil(t, p2)
	buf2 := unsafe.Slice((*byte)(p2), 4)
	require.Equal(t, []byte{1, 2, 3, 4}, buf2)
}
