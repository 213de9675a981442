package tlsf

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	mem := make([]byte, size)
	p, err := New(mem)
	require.NoError(t, err)
	return p
}

func TestNewRejectsUndersizedRegion(t *testing.T) {
	_, err := New(make([]byte, 8))
	require.ErrorIs(t, err, ErrPoolTooSmall)
}

func TestAllocateReturnsAlignedUsablePointer(t *testing.T) {
	p := newTestPool(t, 1<<16)

	ptr := p.Allocate(100, 4)
	require.NotNil(t, ptr)
	require.Zero(t, uintptr(ptr)%alignSize)
	require.GreaterOrEqual(t, p.BlockSize(ptr), uint32(100))
	require.NoError(t, p.CheckHeap())
}

func TestAllocateZeroReturnsNil(t *testing.T) {
	p := newTestPool(t, 1<<12)
	require.Nil(t, p.Allocate(0, 4))
}

func TestAllocateDeallocateCoalesces(t *testing.T) {
	p := newTestPool(t, 1<<16)

	a := p.Allocate(64, 4)
	b := p.Allocate(64, 4)
	c := p.Allocate(64, 4)
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)

	p.Deallocate(a)
	p.Deallocate(b)
	p.Deallocate(c)
	require.NoError(t, p.CheckHeap())

	// A coalesced heap should satisfy a request spanning all three blocks.
	big := p.Allocate(64*3+64, 4)
	require.NotNil(t, big)
	require.NoError(t, p.CheckHeap())
}

func TestDeallocateNilIsNoop(t *testing.T) {
	p := newTestPool(t, 1<<12)
	p.Deallocate(nil)
	require.NoError(t, p.CheckHeap())
}

func TestReallocateGrowsInPlaceWhenNextIsFree(t *testing.T) {
	p := newTestPool(t, 1<<16)

	a := p.Allocate(64, 4)
	b := p.Allocate(64, 4)
	require.NotNil(t, a)
	require.NotNil(t, b)
	p.Deallocate(b)

	grown := p.Reallocate(a, 100, 4)
	require.Equal(t, a, grown)
	require.GreaterOrEqual(t, p.BlockSize(grown), uint32(100))
	require.NoError(t, p.CheckHeap())
}

func TestReallocateFallsBackToAllocateCopyFree(t *testing.T) {
	p := newTestPool(t, 1<<16)

	a := p.Allocate(64, 4)
	buf := unsafe.Slice((*byte)(a), 64)
	for i := range buf {
		buf[i] = byte(i)
	}
	// Snapshot the contents: once a is freed, its payload holds free-list links.
	want := append([]byte(nil), buf...)
	b := p.Allocate(64, 4) // block immediately after a, so a can't grow in place
	require.NotNil(t, b)

	grown := p.Reallocate(a, 256, 4)
	require.NotNil(t, grown)
	require.NotEqual(t, a, grown)
	newBuf := unsafe.Slice((*byte)(grown), 64)
	require.Equal(t, want, newBuf)
	require.NoError(t, p.CheckHeap())
}

func TestReallocateNilActsAsAllocate(t *testing.T) {
	p := newTestPool(t, 1<<12)
	ptr := p.Reallocate(nil, 32, 4)
	require.NotNil(t, ptr)
}

func TestReallocateZeroActsAsDeallocate(t *testing.T) {
	p := newTestPool(t, 1<<12)
	ptr := p.Allocate(32, 4)
	require.Nil(t, p.Reallocate(ptr, 0, 4))
	require.NoError(t, p.CheckHeap())
}

func TestAllocateAlignedHonorsLargeAlignment(t *testing.T) {
	p := newTestPool(t, 1<<16)

	for _, align := range []uint32{16, 64, 256} {
		ptr := p.AllocateAligned(48, align)
		require.NotNil(t, ptr)
		require.Zero(t, uintptr(ptr)%uintptr(align))
	}
	require.NoError(t, p.CheckHeap())
}

func TestAllocationsNeverOverlap(t *testing.T) {
	p := newTestPool(t, 1<<16)

	type span struct{ start, end uintptr }
	var spans []span
	for i := 0; i < 20; i++ {
		ptr := p.Allocate(uintptr(16+4*i), 4)
		require.NotNil(t, ptr)
		start := uintptr(ptr)
		end := start + uintptr(p.BlockSize(ptr))
		for _, s := range spans {
			overlap := start < s.end && s.start < end
			require.False(t, overlap, "allocation %d overlaps an earlier one", i)
		}
		spans = append(spans, span{start, end})
	}
	require.NoError(t, p.CheckHeap())
}

func TestWalkVisitsEveryBlockInOrder(t *testing.T) {
	p := newTestPool(t, 1<<14)
	a := p.Allocate(32, 4)
	_ = p.Allocate(32, 4)
	p.Deallocate(a)

	var total uint32
	var sawFree, sawUsed bool
	var order []bool
	p.Walk(func(ptr unsafe.Pointer, size uint32, used bool) {
		total += size
		order = append(order, used)
		if used {
			sawUsed = true
		} else {
			sawFree = true
		}
	})
	require.True(t, sawFree)
	require.True(t, sawUsed)
	require.Greater(t, total, uint32(0))
	// Physical order: freed a, used second block, free remainder.
	require.Equal(t, []bool{false, true, false}, order)
}
