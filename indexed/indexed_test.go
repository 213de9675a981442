package indexed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOverRegionRejectsBadSlotSize(t *testing.T) {
	_, err := NewOverRegion(make([]byte, 64), 5)
	require.ErrorIs(t, err, ErrInvalidSlotSize)
}

func TestAllocateDeallocateRoundTrip(t *testing.T) {
	p, err := NewOverRegion(make([]byte, 16*8), 8)
	require.NoError(t, err)
	require.Equal(t, uint32(16), p.Cap())

	idx, ptr := p.IAllocate()
	require.NotEqual(t, NilIndex, idx)
	require.NotNil(t, ptr)
	require.Equal(t, uint32(1), p.Len())

	require.Equal(t, idx, p.ToIdx(ptr))
	require.Equal(t, ptr, p.ToPtr(idx))

	require.NoError(t, p.IDeallocate(idx))
	require.Equal(t, uint32(0), p.Len())
}

func TestPoolExhausted(t *testing.T) {
	p, err := NewOverRegion(make([]byte, 2*4), 4)
	require.NoError(t, err)

	idx1, _ := p.IAllocate()
	idx2, _ := p.IAllocate()
	require.NotEqual(t, idx1, idx2)

	idx3, ptr3 := p.IAllocate()
	require.Equal(t, NilIndex, idx3)
	require.Nil(t, ptr3)
}

func TestDoubleFreeDetected(t *testing.T) {
	p, err := NewOverRegion(make([]byte, 4*4), 4)
	require.NoError(t, err)

	idx, _ := p.IAllocate()
	require.NoError(t, p.IDeallocate(idx))
	require.ErrorIs(t, p.IDeallocate(idx), ErrCorrupted)
}

func TestCheckDetectsNothingOnHealthyPool(t *testing.T) {
	p, err := NewOverRegion(make([]byte, 8*4), 4)
	require.NoError(t, err)

	idx1, _ := p.IAllocate()
	_, _ = p.IAllocate()
	require.NoError(t, p.IDeallocate(idx1))

	require.NoError(t, p.Check())
}

func TestCheckDetectsFreeListCycle(t *testing.T) {
	p, err := NewOverRegion(make([]byte, 4*4), 4)
	require.NoError(t, err)

	p.setLink(0, 1)
	p.setLink(1, 0)
	p.freeHead = 0

	require.ErrorIs(t, p.Check(), ErrCorrupted)
}
