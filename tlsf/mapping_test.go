package tlsf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdjustRequestSizeEnforcesMinimum(t *testing.T) {
	require.Equal(t, uint32(0), adjustRequestSize(0, alignSize))
	require.Equal(t, uint32(blockSizeMin), adjustRequestSize(1, alignSize))
	require.Equal(t, uint32(0), adjustRequestSize(blockSizeMax, alignSize))
}

func TestMappingInsertSmallBlockIsLinear(t *testing.T) {
	fl, sl := mappingInsert(0)
	require.Equal(t, uint32(0), fl)
	require.Equal(t, uint32(0), sl)

	fl, sl = mappingInsert(smallBlockSize - 4)
	require.Equal(t, uint32(0), fl)
	require.Equal(t, uint32(31), sl)
}

func TestMappingSearchRoundsUpToClassBoundary(t *testing.T) {
	insertFl, insertSl := mappingInsert(200)
	searchFl, searchSl := mappingSearch(200)
	require.GreaterOrEqual(t, searchFl, insertFl)
	if searchFl == insertFl {
		require.GreaterOrEqual(t, searchSl, insertSl)
	}
}

func TestSearchSuitableBlockFallsBackToHigherFl(t *testing.T) {
	mem := make([]byte, 1<<16)
	p, err := New(mem)
	require.NoError(t, err)

	fl, sl := mappingInsert(p.blockSize(p.firstBlock()))
	blk, rfl, rsl, ok := p.searchSuitableBlock(0, 0)
	require.True(t, ok)
	require.Equal(t, fl, rfl)
	require.Equal(t, sl, rsl)
	require.Equal(t, p.firstBlock(), blk)
}
