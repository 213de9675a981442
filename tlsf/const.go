// Package tlsf implements a Two-Level Segregated Fit general-purpose heap
// over a single caller-supplied region of memory.
//
// The block layout and free-list bookkeeping follow the canonical TLSF
// whitepaper implementation (as ported by jurgen-kluft/xallocator's
// x_allocator_tlsf.cpp), while the Go shape — unsafe.Pointer-based block
// headers over a raw []byte, a façade type with Allocate/Reallocate/
// Deallocate/Release — follows warawara28/tlsf-go's TLSFArena.
//
// IMPORTANT: Pool is NOT goroutine-safe. Callers sharing a Pool across
// goroutines must provide their own synchronization.
package tlsf

import "errors"

const (
	alignSizeLog2 = 2
	// alignSize is the alignment every block boundary and every address
	// this heap returns without an explicit alignment request honors.
	alignSize = 1 << alignSizeLog2

	slIndexCountLog2 = 5
	// slIndexCount is the number of second-level (linear) subdivisions
	// within each first-level size class.
	slIndexCount = 1 << slIndexCountLog2

	flIndexMax = 30
	// flIndexShift is the bit position above which first-level classes
	// start; below it, all sizes fall into first-level class 0.
	flIndexShift = slIndexCountLog2 + alignSizeLog2 // 7
	// flIndexCount is the number of first-level size classes.
	flIndexCount = flIndexMax - flIndexShift + 1 // 24

	// smallBlockSize is the threshold below which blocks are linearly
	// subdivided into slIndexCount classes of alignSize each, instead of
	// being mapped logarithmically.
	smallBlockSize = 1 << flIndexShift // 128

	// blockHeaderOverhead is the number of bytes of a used block charged
	// against the caller's request: just the size field. The
	// prev_phys_block word lives inside the previous block's own declared
	// size and is only read when that neighbor is free.
	blockHeaderOverhead = 4

	// blockStartOffset is the byte offset from the start of a block's
	// boundary tag to the payload pointer callers receive.
	blockStartOffset = 8

	// blockHeaderFullSize is the nominal size of a free block's header:
	// prev_phys_block, size, next_free, prev_free, 4 bytes each.
	blockHeaderFullSize = 16

	// blockSizeMin is the smallest size a free block may declare: room for
	// next_free and prev_free, plus the 4 bytes every block leaves spare
	// for its right neighbor's prev_phys_block word.
	blockSizeMin = blockHeaderFullSize - 4

	// blockSizeMax is the largest size a single block may declare.
	blockSizeMax = 1 << flIndexMax

	// nullBlock marks an empty free-list head/link. It stands in for the
	// canonical implementation's block_null sentinel node: rather than an
	// addressable dummy block whose next/prev point to itself, absent
	// links are represented with this explicit out-of-band offset and
	// checked for directly. See DESIGN.md for the rationale.
	nullBlock uint32 = 0xffffffff
)

const (
	blockFreeBit     uint32 = 1 << 0
	blockPrevFreeBit uint32 = 1 << 1
	blockStatusMask  uint32 = blockFreeBit | blockPrevFreeBit
)

// ErrPoolTooSmall is returned by New when the supplied region cannot hold
// the pool's own bookkeeping plus at least one minimum-sized block.
var ErrPoolTooSmall = errors.New("tlsf: backing region too small")
