package tlsf

import "unsafe"

// Pool is a TLSF heap over a single contiguous caller-supplied region.
//
// Pool itself is placed at the head of that region (mirroring
// create_tlsf's "places the allocator object at the head of mem" contract):
// New casts the first bytes of mem to *Pool, so the bitmaps and free-list
// matrix below live inside the region they manage. Block headers in the
// remainder of the region are manipulated as raw bytes through the
// accessors in block.go rather than through typed Go structs, per the
// boundary-tag design this heap is modeled on: the header owned by one
// block overlaps the payload of its neighbor.
type Pool struct {
	mem      []byte
	base     uintptr
	flBitmap uint32
	slBitmap [flIndexCount]uint32
	blocks   [flIndexCount][slIndexCount]uint32
}

// poolOverhead is the number of bytes of a backing region consumed by the
// Pool struct itself before any block storage begins.
var poolOverhead = uint32(unsafe.Sizeof(Pool{}))

// poolOverheadExternal is the total number of bytes of a backing region
// that never becomes allocatable payload: the Pool struct itself plus the
// size-field overhead of the first block and the sentinel block, matching
// the original tlsf_overhead() == sizeof(pool_t) + 2*block_header_overhead.
var poolOverheadExternal = poolOverhead + 2*blockHeaderOverhead

// New creates a TLSF pool inside mem. mem must be at least ALIGN_SIZE
// aligned and large enough to hold the pool's own bookkeeping plus one
// minimum-sized block; New places the Pool value at the head of mem and
// returns a pointer into mem itself.
func New(mem []byte) (*Pool, error) {
	if uint32(len(mem)) <= poolOverheadExternal {
		return nil, ErrPoolTooSmall
	}

	p := (*Pool)(unsafe.Pointer(&mem[0]))
	p.mem = mem
	p.base = uintptr(unsafe.Pointer(&mem[0]))
	p.flBitmap = 0
	for i := range p.slBitmap {
		p.slBitmap[i] = 0
		for j := range p.blocks[i] {
			p.blocks[i][j] = nullBlock
		}
	}

	firstBlock := p.firstBlock()
	poolBytes := alignDown(uint32(len(mem))-poolOverheadExternal, alignSize)
	if poolBytes < blockSizeMin || poolBytes > blockSizeMax {
		return nil, ErrPoolTooSmall
	}

	p.setBlockSize(firstBlock, poolBytes)
	p.setFree(firstBlock)
	p.setPrevUsed(firstBlock)
	p.blockInsert(firstBlock)

	sentinel := p.blockLinkNext(firstBlock)
	p.setBlockSize(sentinel, 0)
	p.setUsed(sentinel)
	p.setPrevFree(sentinel)

	return p, nil
}

// Name implements alloc.Allocator.
func (p *Pool) Name() string { return "tlsf" }

// Allocate implements alloc.Allocator. alignment <= alignSize is implicit
// (every block payload is alignSize-aligned by construction); larger
// alignments are handled by AllocateAligned.
func (p *Pool) Allocate(size, alignment uintptr) unsafe.Pointer {
	if alignment > alignSize {
		return p.AllocateAligned(size, uint32(alignment))
	}
	adjust := adjustRequestSize(uint32(size), alignSize)
	blk := p.blockLocateFree(adjust)
	return p.blockPrepareUsed(blk, adjust)
}

// AllocateAligned serves a request for an alignment greater than alignSize,
// following x_allocator_tlsf.cpp's tlsf_memalign: the request is inflated
// so that any leading gap between the located block's payload and the
// first aligned address can itself be returned to the heap as a free
// block of at least blockSizeMin.
func (p *Pool) AllocateAligned(size uintptr, alignment uint32) unsafe.Pointer {
	adjust := adjustRequestSize(uint32(size), alignSize)
	if adjust == 0 {
		return nil
	}

	const gapMinimum = blockHeaderFullSize
	sizeWithGap := adjustRequestSize(adjust+alignment+gapMinimum, alignment)

	aligned := adjust
	if alignment > alignSize {
		aligned = sizeWithGap
	}

	blk := p.blockLocateFree(aligned)
	if blk == nullBlock {
		return nil
	}

	ptr := uintptr(p.blockToPtr(blk))
	alignedPtr := alignUpPtr(ptr, uintptr(alignment))
	gap := uint32(alignedPtr - ptr)

	if gap != 0 && gap < gapMinimum {
		gapRemain := gapMinimum - gap
		offset := gapRemain
		if offset < alignment {
			offset = alignment
		}
		nextAligned := alignedPtr + uintptr(offset)
		alignedPtr = alignUpPtr(nextAligned, uintptr(alignment))
		gap = uint32(alignedPtr - ptr)
	}

	if gap != 0 {
		blk = p.blockTrimFreeLeading(blk, gap)
	}

	return p.blockPrepareUsed(blk, adjust)
}

// Deallocate implements alloc.Allocator. A nil ptr is ignored.
func (p *Pool) Deallocate(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	blk := p.blockFromPtr(ptr)
	p.setFree(blk)
	p.setPrevFree(p.blockLinkNext(blk))
	blk = p.blockMergePrev(blk)
	blk = p.blockMergeNext(blk)
	p.blockInsert(blk)
}

// Reallocate implements alloc.Allocator, matching tlsf_realloc's edge
// cases: nil ptr behaves as Allocate, size == 0 behaves as Deallocate, and
// a request that cannot be satisfied leaves the original buffer untouched.
// An alignment greater than 8 is not supported: it returns nil before any
// of those cases are considered, even for a nil ptr or a zero size.
func (p *Pool) Reallocate(ptr unsafe.Pointer, size, alignment uintptr) unsafe.Pointer {
	if alignment > 8 {
		return nil
	}
	if ptr == nil {
		return p.Allocate(size, alignment)
	}
	if size == 0 {
		p.Deallocate(ptr)
		return nil
	}

	blk := p.blockFromPtr(ptr)
	next := p.blockNext(blk)
	curSize := p.blockSize(blk)
	combined := curSize + p.blockSize(next) + blockHeaderOverhead
	adjust := adjustRequestSize(uint32(size), alignSize)

	if adjust > curSize && (!p.blockIsFree(next) || adjust > combined) {
		newPtr := p.Allocate(size, alignment)
		if newPtr == nil {
			return nil
		}
		minSize := curSize
		if uint32(size) < minSize {
			minSize = uint32(size)
		}
		copyBytes(newPtr, ptr, minSize)
		p.Deallocate(ptr)
		return newPtr
	}

	if adjust > curSize {
		blk = p.blockMergeNext(blk)
		p.blockMarkAsUsed(blk)
	}
	p.blockTrimUsed(blk, adjust)
	return ptr
}

// Release implements alloc.Allocator. TLSF has nothing of its own to tear
// down beyond the caller-supplied region; mirroring tlsf_destroy, Release
// simply forgets the region so further use panics instead of corrupting
// memory silently.
func (p *Pool) Release() {
	p.mem = nil
}

// BlockSize returns the usable size of the allocation at ptr, or 0 if ptr
// is nil. Ported from the original's tlsf_block_size, useful for tests and
// callers that want to know how much slack a trim left them.
func (p *Pool) BlockSize(ptr unsafe.Pointer) uint32 {
	if ptr == nil {
		return 0
	}
	return p.blockSize(p.blockFromPtr(ptr))
}

func copyBytes(dst, src unsafe.Pointer, n uint32) {
	d := unsafe.Slice((*byte)(dst), n)
	s := unsafe.Slice((*byte)(src), n)
	copy(d, s)
}
