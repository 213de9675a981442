package tlsf

import "unsafe"

// Every block, free or used, is a boundary tag living directly in p.mem at
// byte offset blk (relative to &p.mem[0]):
//
//	blk+0 : prev_phys_block (uint32 offset) — valid only if this block's
//	        PREV_FREE flag is set; otherwise these bytes belong to the
//	        previous block's payload.
//	blk+4 : size (uint32) — block size in the high bits, FREE/PREV_FREE
//	        flags in the low two bits.
//	blk+8 : payload start == the pointer handed to callers. While the
//	        block is free, the first 8 payload bytes instead hold the
//	        doubly-linked free-list pointers (next_free, prev_free).
//
// This mirrors x_allocator_tlsf.cpp's block_header_t exactly, except
// prev_phys_block/size/next_free/prev_free are read and written as raw
// words at fixed offsets instead of through a typed struct — the "raw
// bytes arena with explicit offset accessors" spec.md's design notes call
// for, since a Go struct field can't legitimately alias a neighboring
// block's payload the way the C field does.

func (p *Pool) u32(off uint32) uint32 {
	return *(*uint32)(unsafe.Pointer(&p.mem[off]))
}

func (p *Pool) setU32(off, val uint32) {
	*(*uint32)(unsafe.Pointer(&p.mem[off])) = val
}

func (p *Pool) blockSize(blk uint32) uint32 {
	return p.u32(blk+4) &^ blockStatusMask
}

func (p *Pool) setBlockSize(blk, size uint32) {
	old := p.u32(blk + 4)
	p.setU32(blk+4, size|(old&blockStatusMask))
}

func (p *Pool) blockIsLast(blk uint32) bool { return p.blockSize(blk) == 0 }

func (p *Pool) blockIsFree(blk uint32) bool { return p.u32(blk+4)&blockFreeBit != 0 }
func (p *Pool) setFree(blk uint32)          { p.setU32(blk+4, p.u32(blk+4)|blockFreeBit) }
func (p *Pool) setUsed(blk uint32)          { p.setU32(blk+4, p.u32(blk+4)&^blockFreeBit) }

func (p *Pool) blockIsPrevFree(blk uint32) bool { return p.u32(blk+4)&blockPrevFreeBit != 0 }
func (p *Pool) setPrevFree(blk uint32)          { p.setU32(blk+4, p.u32(blk+4)|blockPrevFreeBit) }
func (p *Pool) setPrevUsed(blk uint32)          { p.setU32(blk+4, p.u32(blk+4)&^blockPrevFreeBit) }

func (p *Pool) prevPhys(blk uint32) uint32    { return p.u32(blk) }
func (p *Pool) setPrevPhys(blk, val uint32)   { p.setU32(blk, val) }
func (p *Pool) nextFree(blk uint32) uint32    { return p.u32(blk + 8) }
func (p *Pool) setNextFree(blk, val uint32)   { p.setU32(blk+8, val) }
func (p *Pool) prevFree(blk uint32) uint32    { return p.u32(blk + 12) }
func (p *Pool) setPrevFreeLnk(blk, val uint32) { p.setU32(blk+12, val) }

func (p *Pool) blockToPtr(blk uint32) unsafe.Pointer {
	return unsafe.Pointer(&p.mem[blk+blockStartOffset])
}

func (p *Pool) blockFromPtr(ptr unsafe.Pointer) uint32 {
	return uint32(uintptr(ptr)-p.base) - blockStartOffset
}

// blockNext returns the physical block immediately following blk. blk must
// not be the sentinel (callers check blockIsLast first).
func (p *Pool) blockNext(blk uint32) uint32 {
	return blk + blockHeaderOverhead + p.blockSize(blk)
}

// blockLinkNext points the following physical block's prev_phys_block back
// at blk, and returns that neighbor's offset.
func (p *Pool) blockLinkNext(blk uint32) uint32 {
	next := p.blockNext(blk)
	p.setPrevPhys(next, blk)
	return next
}

func (p *Pool) blockMarkAsFree(blk uint32) {
	next := p.blockLinkNext(blk)
	p.setPrevFree(next)
	p.setFree(blk)
}

func (p *Pool) blockMarkAsUsed(blk uint32) {
	next := p.blockNext(blk)
	p.setPrevUsed(next)
	p.setUsed(blk)
}

func (p *Pool) blockCanSplit(blk, size uint32) bool {
	return p.blockSize(blk) >= size+blockHeaderFullSize
}

// blockSplit carves size bytes off the front of blk and returns the
// (still-unlinked) remainder block, sized and flagged free but not yet
// inserted into any free list.
func (p *Pool) blockSplit(blk, size uint32) uint32 {
	remaining := blk + blockHeaderOverhead + size
	remainSize := p.blockSize(blk) - size - blockHeaderOverhead
	p.setU32(remaining+4, 0)
	p.setBlockSize(remaining, remainSize)
	p.setBlockSize(blk, size)
	p.blockMarkAsFree(remaining)
	return remaining
}

// blockAbsorb merges blk into the immediately preceding free block prev,
// whose flags are left untouched.
func (p *Pool) blockAbsorb(prev, blk uint32) uint32 {
	p.setBlockSize(prev, p.blockSize(prev)+p.blockSize(blk)+blockHeaderOverhead)
	p.blockLinkNext(prev)
	return prev
}

func (p *Pool) blockMergePrev(blk uint32) uint32 {
	if p.blockIsPrevFree(blk) {
		prev := p.prevPhys(blk)
		p.blockRemove(prev)
		blk = p.blockAbsorb(prev, blk)
	}
	return blk
}

func (p *Pool) blockMergeNext(blk uint32) uint32 {
	next := p.blockNext(blk)
	if p.blockIsFree(next) {
		p.blockRemove(next)
		blk = p.blockAbsorb(blk, next)
	}
	return blk
}

// blockTrimFree returns any trailing space of a free block past size bytes
// back to the pool as a new free block.
func (p *Pool) blockTrimFree(blk, size uint32) {
	if p.blockCanSplit(blk, size) {
		remaining := p.blockSplit(blk, size)
		p.blockLinkNext(blk)
		p.setPrevFree(remaining)
		p.blockInsert(remaining)
	}
}

// blockTrimUsed returns trailing space of a used block past size bytes,
// coalescing with the next physical block first if it is free.
func (p *Pool) blockTrimUsed(blk, size uint32) {
	if p.blockCanSplit(blk, size) {
		remaining := p.blockSplit(blk, size)
		p.setPrevUsed(remaining)
		remaining = p.blockMergeNext(remaining)
		p.blockInsert(remaining)
	}
}

// blockTrimFreeLeading splits a leading gap of size bytes off the front of
// a free block and files it, returning the (now second) block that holds
// the caller's requested alignment.
func (p *Pool) blockTrimFreeLeading(blk, size uint32) uint32 {
	remaining := blk
	if p.blockCanSplit(blk, size) {
		remaining = p.blockSplit(blk, size-blockHeaderOverhead)
		p.setPrevFree(remaining)
		p.blockLinkNext(blk)
		p.blockInsert(blk)
	}
	return remaining
}

// blockPrepareUsed trims blk down to size, marks it used and returns the
// payload pointer, or nil if blk is nullBlock.
func (p *Pool) blockPrepareUsed(blk, size uint32) unsafe.Pointer {
	if blk == nullBlock {
		return nil
	}
	p.blockTrimFree(blk, size)
	p.blockMarkAsUsed(blk)
	return p.blockToPtr(blk)
}

func (p *Pool) insertFreeBlock(blk, fl, sl uint32) {
	current := p.blocks[fl][sl]
	p.setNextFree(blk, current)
	p.setPrevFreeLnk(blk, nullBlock)
	if current != nullBlock {
		p.setPrevFreeLnk(current, blk)
	}
	p.blocks[fl][sl] = blk
	p.flBitmap |= 1 << fl
	p.slBitmap[fl] |= 1 << sl
}

func (p *Pool) removeFreeBlock(blk, fl, sl uint32) {
	prev := p.prevFree(blk)
	next := p.nextFree(blk)
	if next != nullBlock {
		p.setPrevFreeLnk(next, prev)
	}
	if prev != nullBlock {
		p.setNextFree(prev, next)
	}
	if p.blocks[fl][sl] == blk {
		p.blocks[fl][sl] = next
		if next == nullBlock {
			p.slBitmap[fl] &^= 1 << sl
			if p.slBitmap[fl] == 0 {
				p.flBitmap &^= 1 << fl
			}
		}
	}
}

func (p *Pool) blockRemove(blk uint32) {
	fl, sl := mappingInsert(p.blockSize(blk))
	p.removeFreeBlock(blk, fl, sl)
}

func (p *Pool) blockInsert(blk uint32) {
	fl, sl := mappingInsert(p.blockSize(blk))
	p.insertFreeBlock(blk, fl, sl)
}
