package tlsf

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrHeapCorrupted wraps the first integrity violation CheckHeap finds.
var ErrHeapCorrupted = errors.New("tlsf: heap corrupted")

// firstBlock returns the offset of the first physical block, positioned so
// its prev_phys_block word falls inside the Pool struct itself.
func (p *Pool) firstBlock() uint32 { return poolOverhead - blockHeaderOverhead }

// Walk visits every physical block from the first block to (but not
// including) the sentinel, in address order, reporting its payload
// pointer, declared size, and used/free status. Ported from
// tlsf_walk_heap with a pluggable visitor in place of a C function
// pointer plus opaque user data.
func (p *Pool) Walk(visit func(ptr unsafe.Pointer, size uint32, used bool)) {
	blk := p.firstBlock()
	for !p.blockIsLast(blk) {
		visit(p.blockToPtr(blk), p.blockSize(blk), !p.blockIsFree(blk))
		blk = p.blockNext(blk)
	}
}

// CheckHeap walks the physical block chain verifying PREV_FREE agreement
// between neighbors, then walks every (fl, sl) free list verifying it
// against the bitmaps and each member block's own flags and size class.
// It returns the first inconsistency found, wrapped in ErrHeapCorrupted,
// or nil if the heap is internally consistent. Ported from
// tlsf_check_heap's integrity_walker plus its free-list/bitmap pass.
func (p *Pool) CheckHeap() error {
	prevFree := false
	blk := p.firstBlock()
	for !p.blockIsLast(blk) {
		if p.blockIsPrevFree(blk) != prevFree {
			return fmt.Errorf("%w: block at offset %d disagrees with predecessor's free status", ErrHeapCorrupted, blk)
		}
		prevFree = p.blockIsFree(blk)
		blk = p.blockNext(blk)
	}

	for fl := uint32(0); fl < flIndexCount; fl++ {
		flSet := p.flBitmap&(1<<fl) != 0
		if flSet && p.slBitmap[fl] == 0 {
			return fmt.Errorf("%w: fl bitmap set for fl %d but its sl bitmap is empty", ErrHeapCorrupted, fl)
		}
		for sl := uint32(0); sl < slIndexCount; sl++ {
			slSet := p.slBitmap[fl]&(1<<sl) != 0
			head := p.blocks[fl][sl]

			if !flSet && slSet {
				return fmt.Errorf("%w: sl bitmap set for fl %d sl %d without fl bit", ErrHeapCorrupted, fl, sl)
			}
			if !slSet {
				if head != nullBlock {
					return fmt.Errorf("%w: fl %d sl %d empty but has a list head", ErrHeapCorrupted, fl, sl)
				}
				continue
			}
			if head == nullBlock {
				return fmt.Errorf("%w: fl %d sl %d marked non-empty but has no list head", ErrHeapCorrupted, fl, sl)
			}

			for cur := head; cur != nullBlock; cur = p.nextFree(cur) {
				if !p.blockIsFree(cur) {
					return fmt.Errorf("%w: block at offset %d is on a free list but not marked free", ErrHeapCorrupted, cur)
				}
				if p.blockIsPrevFree(cur) {
					return fmt.Errorf("%w: block at offset %d should have coalesced with its predecessor", ErrHeapCorrupted, cur)
				}
				if p.blockIsFree(p.blockNext(cur)) {
					return fmt.Errorf("%w: block at offset %d should have coalesced with its successor", ErrHeapCorrupted, cur)
				}
				if p.blockSize(cur) < blockSizeMin {
					return fmt.Errorf("%w: block at offset %d is below the minimum block size", ErrHeapCorrupted, cur)
				}
				gotFl, gotSl := mappingInsert(p.blockSize(cur))
				if gotFl != fl || gotSl != sl {
					return fmt.Errorf("%w: block at offset %d is filed under (%d,%d) but belongs in (%d,%d)", ErrHeapCorrupted, cur, fl, sl, gotFl, gotSl)
				}
			}
		}
	}
	return nil
}
