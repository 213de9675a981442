package tlsf

import "github.com/jurgen-kluft/xallocator/bitscan"

// alignUp rounds x up to the nearest multiple of align, a power of two.
func alignUp(x, align uint32) uint32 { return (x + align - 1) &^ (align - 1) }

// alignDown rounds x down to the nearest multiple of align, a power of two.
func alignDown(x, align uint32) uint32 { return x &^ (align - 1) }

func alignUpPtr(x, align uintptr) uintptr { return (x + align - 1) &^ (align - 1) }

// adjustRequestSize aligns size up to alignSize and enforces blockSizeMin,
// rejecting zero or oversize requests with 0 (the canonical
// adjust_request_size returns 0 for exactly those cases, which callers
// funnel to blockLocateFree's "no suitable block" path).
func adjustRequestSize(size, align uint32) uint32 {
	if size == 0 || size >= blockSizeMax {
		return 0
	}
	aligned := alignUp(size, align)
	if aligned < blockSizeMin {
		return blockSizeMin
	}
	return aligned
}

// mappingInsert computes the (first-level, second-level) size class a
// block of the given size belongs to when it is being filed as free.
func mappingInsert(size uint32) (fl, sl uint32) {
	if size < smallBlockSize {
		return 0, size / (smallBlockSize / slIndexCount)
	}
	f := uint32(bitscan.Fls(size))
	sl = (size >> (f - slIndexCountLog2)) ^ (1 << slIndexCountLog2)
	fl = f - (flIndexShift - 1)
	return fl, sl
}

// mappingSearch rounds size up to the next size class boundary before
// mapping it, so the returned class is guaranteed to contain only blocks
// at least as large as size — making good-fit lookup O(1) with no
// in-class scan required.
func mappingSearch(size uint32) (fl, sl uint32) {
	if size >= (1 << slIndexCountLog2) {
		round := uint32(1<<(uint32(bitscan.Fls(size))-slIndexCountLog2)) - 1
		size += round
	}
	return mappingInsert(size)
}

// searchSuitableBlock implements TLSF's good-fit lookup: find the lowest
// non-empty second-level slot at or above sl within fl's bitmap, or, if
// none exists, the lowest non-empty first-level class above fl.
func (p *Pool) searchSuitableBlock(fl, sl uint32) (blk, rfl, rsl uint32, ok bool) {
	slMap := p.slBitmap[fl] & (^uint32(0) << sl)
	if slMap == 0 {
		flMap := p.flBitmap & (^uint32(0) << (fl + 1))
		if flMap == 0 {
			return 0, 0, 0, false
		}
		fl = uint32(bitscan.Ffs(flMap))
		slMap = p.slBitmap[fl]
	}
	sl = uint32(bitscan.Ffs(slMap))
	return p.blocks[fl][sl], fl, sl, true
}

// blockLocateFree finds and unlinks a free block of at least size bytes,
// or returns nullBlock if the heap cannot satisfy the request.
func (p *Pool) blockLocateFree(size uint32) uint32 {
	if size == 0 {
		return nullBlock
	}
	fl, sl := mappingSearch(size)
	blk, fl, sl, ok := p.searchSuitableBlock(fl, sl)
	if !ok {
		return nullBlock
	}
	p.removeFreeBlock(blk, fl, sl)
	return blk
}
