// Package indexed implements a fixed-slot pool: N equal-size slots
// addressable by a compact uint32 index, threading an intrusive singly
// linked free list through the free slots themselves. Grounded on
// x_idx_allocator_array.cpp's x_indexed_array_allocator.
//
// Unlike the C++ original, which only asserts informally that a slot
// never appears on the free list twice, each live slot carries an
// out-of-band xxhash64 integrity tag (keyed on its own index) that Check
// recomputes to catch a corrupted or double-linked free list.
package indexed

import (
	"encoding/binary"
	"errors"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/jurgen-kluft/xallocator/alloc"
)

// NilIndex marks the end of the free list and an out-of-range lookup.
const NilIndex uint32 = 0xffffffff

var (
	// ErrInvalidSlotSize is returned when slotSize is zero or not a
	// multiple of 4 — the free list stores a uint32 link in every slot.
	ErrInvalidSlotSize = errors.New("indexed: slot size must be a non-zero multiple of 4")
	// ErrRegionTooSmall is returned when a region holds zero whole slots.
	ErrRegionTooSmall = errors.New("indexed: region too small for any slots")
	// ErrPoolExhausted is returned by NewFromUpstream when upstream cannot
	// supply the slot array. IAllocate reports a full pool as
	// (NilIndex, nil) instead.
	ErrPoolExhausted = errors.New("indexed: pool exhausted")
	// ErrOutOfRange is returned by operations given an index past the end
	// of the pool.
	ErrOutOfRange = errors.New("indexed: index out of range")
	// ErrCorrupted is returned by IDeallocate/Check when a slot's
	// integrity tag does not match its index, or the free list revisits a
	// slot.
	ErrCorrupted = errors.New("indexed: integrity check failed")
)

// Pool is a fixed-slot indexed allocator. It is not goroutine-safe.
type Pool struct {
	mem        []byte
	base       uintptr
	slotSize   uint32
	count      uint32
	freeHead   uint32
	allocCount uint32
	tags       []uint64
	upstream   alloc.Allocator
}

// NewOverRegion carves mem into count = len(mem)/slotSize fixed slots.
// Trailing bytes that don't fill a whole slot are left unused.
func NewOverRegion(mem []byte, slotSize uint32) (*Pool, error) {
	if slotSize == 0 || slotSize%4 != 0 {
		return nil, ErrInvalidSlotSize
	}
	count := uint32(len(mem)) / slotSize
	if count == 0 {
		return nil, ErrRegionTooSmall
	}
	p := &Pool{
		mem:      mem,
		base:     uintptr(unsafe.Pointer(&mem[0])),
		slotSize: slotSize,
		count:    count,
		tags:     make([]uint64, count),
	}
	p.initFreelist()
	return p, nil
}

// NewFromUpstream asks upstream for slotSize*count bytes, aligned to
// alignment, and wraps the result as an indexed pool, mirroring
// gCreateArrayIdxAllocator's allocator-backed constructor. Release returns
// the region to upstream.
func NewFromUpstream(upstream alloc.Allocator, slotSize, alignment, count uint32) (*Pool, error) {
	if slotSize == 0 || slotSize%4 != 0 {
		return nil, ErrInvalidSlotSize
	}
	if count == 0 {
		return nil, ErrRegionTooSmall
	}
	ptr := upstream.Allocate(uintptr(slotSize)*uintptr(count), uintptr(alignment))
	if ptr == nil {
		return nil, ErrPoolExhausted
	}
	mem := unsafe.Slice((*byte)(ptr), slotSize*count)
	p, err := NewOverRegion(mem, slotSize)
	if err != nil {
		upstream.Deallocate(ptr)
		return nil, err
	}
	p.upstream = upstream
	return p, nil
}

func (p *Pool) initFreelist() {
	for i := uint32(0); i < p.count-1; i++ {
		p.setLink(i, i+1)
	}
	p.setLink(p.count-1, NilIndex)
	p.freeHead = 0
}

func (p *Pool) setLink(idx, next uint32) {
	binary.LittleEndian.PutUint32(p.mem[idx*p.slotSize:], next)
}

func (p *Pool) link(idx uint32) uint32 {
	return binary.LittleEndian.Uint32(p.mem[idx*p.slotSize:])
}

func (p *Pool) tag(idx uint32) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], idx)
	return xxhash.Sum64(buf[:])
}

// Name implements alloc.Allocator.
func (p *Pool) Name() string { return "indexed" }

// IAllocate pops the free-list head and returns both its index and
// address, or (NilIndex, nil) if the pool is exhausted.
func (p *Pool) IAllocate() (uint32, unsafe.Pointer) {
	if p.freeHead == NilIndex {
		return NilIndex, nil
	}
	idx := p.freeHead
	p.freeHead = p.link(idx)
	p.allocCount++
	p.tags[idx] = p.tag(idx)
	return idx, p.ToPtr(idx)
}

// IDeallocate returns idx to the free list, verifying its integrity tag
// first so a double-free or an already-corrupted slot is reported instead
// of silently re-threading the list.
func (p *Pool) IDeallocate(idx uint32) error {
	if idx >= p.count {
		return ErrOutOfRange
	}
	if p.tags[idx] != p.tag(idx) {
		return ErrCorrupted
	}
	p.tags[idx] = 0
	p.setLink(idx, p.freeHead)
	p.freeHead = idx
	p.allocCount--
	return nil
}

// ToPtr converts a slot index to its address, or nil if idx is out of
// range.
func (p *Pool) ToPtr(idx uint32) unsafe.Pointer {
	if idx == NilIndex || idx >= p.count {
		return nil
	}
	return unsafe.Pointer(&p.mem[idx*p.slotSize])
}

// ToIdx converts an address back to a slot index, or NilIndex if ptr does
// not fall within this pool's region.
func (p *Pool) ToIdx(ptr unsafe.Pointer) uint32 {
	addr := uintptr(ptr)
	if addr < p.base || addr >= p.base+uintptr(len(p.mem)) {
		return NilIndex
	}
	return uint32((addr - p.base) / uintptr(p.slotSize))
}

// Allocate implements alloc.Allocator. alignment is ignored: slot idx
// starts at base + idx*slotSize, so its alignment is whatever that
// address gives.
func (p *Pool) Allocate(size, alignment uintptr) unsafe.Pointer {
	if size > uintptr(p.slotSize) {
		return nil
	}
	_, ptr := p.IAllocate()
	return ptr
}

// Reallocate implements alloc.Allocator. Slots are fixed-size, so a
// request that fits the existing slot is a no-op; nothing is copied.
func (p *Pool) Reallocate(ptr unsafe.Pointer, size, alignment uintptr) unsafe.Pointer {
	if ptr == nil {
		return p.Allocate(size, alignment)
	}
	if size == 0 {
		p.Deallocate(ptr)
		return nil
	}
	if size > uintptr(p.slotSize) {
		return nil
	}
	return ptr
}

// Deallocate implements alloc.Allocator. A nil ptr, or one outside this
// pool's region, is ignored.
func (p *Pool) Deallocate(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	idx := p.ToIdx(ptr)
	if idx == NilIndex {
		return
	}
	_ = p.IDeallocate(idx)
}

// Release returns the backing region to upstream, if any, and forgets it.
func (p *Pool) Release() {
	if p.upstream != nil && p.mem != nil {
		p.upstream.Deallocate(unsafe.Pointer(&p.mem[0]))
	}
	p.mem = nil
	p.tags = nil
	p.upstream = nil
}

// Len reports the number of slots currently allocated.
func (p *Pool) Len() uint32 { return p.allocCount }

// Cap reports the total number of slots in the pool.
func (p *Pool) Cap() uint32 { return p.count }

// Check walks the free list looking for a slot visited twice (a corrupted
// or accidentally-merged free list), then verifies every slot not on the
// free list still carries the integrity tag IAllocate gave it.
func (p *Pool) Check() error {
	seen := make([]bool, p.count)
	visited := uint32(0)
	for cur := p.freeHead; cur != NilIndex; cur = p.link(cur) {
		if cur >= p.count {
			return ErrOutOfRange
		}
		if seen[cur] {
			return ErrCorrupted
		}
		seen[cur] = true
		visited++
		if visited > p.count {
			return ErrCorrupted
		}
	}
	for idx := uint32(0); idx < p.count; idx++ {
		if seen[idx] {
			continue
		}
		if p.tags[idx] != p.tag(idx) {
			return ErrCorrupted
		}
	}
	return nil
}
