// Package forward implements a monotonic bump allocator: allocation is a
// pointer bump, deallocation is a no-op, and the whole region is returned
// in one shot on Release. It is grounded on x_allocator_forward.cpp's
// x_allocator_forward, which wraps a forward-only bin allocator over a
// region optionally carved out of an upstream façade.
package forward

import (
	"errors"
	"unsafe"

	"github.com/jurgen-kluft/xallocator/alloc"
)

// ErrRegionExhausted is returned by NewFromUpstream when upstream cannot
// supply the requested region. Allocate does not use it: an allocation
// that would run the cursor past the end of the region returns nil, per
// alloc.Allocator's contract.
var ErrRegionExhausted = errors.New("forward: region exhausted")

// Allocator is a single-region bump allocator. It is not goroutine-safe.
type Allocator struct {
	mem      []byte
	base     uintptr
	end      uintptr
	cursor   uintptr
	upstream alloc.Allocator // nil when backed by a caller-supplied slice
}

// New wraps mem as a forward allocator. mem is owned by the caller; Release
// does not attempt to return it anywhere.
func New(mem []byte) *Allocator {
	if len(mem) == 0 {
		return &Allocator{}
	}
	base := uintptr(unsafe.Pointer(&mem[0]))
	return &Allocator{
		mem:    mem,
		base:   base,
		end:    base + uintptr(len(mem)),
		cursor: base,
	}
}

// NewFromUpstream asks upstream for a memsize-byte region (grounded on
// gCreateForwardAllocator, which allocates the forward allocator's
// backing store from the same façade that will later reclaim it) and
// wraps it as a forward allocator. Release returns the region to upstream.
func NewFromUpstream(upstream alloc.Allocator, memsize uintptr) (*Allocator, error) {
	ptr := upstream.Allocate(memsize, unsafe.Alignof(uintptr(0)))
	if ptr == nil {
		return nil, ErrRegionExhausted
	}
	mem := unsafe.Slice((*byte)(ptr), memsize)
	a := New(mem)
	a.upstream = upstream
	return a, nil
}

// Name implements alloc.Allocator.
func (a *Allocator) Name() string { return "forward" }

// Allocate rounds the cursor up to alignment, returns it, and advances the
// cursor by size. It returns nil without mutating state if the advance
// would run past the end of the region.
func (a *Allocator) Allocate(size, alignment uintptr) unsafe.Pointer {
	if size == 0 || a.cursor == 0 {
		return nil
	}
	if alignment == 0 {
		alignment = 1
	}
	aligned := (a.cursor + alignment - 1) &^ (alignment - 1)
	next := aligned + size
	if next > a.end || next < aligned {
		return nil
	}
	a.cursor = next
	return unsafe.Pointer(aligned)
}

// Reallocate never grows or shrinks in place — a forward allocator has no
// notion of the allocation that precedes the cursor being "the last one"
// worth special-casing — so it always falls back to allocate-and-copy,
// following the same-semantics contract Reallocate callers expect.
func (a *Allocator) Reallocate(ptr unsafe.Pointer, size, alignment uintptr) unsafe.Pointer {
	if ptr == nil {
		return a.Allocate(size, alignment)
	}
	if size == 0 {
		a.Deallocate(ptr)
		return nil
	}
	newPtr := a.Allocate(size, alignment)
	if newPtr == nil {
		return nil
	}
	oldSize := a.end - uintptr(ptr)
	if uintptr(size) < oldSize {
		oldSize = size
	}
	dst := unsafe.Slice((*byte)(newPtr), oldSize)
	src := unsafe.Slice((*byte)(ptr), oldSize)
	copy(dst, src)
	return newPtr
}

// Deallocate is a no-op: individual allocations are never reclaimed, only
// the whole region via Release.
func (a *Allocator) Deallocate(unsafe.Pointer) {}

// Release returns the backing region to upstream, if any, and forgets it.
func (a *Allocator) Release() {
	if a.upstream != nil && a.mem != nil {
		a.upstream.Deallocate(unsafe.Pointer(&a.mem[0]))
	}
	a.mem = nil
	a.base, a.end, a.cursor = 0, 0, 0
	a.upstream = nil
}

// Used reports how many bytes of the region have been handed out.
func (a *Allocator) Used() uintptr { return a.cursor - a.base }

// Capacity reports the total size of the region.
func (a *Allocator) Capacity() uintptr { return a.end - a.base }
