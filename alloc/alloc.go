// Package alloc defines the capability interface shared by every engine in
// this module (tlsf, forward, indexed). It plays the role the Arena
// interface plays in warawara28/tlsf-go, widened to the five-method façade
// spec'd for this family: a named allocator that can allocate, reallocate,
// deallocate and release its backing region.
//
// None of the engines are goroutine-safe. Callers sharing an Allocator
// across goroutines must serialize access themselves.
package alloc

import "unsafe"

// Allocator is implemented by every concrete engine (tlsf.Pool,
// forward.Allocator, indexed.Pool). Addresses returned and accepted are
// opaque to callers; only the engine that produced an address may be asked
// to reallocate or deallocate it.
type Allocator interface {
	// Name identifies the concrete engine, for logging and diagnostics.
	Name() string

	// Allocate returns size writable bytes aligned to alignment, or nil if
	// the request cannot be satisfied. alignment must be a power of two;
	// size == 0 always returns nil.
	Allocate(size, alignment uintptr) unsafe.Pointer

	// Reallocate resizes the allocation at ptr to size bytes aligned to
	// alignment. ptr == nil behaves like Allocate; size == 0 behaves like
	// Deallocate. On failure the original allocation, if any, is left
	// untouched and nil is returned.
	Reallocate(ptr unsafe.Pointer, size, alignment uintptr) unsafe.Pointer

	// Deallocate returns ptr's allocation to the engine. A nil ptr is
	// ignored.
	Deallocate(ptr unsafe.Pointer)

	// Release tears the engine down, returning its backing region (and any
	// memory the engine itself occupies) to whatever supplied it.
	Release()
}
