package alloc_test

import (
	"testing"

	"github.com/jurgen-kluft/xallocator/alloc"
	"github.com/jurgen-kluft/xallocator/forward"
	"github.com/jurgen-kluft/xallocator/indexed"
	"github.com/jurgen-kluft/xallocator/tlsf"
)

// Compile-time and runtime confirmation that every concrete engine
// satisfies the shared façade.
func TestEnginesImplementAllocator(t *testing.T) {
	var engines []alloc.Allocator

	fwd := forward.New(make([]byte, 1024))
	engines = append(engines, fwd)

	pool, err := tlsf.New(make([]byte, 1<<16))
	if err != nil {
		t.Fatal(err)
	}
	engines = append(engines, pool)

	idx, err := indexed.NewOverRegion(make([]byte, 64*16), 64)
	if err != nil {
		t.Fatal(err)
	}
	engines = append(engines, idx)

	for _, e := range engines {
		if e.Name() == "" {
			t.Errorf("engine returned empty Name()")
		}
		ptr := e.Allocate(16, 4)
		if ptr == nil {
			t.Errorf("%s: Allocate(16,4) returned nil on a fresh pool", e.Name())
			continue
		}
		e.Deallocate(ptr)
		e.Release()
	}
}
