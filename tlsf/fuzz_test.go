package tlsf

import (
	"testing"
	"unsafe"
)

// FuzzAllocateDeallocate drives a randomized sequence of allocate/free
// operations through a single pool and asserts CheckHeap stays clean
// throughout — the property spec.md calls for an integrity walker to make
// fuzzable. ops is consumed four bytes at a time: [op, sizeLo, sizeHi, slot].
func FuzzAllocateDeallocate(f *testing.F) {
	f.Add([]byte{0, 32, 0, 1, 1, 64, 0, 2, 2, 0, 0, 1})
	f.Add([]byte{0, 255, 255, 0, 2, 0, 0, 0})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, ops []byte) {
		mem := make([]byte, 1<<16)
		p, err := New(mem)
		if err != nil {
			t.Skip()
		}

		const slots = 64
		live := make([]unsafe.Pointer, slots)

		for i := 0; i+3 < len(ops); i += 4 {
			op := ops[i]
			size := uint16(ops[i+1]) | uint16(ops[i+2])<<8
			slot := int(ops[i+3]) % slots

			switch op % 3 {
			case 0, 1:
				ptr := p.Allocate(uintptr(size), 4)
				if ptr != nil {
					live[slot] = ptr
				}
			case 2:
				p.Deallocate(live[slot])
				live[slot] = nil
			}

			if err := p.CheckHeap(); err != nil {
				t.Fatalf("heap corrupted after op %d: %v", i/4, err)
			}
		}
	})
}
