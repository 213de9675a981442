// Package bitlist implements a hierarchical, cascading occupancy bitmap: a
// stack of summary levels over a flat bit array, each level holding one
// bit per 32-bit group of the level below, so that "find a free slot" and "is this
// region entirely taken" both resolve in time proportional to the number
// of levels rather than the number of bits.
//
// The cascade structure and avalanche propagation are ported from
// x_bitlist.cpp's xbitlist; the per-level bit storage itself is handed off
// to github.com/bits-and-blooms/bitset instead of hand-rolled []uint32
// words, since that library already gives popcount-accelerated Set/Clear/
// Test/NextClear/NextSet over a flat bit vector.
package bitlist

import (
	"errors"

	"github.com/bits-and-blooms/bitset"
)

// ErrSizeTooSmall is returned by New when maxbits leaves no room for even a
// single summary level.
var ErrSizeTooSmall = errors.New("bitlist: maxbits must be at least 2")

// List is a cascading occupancy bitmap over maxbits slots.
//
// In non-inverted mode a set bit means "occupied"; in inverted mode a
// clear bit means "occupied" instead (useful when the bitmap's natural
// reset state is all-taken rather than all-free). List is not
// goroutine-safe.
type List struct {
	levels []*bitset.BitSet // levels[0] is the leaf; the last entry is the top summary level.
	invert bool
}

// SizeInDwords estimates, in bytes, the footprint a flat-buffer cascade of
// maxbits slots would need under the original word-packed layout. It is
// kept for callers that still want to budget memory the way
// x_bitlist.cpp's size_in_dwords does; List itself sizes its levels
// through bitset.New and does not consult this value.
func SizeInDwords(maxbits uint32) uint32 {
	var numdwords uint32
	numbits := maxbits
	for numbits > 1 {
		numdwords += (numbits+31)/32 + 2
		numbits = (numbits + 31) >> 5
	}
	return numdwords * 4
}

// New builds a cascade covering maxbits slots. setAll seeds every slot as
// occupied when true, free when false.
func New(maxbits uint32, setAll, invert bool) (*List, error) {
	if maxbits < 2 {
		return nil, ErrSizeTooSmall
	}
	l := &List{invert: invert}
	numbits := maxbits
	for numbits > 1 {
		l.levels = append(l.levels, bitset.New(uint(numbits)))
		numbits = (numbits + 31) >> 5
	}
	l.Reset(setAll)
	return l, nil
}

// Reset seeds every level uniformly: setAll marks every slot (and every
// summary level, which collapses to the same fill value) as occupied;
// !setAll marks everything free. A uniform raw fill is self-consistent
// because a dword of all-occupied leaf bits summarizes to an
// all-occupied summary bit, and likewise for all-free.
func (l *List) Reset(setAll bool) {
	raw := setAll != l.invert
	for _, lvl := range l.levels {
		n := lvl.Len()
		for i := uint(0); i < n; i++ {
			if raw {
				lvl.Set(i)
			} else {
				lvl.Clear(i)
			}
		}
	}
}

func (l *List) occupiedRaw() bool { return !l.invert }

// dwordOccupied reports whether every slot in the 32-wide group starting
// at dwordIndex*32 is occupied. Positions beyond the level's declared
// length are treated as occupied, mirroring the padding bits the original
// forces into the "full" direction so they never block avalanche
// detection on a level's last, partially-used word.
func (l *List) dwordOccupied(lvl *bitset.BitSet, dwordIndex uint32) bool {
	occupiedRaw := l.occupiedRaw()
	base := dwordIndex * 32
	n := uint32(lvl.Len())
	for i := uint32(0); i < 32; i++ {
		pos := base + i
		if pos >= n {
			break
		}
		if lvl.Test(uint(pos)) != occupiedRaw {
			return false
		}
	}
	return true
}

// mutate marks bit as occupied or free, avalanching the change up through
// summary levels only while a dword's full/not-full status actually
// flips — the same short-circuit x_bitlist.cpp's set/clr use.
func (l *List) mutate(bit uint32, occupied bool) {
	idx := bit
	for _, lvl := range l.levels {
		dwordIndex := idx / 32
		before := l.dwordOccupied(lvl, dwordIndex)

		raw := occupied != l.invert
		if lvl.Test(uint(idx)) == raw {
			return
		}
		if raw {
			lvl.Set(uint(idx))
		} else {
			lvl.Clear(uint(idx))
		}

		after := l.dwordOccupied(lvl, dwordIndex)
		if before == after {
			return
		}

		occupied = after
		idx = dwordIndex
	}
}

// Set marks bit as occupied.
func (l *List) Set(bit uint32) { l.mutate(bit, true) }

// Clr marks bit as free.
func (l *List) Clr(bit uint32) { l.mutate(bit, false) }

// IsSet reports whether bit is currently marked occupied.
func (l *List) IsSet(bit uint32) bool {
	raw := l.levels[0].Test(uint(bit))
	return raw != l.invert
}

// IsFull reports whether every slot in the cascade is occupied, checked in
// O(1) against the top summary level rather than scanning every leaf bit.
func (l *List) IsFull() bool {
	if len(l.levels) == 0 {
		return true
	}
	top := l.levels[len(l.levels)-1]
	return l.dwordOccupied(top, 0)
}

// nextFreeInWindow finds the first free slot in lvl's 32-wide group at
// dwordIndex, or reports false if the whole group is occupied (or runs
// past the level's declared length).
func (l *List) nextFreeInWindow(lvl *bitset.BitSet, dwordIndex uint32) (uint32, bool) {
	base := dwordIndex * 32
	n := uint32(lvl.Len())
	freeRaw := l.invert
	for i := uint32(0); i < 32; i++ {
		pos := base + i
		if pos >= n {
			return 0, false
		}
		if lvl.Test(uint(pos)) == freeRaw {
			return pos, true
		}
	}
	return 0, false
}

// Find locates a free slot, descending from the top summary level to the
// leaf so each level only ever scans the single 32-wide group its parent
// already narrowed the search to.
func (l *List) Find() (bit uint32, ok bool) {
	if len(l.levels) == 0 {
		return 0, false
	}
	idx := uint32(0)
	for i := len(l.levels) - 1; i >= 0; i-- {
		pos, found := l.nextFreeInWindow(l.levels[i], idx)
		if !found {
			return 0, false
		}
		idx = pos
	}
	return idx, true
}
