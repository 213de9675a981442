// Package bitscan provides the find-first-set and find-last-set primitives
// that the TLSF heap and the hierarchical bitmap build their O(1) class
// lookups on top of.
//
// The lookup table and shift ladder mirror the approach used by
// warawara28/tlsf-go's msb/lsb helpers, generalized to return -1 on a zero
// word (matching the tlsf_ffs/tlsf_fls convention of the original TLSF
// implementation) instead of an unspecified value.
package bitscan

// highBitTable[i] is the index of the highest set bit of i, for i in [0,256).
// highBitTable[0] is -1 by convention; ffs/fls never index it with a word
// that reduces to zero without checking first.
var highBitTable = [256]int8{
	-1, 0, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 3, 3,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
}

// Fls returns the zero-based index of the most significant set bit of word,
// or -1 if word is zero.
func Fls(word uint32) int {
	if word == 0 {
		return -1
	}
	switch {
	case word&0xff000000 != 0:
		return int(highBitTable[word>>24]) + 24
	case word&0xff0000 != 0:
		return int(highBitTable[word>>16]) + 16
	case word&0xff00 != 0:
		return int(highBitTable[word>>8]) + 8
	default:
		return int(highBitTable[word])
	}
}

// Ffs returns the zero-based index of the least significant set bit of
// word, or -1 if word is zero. It is implemented in terms of Fls applied to
// the isolated lowest set bit, the same reduction the canonical TLSF
// whitepaper implementation uses.
func Ffs(word uint32) int {
	if word == 0 {
		return -1
	}
	return Fls(word & (-word))
}
