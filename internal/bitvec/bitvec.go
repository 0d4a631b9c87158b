// Package bitvec provides the packed bit vector backing sieve masks.
package bitvec

import "math/bits"

const wordBits = 64

// Vector is a fixed-length packed bit vector. New vectors start all-zero;
// sieve code reads bit 0 as prime and bit 1 as composite.
//
// The methods perform no bounds checking beyond the backing slice's own:
// indexes must be below Len.
type Vector struct {
	words []uint64
	nbits uint64
}

// New returns a Vector of nbits bits, all zero.
func New(nbits uint64) Vector {
	return Vector{
		words: make([]uint64, (nbits+wordBits-1)/wordBits),
		nbits: nbits,
	}
}

// Len returns the number of bits in the vector.
func (v Vector) Len() uint64 { return v.nbits }

// Words exposes the backing word array. Bit i lives in Words()[i/64] at
// position i%64. Concurrent writers must own disjoint word ranges.
func (v Vector) Words() []uint64 { return v.words }

// Test reports whether bit i is set.
func (v Vector) Test(i uint64) bool {
	return v.words[i/wordBits]&(1<<(i%wordBits)) != 0
}

// Set sets bit i.
func (v Vector) Set(i uint64) {
	v.words[i/wordBits] |= 1 << (i % wordBits)
}

// Clear clears bit i.
func (v Vector) Clear(i uint64) {
	v.words[i/wordBits] &^= 1 << (i % wordBits)
}

// NextClear returns the index of the first zero bit at or after from. The
// scan skips whole all-ones words, so dense regions cost one comparison per
// 64 bits. Returns false when every bit in [from, Len()) is set, or when
// from is at or past Len().
func (v Vector) NextClear(from uint64) (uint64, bool) {
	if from >= v.nbits {
		return 0, false
	}
	wi := from / wordBits
	// Treat bits below from as set so they cannot match.
	w := v.words[wi] | (1<<(from%wordBits) - 1)
	for {
		if w != ^uint64(0) {
			i := wi*wordBits + uint64(bits.TrailingZeros64(^w))
			if i >= v.nbits {
				return 0, false
			}
			return i, true
		}
		wi++
		if wi == uint64(len(v.words)) {
			return 0, false
		}
		w = v.words[wi]
	}
}
