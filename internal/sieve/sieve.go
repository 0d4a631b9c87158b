// Package sieve implements the base prime table and the parallel segmented
// sieve the engine is built on.
package sieve

import (
	"math"
	"runtime"
	"sync"

	"github.com/tamirms/primestream/internal/bitvec"
)

const wordBits = 64

// Chunk sizing for parallel marking. Chunks are word-aligned so workers own
// disjoint words and need no synchronization; oversubscribing chunks relative
// to workers evens out the uneven marking cost across a segment.
const (
	minChunkWords   = 512
	chunksPerWorker = 4
)

// Bit patterns marking every even value in a word, selected by the parity of
// the value the word's first bit represents.
const (
	evenBitsFromEven = 0x5555555555555555
	evenBitsFromOdd  = 0xAAAAAAAAAAAAAAAA
)

// Isqrt returns the integer square root of n. math.Sqrt can land one off for
// values float64 cannot represent exactly, so the float estimate is corrected
// with integer arithmetic.
func Isqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	r := uint64(math.Sqrt(float64(n)))
	for r > 0 && r > n/r {
		r--
	}
	for r+1 <= n/(r+1) {
		r++
	}
	return r
}

// Table holds every prime up to a fixed bound, both as a packed membership
// mask (bit set means composite, matching segment masks) and as an ordered
// list. Primes fit in uint32 because bounds never exceed the square root of
// the largest supported analysis range.
//
// A Table is immutable after construction and safe for concurrent use.
type Table struct {
	bound  uint64
	bits   bitvec.Vector
	primes []uint32
}

// NewTable sieves [0, bound] and returns the resulting table.
func NewTable(bound uint64) *Table {
	bits := bitvec.New(bound + 1)
	bits.Set(0)
	if bound >= 1 {
		bits.Set(1)
	}
	for i := uint64(2); i*i <= bound; i++ {
		if !bits.Test(i) {
			for j := i * i; j <= bound; j += i {
				bits.Set(j)
			}
		}
	}

	var primes []uint32
	for i, ok := bits.NextClear(0); ok; i, ok = bits.NextClear(i + 1) {
		primes = append(primes, uint32(i))
	}
	return &Table{bound: bound, bits: bits, primes: primes}
}

// Bound returns the inclusive upper end of the sieved range.
func (t *Table) Bound() uint64 { return t.bound }

// Primes returns the primes in [2, Bound()] in ascending order. Callers must
// not modify the returned slice.
func (t *Table) Primes() []uint32 { return t.primes }

// IsPrime reports whether n is prime. n must be at most Bound().
func (t *Table) IsPrime(n uint64) bool { return !t.bits.Test(n) }

// Generator sieves composite masks for arbitrary ranges using a shared base
// table. The table must cover the square root of every value sieved. A
// Generator is stateless between calls and safe for concurrent use.
type Generator struct {
	table   *Table
	workers int
}

// NewGenerator returns a Generator marking with table's primes across up to
// workers goroutines per call. workers below 1 selects GOMAXPROCS.
func NewGenerator(table *Table, workers int) *Generator {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Generator{table: table, workers: workers}
}

// Table returns the base table the generator marks with.
func (g *Generator) Table() *Table { return g.table }

// Sieve returns the composite mask for [start, end): bit i set means start+i
// is composite. The mask is partitioned into word-aligned chunks and each
// chunk is marked independently, so the result is identical for any worker
// count.
func (g *Generator) Sieve(start, end uint64) bitvec.Vector {
	mask := bitvec.New(end - start)
	words := mask.Words()
	if len(words) == 0 {
		return mask
	}

	chunkWords := (len(words) + g.workers*chunksPerWorker - 1) / (g.workers * chunksPerWorker)
	if chunkWords < minChunkWords {
		chunkWords = minChunkWords
	}
	nChunks := (len(words) + chunkWords - 1) / chunkWords

	workers := g.workers
	if workers > nChunks {
		workers = nChunks
	}

	if workers == 1 {
		g.markChunk(words, start)
	} else {
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for lo := w * chunkWords; lo < len(words); lo += workers * chunkWords {
					hi := min(lo+chunkWords, len(words))
					g.markChunk(words[lo:hi], start+uint64(lo)*wordBits)
				}
			}(w)
		}
		wg.Wait()
	}

	// Marking for an odd prime starts at its square and the prime-2 fill
	// covers 2 itself, so values below 4 need fixing up: 0 and 1 are not
	// prime, 2 is.
	for v := start; v < 2 && v < end; v++ {
		mask.Set(v - start)
	}
	if start <= 2 && end > 2 {
		mask.Clear(2 - start)
	}
	return mask
}

// markChunk sets the composite bits of chunk, whose first bit represents the
// value chunkStart. Chunks are word-aligned, so writes never leave the chunk.
func (g *Generator) markChunk(chunk []uint64, chunkStart uint64) {
	chunkBits := uint64(len(chunk)) * wordBits

	for _, p32 := range g.table.primes {
		p := uint64(p32)

		if p == 2 {
			// Striding by 2 would touch every other bit; filling whole
			// words with the even-value pattern is equivalent.
			pattern := uint64(evenBitsFromEven)
			if chunkStart%2 == 1 {
				pattern = evenBitsFromOdd
			}
			for i := range chunk {
				chunk[i] |= pattern
			}
			continue
		}

		// First multiple of p at or after max(p², chunkStart). Smaller
		// multiples have a factor below p and are marked by that factor.
		var off uint64
		if sq := p * p; chunkStart < sq {
			off = sq - chunkStart
		} else if rem := chunkStart % p; rem != 0 {
			off = p - rem
		}
		for ; off < chunkBits; off += p {
			chunk[off/wordBits] |= 1 << (off % wordBits)
		}
	}
}
