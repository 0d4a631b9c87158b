package primestream

import (
	"sync"

	primeerrors "github.com/tamirms/primestream/errors"
	"github.com/tamirms/primestream/internal/bitvec"
	"github.com/tamirms/primestream/internal/sieve"
)

// Oracle answers primality queries over [0, limit] and is safe for
// concurrent use by any number of goroutines.
//
// Queries at or below √limit are answered from the immutable base table
// without locking. Larger queries resolve against a bounded cache of sieved
// segments guarded by a reader-writer lock: hits take only the read lock,
// and misses re-check under the write lock so concurrent misses on one
// segment sieve it once. Segments are width-aligned and always sieved at
// full width, so repeat queries near the top of the range reuse them.
type Oracle struct {
	limit     uint64
	sqrtLimit uint64
	width     uint64
	table     *sieve.Table
	gen       *sieve.Generator

	mu       sync.RWMutex
	segments []cachedSegment // insertion order, oldest first
	capacity int
}

type cachedSegment struct {
	start uint64
	mask  bitvec.Vector
}

// NewOracle returns an Oracle answering primality over [0, limit]. Oracles
// accept limits up to 2×MaxLimit so they can cover the S values of a
// maximal analysis run.
func NewOracle(limit uint64, opts ...Option) (*Oracle, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if limit > 2*MaxLimit {
		return nil, primeerrors.ErrLimitTooLarge
	}
	return newOracle(limit, cfg), nil
}

func newOracle(limit uint64, cfg *config) *Oracle {
	table := sieve.NewTable(sieve.Isqrt(limit))
	return &Oracle{
		limit:     limit,
		sqrtLimit: table.Bound(),
		width:     cfg.segmentBits,
		table:     table,
		gen:       sieve.NewGenerator(table, cfg.workers),
		capacity:  cfg.cacheSize,
	}
}

// Limit returns the inclusive upper end of the queryable range.
func (o *Oracle) Limit() uint64 { return o.limit }

// IsPrime reports whether n is prime. Values above the oracle's limit answer
// false rather than erroring; segments near the top of the range may cover
// values past the limit, and their bits are never consulted.
func (o *Oracle) IsPrime(n uint64) bool {
	if n > o.limit {
		return false
	}
	if n <= o.sqrtLimit {
		return o.table.IsPrime(n)
	}

	start := n / o.width * o.width
	off := n - start

	o.mu.RLock()
	for i := range o.segments {
		if o.segments[i].start == start {
			prime := !o.segments[i].mask.Test(off)
			o.mu.RUnlock()
			return prime
		}
	}
	o.mu.RUnlock()

	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.segmentLocked(start).Test(off)
}

// segmentLocked returns the cached mask for the aligned segment start,
// sieving and inserting it on a miss. The caller must hold the write lock.
func (o *Oracle) segmentLocked(start uint64) bitvec.Vector {
	for i := range o.segments {
		if o.segments[i].start == start {
			return o.segments[i].mask
		}
	}

	mask := o.gen.Sieve(start, start+o.width)
	if len(o.segments) >= o.capacity {
		n := copy(o.segments, o.segments[1:])
		o.segments = o.segments[:n]
	}
	o.segments = append(o.segments, cachedSegment{start: start, mask: mask})
	return mask
}

// EnsureRange sieves and caches every segment overlapping [lo, hi] under a
// single write lock acquisition, ahead of a burst of queries. Spans needing
// more segments than the cache holds evict their own earlier entries, so
// callers should keep spans within the configured cache size.
func (o *Oracle) EnsureRange(lo, hi uint64) {
	if hi > o.limit {
		hi = o.limit
	}
	if lo > hi || hi <= o.sqrtLimit {
		return
	}
	if lo <= o.sqrtLimit {
		lo = o.sqrtLimit + 1
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for start := lo / o.width * o.width; start <= hi; start += o.width {
		o.segmentLocked(start)
	}
}
