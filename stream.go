package primestream

import (
	primeerrors "github.com/tamirms/primestream/errors"
	"github.com/tamirms/primestream/internal/bitvec"
	"github.com/tamirms/primestream/internal/sieve"
)

// Stream produces the primes in [2, limit] in ascending order.
//
// It replays the base prime table up to √limit first, then sieves successive
// fixed-width windows, holding one window's mask in memory at a time. A
// Stream is forward-only and not safe for concurrent use.
type Stream struct {
	limit uint64
	width uint64
	table *sieve.Table
	gen   *sieve.Generator

	baseIdx   int
	segmented bool
	segStart  uint64
	mask      bitvec.Vector
	cursor    uint64
	done      bool
}

// NewStream returns a Stream over the primes up to limit. The limit may be
// at most MaxLimit.
func NewStream(limit uint64, opts ...Option) (*Stream, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if limit > MaxLimit {
		return nil, primeerrors.ErrLimitTooLarge
	}
	return newStream(limit, cfg), nil
}

func newStream(limit uint64, cfg *config) *Stream {
	table := sieve.NewTable(sieve.Isqrt(limit))
	return &Stream{
		limit: limit,
		width: cfg.segmentBits,
		table: table,
		gen:   sieve.NewGenerator(table, cfg.workers),
	}
}

// Limit returns the inclusive upper end of the stream.
func (s *Stream) Limit() uint64 { return s.limit }

// Next returns the next prime and true, or 0 and false once the stream is
// exhausted. Exhaustion is permanent.
func (s *Stream) Next() (uint64, bool) {
	if s.done {
		return 0, false
	}
	for {
		if !s.segmented {
			if primes := s.table.Primes(); s.baseIdx < len(primes) {
				p := uint64(primes[s.baseIdx])
				s.baseIdx++
				return p, true
			}
			s.segmented = true
			s.segStart = s.table.Bound() + 1
			if s.segStart > s.limit {
				s.done = true
				return 0, false
			}
			s.loadWindow()
		}

		if off, ok := s.mask.NextClear(s.cursor); ok {
			s.cursor = off + 1
			return s.segStart + off, true
		}

		s.segStart += s.width
		if s.segStart > s.limit {
			s.done = true
			return 0, false
		}
		s.loadWindow()
	}
}

// loadWindow sieves [segStart, min(segStart+width, limit+1)). Clamping the
// final window means every mask bit maps to an in-range value.
func (s *Stream) loadWindow() {
	end := s.segStart + s.width
	if end > s.limit+1 {
		end = s.limit + 1
	}
	s.mask = s.gen.Sieve(s.segStart, end)
	s.cursor = 0
}
