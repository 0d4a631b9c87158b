package primestream

import (
	"runtime"

	primeerrors "github.com/tamirms/primestream/errors"
)

// Defaults applied when the corresponding option is not given.
const (
	// DefaultSegmentKB is the sieve segment size in kilobytes. 128 KB of
	// mask covers 2^20 integers and fits comfortably in L2 cache.
	DefaultSegmentKB = 128

	// DefaultBatchSize is the number of primes collected before a batch is
	// handed to the workers.
	DefaultBatchSize = 1 << 18

	// DefaultBins is the number of slices the analysis range is split into
	// for positional statistics.
	DefaultBins = 1000

	// DefaultCacheSegments is the number of sieved segments the primality
	// oracle retains.
	DefaultCacheSegments = 4
)

var defaultTargetGaps = []uint64{2, 4, 6, 12, 30}

type config struct {
	segmentBits uint64
	workers     int
	batchSize   int
	numBins     int
	targetGaps  []uint64
	cacheSize   int
	prefetch    bool
	dumpPath    string
	progress    func(done, total uint64)
}

// Option configures a Stream, Oracle, or Analyzer.
type Option func(*config)

// WithSegmentSize sets the sieve segment size in kilobytes. Larger segments
// amortize marking setup across more values; smaller ones keep the working
// set cache-resident.
func WithSegmentSize(kb int) Option {
	return func(c *config) {
		if kb < 1 {
			c.segmentBits = 0
			return
		}
		c.segmentBits = uint64(kb) * 1024 * 8
	}
}

// WithWorkers sets the number of goroutines used for segment marking and for
// batch fan-out. Zero selects GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithBatchSize sets how many primes are collected before a batch is handed
// to the workers.
func WithBatchSize(n int) Option {
	return func(c *config) { c.batchSize = n }
}

// WithBins sets the number of slices the analysis range [0, 2×limit] is
// split into for positional statistics.
func WithBins(n int) Option {
	return func(c *config) { c.numBins = n }
}

// WithTargetGaps sets the gap sizes tracked per bin. Gaps must be even, with
// 1 permitted for the unique odd gap between 2 and 3.
func WithTargetGaps(gaps ...uint64) Option {
	return func(c *config) { c.targetGaps = append([]uint64(nil), gaps...) }
}

// WithCacheSegments sets how many sieved segments the primality oracle
// retains. Eviction is oldest-first.
func WithCacheSegments(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithPrefetch makes the analyzer sieve the oracle segments covering a
// batch's S values up front, before fanning the batch out. Spans wider than
// the oracle cache are left to fault in on demand.
func WithPrefetch(enabled bool) Option {
	return func(c *config) { c.prefetch = enabled }
}

// WithDumpFile makes the analyzer write every produced prime to a dump file
// at path alongside the statistics run.
func WithDumpFile(path string) Option {
	return func(c *config) { c.dumpPath = path }
}

// WithProgress installs a callback invoked after each processed batch with
// the highest prime consumed so far and the stream limit.
func WithProgress(fn func(done, total uint64)) Option {
	return func(c *config) { c.progress = fn }
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{
		segmentBits: DefaultSegmentKB * 1024 * 8,
		batchSize:   DefaultBatchSize,
		numBins:     DefaultBins,
		targetGaps:  append([]uint64(nil), defaultTargetGaps...),
		cacheSize:   DefaultCacheSegments,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.segmentBits == 0 {
		return nil, primeerrors.ErrInvalidSegmentSize
	}
	if cfg.workers < 0 {
		return nil, primeerrors.ErrInvalidWorkers
	}
	if cfg.workers == 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}
	if cfg.batchSize < 1 {
		return nil, primeerrors.ErrInvalidBatchSize
	}
	if cfg.numBins < 1 {
		return nil, primeerrors.ErrInvalidBins
	}
	if cfg.cacheSize < 1 {
		return nil, primeerrors.ErrInvalidCacheSize
	}
	return cfg, nil
}
