package primestream

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	primeerrors "github.com/tamirms/primestream/errors"
)

// Analyzer runs the full pipeline: stream the primes up to the configured
// limit, pair each with its predecessor, test S = p + p′ − 1 against a
// primality oracle over [0, 2×limit], and aggregate everything into
// Statistics.
//
// Production stays sequential so pairing sees the true stream order; only
// consumption of a collected batch fans out across workers. Each worker
// folds a contiguous slice of the batch into its own shard and shards merge
// in slice order, so the result is identical for any worker count, batch
// size, and prefetch setting.
type Analyzer struct {
	limit  uint64
	cfg    *config
	global *Statistics
	ran    atomic.Bool
}

// NewAnalyzer returns an Analyzer for primes up to limit. All configuration
// is validated here so Run cannot fail on a bad option.
func NewAnalyzer(limit uint64, opts ...Option) (*Analyzer, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if limit > MaxLimit {
		return nil, primeerrors.ErrLimitTooLarge
	}
	global, err := NewStatistics(limit, cfg.numBins, cfg.targetGaps)
	if err != nil {
		return nil, err
	}
	return &Analyzer{limit: limit, cfg: cfg, global: global}, nil
}

// Run executes the pipeline to completion and returns the aggregate
// statistics. An Analyzer runs once; subsequent calls fail with
// ErrAnalyzerConsumed.
func (a *Analyzer) Run() (*Statistics, error) {
	if !a.ran.CompareAndSwap(false, true) {
		return nil, primeerrors.ErrAnalyzerConsumed
	}

	stream := newStream(a.limit, a.cfg)
	oracle := newOracle(2*a.limit, a.cfg)

	var dw *dumpWriter
	if a.cfg.dumpPath != "" {
		var err error
		dw, err = createDump(a.cfg.dumpPath, a.limit)
		if err != nil {
			return nil, err
		}
	}

	shards := make([]*Statistics, a.cfg.workers)
	for i := range shards {
		shards[i] = newStatistics(a.limit, a.cfg)
	}

	// The first prime has no predecessor, so it counts without producing a
	// pair event. Consuming it here lets every batch pair internally.
	pPrev := uint64(2)
	if first, ok := stream.Next(); ok {
		a.global.TotalPrimes++
		if idx, ok := a.global.binIndex(first); ok {
			a.global.Bins[idx].PrimeCountP++
		}
		if dw != nil {
			if err := dw.append([]uint64{first}); err != nil {
				return nil, errors.Join(err, dw.cleanup())
			}
		}
		pPrev = first
	}

	batch := make([]uint64, 0, a.cfg.batchSize)
	for {
		p, ok := stream.Next()
		if ok {
			batch = append(batch, p)
			if len(batch) < a.cfg.batchSize {
				continue
			}
		}
		if len(batch) > 0 {
			if err := a.processBatch(batch, pPrev, oracle, shards, dw); err != nil {
				if dw != nil {
					return nil, errors.Join(err, dw.cleanup())
				}
				return nil, err
			}
			pPrev = batch[len(batch)-1]
			if a.cfg.progress != nil {
				a.cfg.progress(pPrev, a.limit)
			}
			batch = batch[:0]
		}
		if !ok {
			break
		}
	}

	if dw != nil {
		if err := dw.finalize(); err != nil {
			return nil, errors.Join(err, dw.cleanup())
		}
	}
	if a.cfg.progress != nil {
		a.cfg.progress(a.limit, a.limit)
	}
	return a.global, nil
}

// processBatch fans one collected batch out: the optional dump append runs
// alongside the shard folds under a single errgroup wait. batchPrev is the
// prime immediately preceding batch[0] in the stream.
func (a *Analyzer) processBatch(batch []uint64, batchPrev uint64, oracle *Oracle, shards []*Statistics, dw *dumpWriter) error {
	if a.cfg.prefetch {
		a.prefetchSpan(batch, batchPrev, oracle)
	}

	var g errgroup.Group
	if dw != nil {
		g.Go(func() error { return dw.append(batch) })
	}

	n := len(batch)
	per := (n + len(shards) - 1) / len(shards)
	used := 0
	for i := 0; i < len(shards) && i*per < n; i++ {
		lo := i * per
		hi := min(lo+per, n)
		prev := batchPrev
		if lo > 0 {
			prev = batch[lo-1]
		}
		shard := shards[i]
		shard.Reset()
		g.Go(func() error {
			p := prev
			for _, cur := range batch[lo:hi] {
				shard.Record(cur, p, oracle.IsPrime)
				p = cur
			}
			return nil
		})
		used++
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := 0; i < used; i++ {
		a.global.Merge(shards[i])
	}
	return nil
}

// prefetchSpan sieves the oracle segments covering the batch's S values up
// front when the span fits the cache, so the folds hit under the read lock.
func (a *Analyzer) prefetchSpan(batch []uint64, batchPrev uint64, oracle *Oracle) {
	n := len(batch)
	first := batch[0] + batchPrev - 1
	prevLast := batchPrev
	if n > 1 {
		prevLast = batch[n-2]
	}
	last := batch[n-1] + prevLast - 1
	if last/a.cfg.segmentBits-first/a.cfg.segmentBits+1 <= uint64(a.cfg.cacheSize) {
		oracle.EnsureRange(first, last)
	}
}
