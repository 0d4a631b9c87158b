package primestream

import (
	"fmt"
	"slices"

	primeerrors "github.com/tamirms/primestream/errors"
)

// Statistics accumulates the results of a run: global counters, the gap
// spectrum over every observed gap size, and positional counters over the
// bins partitioning the analysis range [0, 2×limit].
//
// A consecutive prime pair (p, p′) with p > p′ contributes one event carrying
// its gap p − p′ and its candidate S = p + p′ − 1; the event lands in the bin
// containing p. Statistics is not safe for concurrent use; shard per
// goroutine and combine with Merge.
type Statistics struct {
	// TotalPrimes counts every prime produced, including the seed prime 2.
	TotalPrimes uint64

	// TotalSPrimes counts the pair events whose S value was itself prime.
	TotalSPrimes uint64

	// GapSpectrum tallies every observed gap size across the whole run.
	GapSpectrum map[uint64]GapCount

	// Bins partitions [0, 2×limit] into contiguous slices. All bins share
	// one width except the last, which extends to the end of the range.
	Bins []Bin

	// TargetGaps holds the per-bin tracked gap sizes, ascending and
	// deduplicated.
	TargetGaps []uint64

	binSize       uint64
	analysisRange uint64 // inclusive upper end, 2×limit

	targetLookup []bool              // direct index for small targets
	targetSet    map[uint64]struct{} // fallback when a target is large
}

// GapCount tallies how often a gap size occurred and how often its S value
// turned out prime.
type GapCount struct {
	Occurrences uint64
	Successes   uint64
}

// Bin aggregates counters for one slice [Start, End] of the analysis range.
// The gap maps are pre-seeded with every target gap at zero, so merging and
// reporting see an identical key set in every bin.
type Bin struct {
	Start uint64
	End   uint64

	// PrimeCountP counts primes p that landed in this bin.
	PrimeCountP uint64

	// PrimeCountS counts pair events in this bin whose S value was prime.
	PrimeCountS uint64

	GapOccurrences map[uint64]uint64
	GapSuccesses   map[uint64]uint64
}

// Direct-index target lookup is used while the largest target gap stays
// below this; beyond it the set fallback avoids a sparse table.
const targetLookupCutoff = 1024

// NewStatistics returns an empty Statistics for primes up to limit, with the
// analysis range [0, 2×limit] split into numBins slices and the given gap
// sizes tracked per bin. Gaps must be even, with 1 permitted for the unique
// odd gap between 2 and 3. Bin widths are ceil(2×limit / numBins); a numBins
// too large for the range to fill fails with ErrInvalidBins.
func NewStatistics(limit uint64, numBins int, targetGaps []uint64) (*Statistics, error) {
	if limit > MaxLimit {
		return nil, primeerrors.ErrLimitTooLarge
	}
	if numBins < 1 {
		return nil, primeerrors.ErrInvalidBins
	}
	if len(targetGaps) == 0 {
		return nil, primeerrors.ErrNoTargetGaps
	}
	for _, g := range targetGaps {
		if g == 0 || (g != 1 && g%2 != 0) {
			return nil, fmt.Errorf("%w: gap %d", primeerrors.ErrInvalidGap, g)
		}
	}

	analysisRange := 2 * limit
	binSize := (analysisRange + uint64(numBins) - 1) / uint64(numBins)
	if binSize == 0 {
		binSize = 1
	}
	if uint64(numBins-1) > analysisRange/binSize {
		return nil, primeerrors.ErrInvalidBins
	}

	targets := append([]uint64(nil), targetGaps...)
	slices.Sort(targets)
	targets = slices.Compact(targets)

	s := &Statistics{
		GapSpectrum:   make(map[uint64]GapCount),
		Bins:          make([]Bin, numBins),
		TargetGaps:    targets,
		binSize:       binSize,
		analysisRange: analysisRange,
	}

	if maxTarget := targets[len(targets)-1]; maxTarget < targetLookupCutoff {
		s.targetLookup = make([]bool, maxTarget+1)
		for _, g := range targets {
			s.targetLookup[g] = true
		}
	} else {
		s.targetSet = make(map[uint64]struct{}, len(targets))
		for _, g := range targets {
			s.targetSet[g] = struct{}{}
		}
	}

	for i := range s.Bins {
		start := uint64(i) * binSize
		end := start + binSize - 1
		if i == numBins-1 {
			end = analysisRange
		}
		occ := make(map[uint64]uint64, len(targets))
		suc := make(map[uint64]uint64, len(targets))
		for _, g := range targets {
			occ[g] = 0
			suc[g] = 0
		}
		s.Bins[i] = Bin{Start: start, End: end, GapOccurrences: occ, GapSuccesses: suc}
	}
	return s, nil
}

// newStatistics builds from an already-validated config; it cannot fail.
func newStatistics(limit uint64, cfg *config) *Statistics {
	s, err := NewStatistics(limit, cfg.numBins, cfg.targetGaps)
	if err != nil {
		panic("primestream: config passed validation but statistics did not: " + err.Error())
	}
	return s
}

// BinSize returns the shared width of all bins except possibly the last.
func (s *Statistics) BinSize() uint64 { return s.binSize }

// AnalysisRange returns the inclusive upper end of the binned range.
func (s *Statistics) AnalysisRange() uint64 { return s.analysisRange }

func (s *Statistics) isTarget(gap uint64) bool {
	if s.targetLookup != nil {
		return gap < uint64(len(s.targetLookup)) && s.targetLookup[gap]
	}
	_, ok := s.targetSet[gap]
	return ok
}

// binIndex returns the bin containing n. Values past the analysis range have
// no bin; values inside it past the last bin's nominal width clamp to the
// last bin.
func (s *Statistics) binIndex(n uint64) (int, bool) {
	if n > s.analysisRange {
		return 0, false
	}
	idx := int(n / s.binSize)
	if idx >= len(s.Bins) {
		idx = len(s.Bins) - 1
	}
	return idx, true
}

// Record accumulates one consecutive pair event: pCurrent follows pPrev in
// the stream, and isPrime decides the candidate S = pCurrent + pPrev − 1.
// The prime count always advances; the gap and S counters advance only when
// pCurrent falls inside the analysis range.
func (s *Statistics) Record(pCurrent, pPrev uint64, isPrime func(uint64) bool) {
	s.TotalPrimes++

	idx, ok := s.binIndex(pCurrent)
	if !ok {
		return
	}
	bin := &s.Bins[idx]
	bin.PrimeCountP++

	gap := pCurrent - pPrev
	sum := pCurrent + pPrev - 1
	target := s.isTarget(gap)

	gc := s.GapSpectrum[gap]
	gc.Occurrences++
	if target {
		bin.GapOccurrences[gap]++
	}

	if isPrime(sum) {
		s.TotalSPrimes++
		bin.PrimeCountS++
		gc.Successes++
		if target {
			bin.GapSuccesses[gap]++
		}
	}
	s.GapSpectrum[gap] = gc
}

// Merge folds other into s. Both must come from the same configuration.
// Merging is element-wise addition, so it is associative and commutative:
// shards merged in any grouping match sequential accumulation exactly.
func (s *Statistics) Merge(other *Statistics) {
	s.TotalPrimes += other.TotalPrimes
	s.TotalSPrimes += other.TotalSPrimes

	for gap, gc := range other.GapSpectrum {
		cur := s.GapSpectrum[gap]
		cur.Occurrences += gc.Occurrences
		cur.Successes += gc.Successes
		s.GapSpectrum[gap] = cur
	}

	for i := range other.Bins {
		dst := &s.Bins[i]
		src := &other.Bins[i]
		dst.PrimeCountP += src.PrimeCountP
		dst.PrimeCountS += src.PrimeCountS
		for g, n := range src.GapOccurrences {
			dst.GapOccurrences[g] += n
		}
		for g, n := range src.GapSuccesses {
			dst.GapSuccesses[g] += n
		}
	}
}

// Reset zeroes every counter in place, keeping the bin layout and target
// seeds, so shards can be reused across batches without reallocating.
func (s *Statistics) Reset() {
	s.TotalPrimes = 0
	s.TotalSPrimes = 0
	clear(s.GapSpectrum)
	for i := range s.Bins {
		b := &s.Bins[i]
		b.PrimeCountP = 0
		b.PrimeCountS = 0
		for g := range b.GapOccurrences {
			b.GapOccurrences[g] = 0
		}
		for g := range b.GapSuccesses {
			b.GapSuccesses[g] = 0
		}
	}
}
