package primestream

import (
	"hash/fnv"
	randv2 "math/rand/v2"
	"testing"
)

const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a deterministic RNG seeded from the test name so each
// test gets a distinct but reproducible sequence.
func newTestRNG(t testing.TB) *randv2.Rand {
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	var sum [16]byte
	h.Sum(sum[:0])

	s1 := uint64(testSeed1)
	s2 := uint64(testSeed2)
	for i := 0; i < 8; i++ {
		s1 ^= uint64(sum[i]) << (8 * i)
		s2 ^= uint64(sum[8+i]) << (8 * i)
	}
	return randv2.New(randv2.NewPCG(s1, s2))
}

func referenceIsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	for d := uint64(2); d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// referencePrimes returns every prime in [2, limit] by trial division.
func referencePrimes(limit uint64) []uint64 {
	var primes []uint64
	for n := uint64(2); n <= limit; n++ {
		if referenceIsPrime(n) {
			primes = append(primes, n)
		}
	}
	return primes
}

// referenceStatistics accumulates a whole run sequentially through the same
// Record path the pipeline shards use, with trial division as the oracle.
func referenceStatistics(t *testing.T, limit uint64, numBins int, targetGaps []uint64) *Statistics {
	t.Helper()
	stats, err := NewStatistics(limit, numBins, targetGaps)
	if err != nil {
		t.Fatalf("NewStatistics(%d, %d) failed: %v", limit, numBins, err)
	}

	primes := referencePrimes(limit)
	if len(primes) == 0 {
		return stats
	}
	stats.TotalPrimes++
	if idx, ok := stats.binIndex(primes[0]); ok {
		stats.Bins[idx].PrimeCountP++
	}
	for i := 1; i < len(primes); i++ {
		stats.Record(primes[i], primes[i-1], referenceIsPrime)
	}
	return stats
}

func assertStatsEqual(t *testing.T, got, want *Statistics) {
	t.Helper()

	if got.TotalPrimes != want.TotalPrimes {
		t.Errorf("TotalPrimes = %d, want %d", got.TotalPrimes, want.TotalPrimes)
	}
	if got.TotalSPrimes != want.TotalSPrimes {
		t.Errorf("TotalSPrimes = %d, want %d", got.TotalSPrimes, want.TotalSPrimes)
	}

	if len(got.GapSpectrum) != len(want.GapSpectrum) {
		t.Errorf("GapSpectrum has %d entries, want %d", len(got.GapSpectrum), len(want.GapSpectrum))
	}
	for gap, wc := range want.GapSpectrum {
		gc, ok := got.GapSpectrum[gap]
		if !ok {
			t.Errorf("GapSpectrum missing gap %d", gap)
			continue
		}
		if gc != wc {
			t.Errorf("GapSpectrum[%d] = %+v, want %+v", gap, gc, wc)
		}
	}

	if len(got.Bins) != len(want.Bins) {
		t.Fatalf("got %d bins, want %d", len(got.Bins), len(want.Bins))
	}
	for i := range want.Bins {
		gb, wb := &got.Bins[i], &want.Bins[i]
		if gb.Start != wb.Start || gb.End != wb.End {
			t.Errorf("bin %d spans [%d, %d], want [%d, %d]", i, gb.Start, gb.End, wb.Start, wb.End)
		}
		if gb.PrimeCountP != wb.PrimeCountP {
			t.Errorf("bin %d PrimeCountP = %d, want %d", i, gb.PrimeCountP, wb.PrimeCountP)
		}
		if gb.PrimeCountS != wb.PrimeCountS {
			t.Errorf("bin %d PrimeCountS = %d, want %d", i, gb.PrimeCountS, wb.PrimeCountS)
		}
		for g, n := range wb.GapOccurrences {
			if gb.GapOccurrences[g] != n {
				t.Errorf("bin %d GapOccurrences[%d] = %d, want %d", i, g, gb.GapOccurrences[g], n)
			}
		}
		for g, n := range wb.GapSuccesses {
			if gb.GapSuccesses[g] != n {
				t.Errorf("bin %d GapSuccesses[%d] = %d, want %d", i, g, gb.GapSuccesses[g], n)
			}
		}
	}
}
