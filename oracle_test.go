package primestream

import (
	"errors"
	"sync"
	"testing"

	primeerrors "github.com/tamirms/primestream/errors"
)

// ============================================================================
// Correctness
// ============================================================================

func TestOracleMatchesReference(t *testing.T) {
	oracle, err := NewOracle(10_000, WithSegmentSize(1))
	if err != nil {
		t.Fatal(err)
	}
	for n := uint64(0); n <= 10_000; n++ {
		if got := oracle.IsPrime(n); got != referenceIsPrime(n) {
			t.Fatalf("IsPrime(%d) = %v, want %v", n, got, referenceIsPrime(n))
		}
	}
}

func TestOracleTablePathBoundary(t *testing.T) {
	// √10000 = 100: 97 and 100 resolve from the base table, 101 and up
	// from sieved segments.
	oracle, err := NewOracle(10_000)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		n    uint64
		want bool
	}{
		{97, true},
		{99, false},
		{100, false},
		{101, true},
		{103, true},
		{9_973, true},
		{9_999, false},
	}
	for _, tc := range cases {
		if got := oracle.IsPrime(tc.n); got != tc.want {
			t.Errorf("IsPrime(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}

func TestOracleAboveLimitFalse(t *testing.T) {
	oracle, err := NewOracle(100)
	if err != nil {
		t.Fatal(err)
	}
	// 101 and 103 are prime but past the oracle's range.
	for _, n := range []uint64{101, 103, 1 << 40} {
		if oracle.IsPrime(n) {
			t.Errorf("IsPrime(%d) = true for a value above the limit", n)
		}
	}
}

func TestOracleSmallValues(t *testing.T) {
	oracle, err := NewOracle(10)
	if err != nil {
		t.Fatal(err)
	}
	want := map[uint64]bool{0: false, 1: false, 2: true, 3: true, 4: false, 5: true}
	for n, w := range want {
		if got := oracle.IsPrime(n); got != w {
			t.Errorf("IsPrime(%d) = %v, want %v", n, got, w)
		}
	}
}

// ============================================================================
// Cache behavior
// ============================================================================

func TestOracleCacheEviction(t *testing.T) {
	rng := newTestRNG(t)

	// Two cached segments of 8192 values each, queried across six
	// segments: answers must stay correct while entries thrash.
	oracle, err := NewOracle(50_000, WithSegmentSize(1), WithCacheSegments(2))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3_000; i++ {
		n := 300 + rng.Uint64N(50_000-300)
		if got := oracle.IsPrime(n); got != referenceIsPrime(n) {
			t.Fatalf("IsPrime(%d) = %v, want %v", n, got, referenceIsPrime(n))
		}
	}
}

func TestOracleEnsureRange(t *testing.T) {
	oracle, err := NewOracle(50_000, WithSegmentSize(1), WithCacheSegments(4))
	if err != nil {
		t.Fatal(err)
	}

	oracle.EnsureRange(10_000, 30_000)
	for n := uint64(10_000); n <= 30_000; n += 7 {
		if got := oracle.IsPrime(n); got != referenceIsPrime(n) {
			t.Fatalf("IsPrime(%d) = %v after EnsureRange, want %v", n, got, referenceIsPrime(n))
		}
	}

	// Clamped and degenerate spans must not panic or mislead.
	oracle.EnsureRange(49_000, 90_000)
	oracle.EnsureRange(5, 50)
	oracle.EnsureRange(40_000, 10_000)
	if !oracle.IsPrime(49_999) {
		t.Error("IsPrime(49999) = false, want true")
	}
}

// ============================================================================
// Concurrency
// ============================================================================

func TestOracleConcurrentQueries(t *testing.T) {
	const (
		numWorkers        = 8
		queriesPerWorker  = 2_000
		limit      uint64 = 50_000
	)

	oracle, err := NewOracle(limit, WithSegmentSize(1), WithCacheSegments(2))
	if err != nil {
		t.Fatal(err)
	}

	// Each worker records its own queries and answers in disjoint slices;
	// verification happens after the fact against trial division.
	queries := make([][]uint64, numWorkers)
	answers := make([][]bool, numWorkers)
	for w := 0; w < numWorkers; w++ {
		queries[w] = make([]uint64, queriesPerWorker)
		answers[w] = make([]bool, queriesPerWorker)
	}

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := newTestRNG(t)
			for i := 0; i < queriesPerWorker; i++ {
				// Offset by a worker-specific stride so goroutines probe
				// different values while sharing the RNG seed.
				n := (rng.Uint64N(limit+1) + uint64(w)*7919) % (limit + 1)
				queries[w][i] = n
				answers[w][i] = oracle.IsPrime(n)
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < numWorkers; w++ {
		for i, n := range queries[w] {
			if answers[w][i] != referenceIsPrime(n) {
				t.Fatalf("worker %d: IsPrime(%d) = %v, want %v", w, n, answers[w][i], referenceIsPrime(n))
			}
		}
	}
}

// ============================================================================
// Validation
// ============================================================================

func TestOracleLimitTooLarge(t *testing.T) {
	if _, err := NewOracle(2*MaxLimit + 1); !errors.Is(err, primeerrors.ErrLimitTooLarge) {
		t.Fatalf("NewOracle(2·MaxLimit+1) error = %v, want ErrLimitTooLarge", err)
	}
}

func TestOracleInvalidCacheSize(t *testing.T) {
	if _, err := NewOracle(100, WithCacheSegments(0)); !errors.Is(err, primeerrors.ErrInvalidCacheSize) {
		t.Fatalf("WithCacheSegments(0) error = %v, want ErrInvalidCacheSize", err)
	}
}
