package primestream

import (
	"errors"
	"testing"

	primeerrors "github.com/tamirms/primestream/errors"
)

func collectStream(t *testing.T, limit uint64, opts ...Option) []uint64 {
	t.Helper()
	stream, err := NewStream(limit, opts...)
	if err != nil {
		t.Fatalf("NewStream(%d) failed: %v", limit, err)
	}
	var primes []uint64
	for p, ok := stream.Next(); ok; p, ok = stream.Next() {
		primes = append(primes, p)
	}
	return primes
}

func assertPrimesEqual(t *testing.T, got, want []uint64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("stream produced %d primes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("prime %d = %d, want %d", i, got[i], want[i])
		}
	}
}

// ============================================================================
// Correctness against trial division
// ============================================================================

func TestStreamFirstPrimes(t *testing.T) {
	want := []uint64{
		2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47,
		53, 59, 61, 67, 71, 73, 79, 83, 89, 97,
	}
	assertPrimesEqual(t, collectStream(t, 100), want)
}

func TestStreamTinyLimits(t *testing.T) {
	for limit := uint64(0); limit <= 30; limit++ {
		got := collectStream(t, limit)
		want := referencePrimes(limit)
		if len(got) != len(want) {
			t.Fatalf("limit %d: %d primes, want %d", limit, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("limit %d: prime %d = %d, want %d", limit, i, got[i], want[i])
			}
		}
	}
}

func TestStreamAgainstReference(t *testing.T) {
	for _, limit := range []uint64{97, 98, 1_000, 9_973, 10_000} {
		assertPrimesEqual(t, collectStream(t, limit), referencePrimes(limit))
	}
}

// ============================================================================
// Window geometry
// ============================================================================

func TestStreamSegmentBoundaryLimits(t *testing.T) {
	// One kilobyte of mask covers 8192 integers; limits at and around
	// multiples of that exercise the final-window clamp.
	for _, limit := range []uint64{8_191, 8_192, 8_193, 16_383, 16_384, 16_385} {
		got := collectStream(t, limit, WithSegmentSize(1))
		assertPrimesEqual(t, got, referencePrimes(limit))
	}
}

func TestStreamSegmentSizeInvariance(t *testing.T) {
	want := collectStream(t, 50_000, WithSegmentSize(128))
	for _, kb := range []int{1, 2, 16} {
		got := collectStream(t, 50_000, WithSegmentSize(kb))
		assertPrimesEqual(t, got, want)
	}
}

func TestStreamWorkerInvariance(t *testing.T) {
	want := collectStream(t, 300_000, WithWorkers(1), WithSegmentSize(4))
	for _, workers := range []int{2, 4, 8} {
		got := collectStream(t, 300_000, WithWorkers(workers), WithSegmentSize(4))
		assertPrimesEqual(t, got, want)
	}
}

// ============================================================================
// Exhaustion and validation
// ============================================================================

func TestStreamExhaustionPermanent(t *testing.T) {
	stream, err := NewStream(10)
	if err != nil {
		t.Fatal(err)
	}
	for _, ok := stream.Next(); ok; _, ok = stream.Next() {
	}
	for i := 0; i < 3; i++ {
		if p, ok := stream.Next(); ok {
			t.Fatalf("exhausted stream produced %d", p)
		}
	}
}

func TestStreamLimitTooLarge(t *testing.T) {
	if _, err := NewStream(MaxLimit + 1); !errors.Is(err, primeerrors.ErrLimitTooLarge) {
		t.Fatalf("NewStream(MaxLimit+1) error = %v, want ErrLimitTooLarge", err)
	}
}

func TestStreamInvalidOptions(t *testing.T) {
	if _, err := NewStream(100, WithSegmentSize(0)); !errors.Is(err, primeerrors.ErrInvalidSegmentSize) {
		t.Errorf("WithSegmentSize(0) error = %v, want ErrInvalidSegmentSize", err)
	}
	if _, err := NewStream(100, WithWorkers(-1)); !errors.Is(err, primeerrors.ErrInvalidWorkers) {
		t.Errorf("WithWorkers(-1) error = %v, want ErrInvalidWorkers", err)
	}
}
