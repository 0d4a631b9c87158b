package bitvec

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

// ============================================================================
// Basic bit operations
// ============================================================================

func TestSetTestClear(t *testing.T) {
	v := New(200)
	if v.Len() != 200 {
		t.Fatalf("Len() = %d, want 200", v.Len())
	}
	for i := uint64(0); i < 200; i++ {
		if v.Test(i) {
			t.Fatalf("new vector has bit %d set", i)
		}
	}

	indexes := []uint64{0, 1, 63, 64, 65, 127, 128, 199}
	for _, i := range indexes {
		v.Set(i)
	}
	for _, i := range indexes {
		if !v.Test(i) {
			t.Errorf("bit %d not set after Set", i)
		}
	}
	if v.Test(2) || v.Test(66) || v.Test(198) {
		t.Error("Set touched a neighboring bit")
	}

	v.Clear(64)
	if v.Test(64) {
		t.Error("bit 64 still set after Clear")
	}
	if !v.Test(63) || !v.Test(65) {
		t.Error("Clear touched a neighboring bit")
	}
}

func TestRandomSetAgainstMap(t *testing.T) {
	rng := newTestRNG(t)

	const nbits = 10_000
	v := New(nbits)
	want := make(map[uint64]bool)

	for i := 0; i < 5_000; i++ {
		bit := rng.Uint64N(nbits)
		if rng.IntN(4) == 0 {
			v.Clear(bit)
			delete(want, bit)
		} else {
			v.Set(bit)
			want[bit] = true
		}
	}

	for i := uint64(0); i < nbits; i++ {
		if v.Test(i) != want[i] {
			t.Fatalf("bit %d = %v, want %v", i, v.Test(i), want[i])
		}
	}
}

// ============================================================================
// NextClear scanning
// ============================================================================

func TestNextClearSequential(t *testing.T) {
	rng := newTestRNG(t)

	const nbits = 4_096
	v := New(nbits)
	for i := 0; i < 3_000; i++ {
		v.Set(rng.Uint64N(nbits))
	}

	// Walking NextClear must visit exactly the zero bits in order.
	var got []uint64
	for i, ok := v.NextClear(0); ok; i, ok = v.NextClear(i + 1) {
		got = append(got, i)
	}

	var want []uint64
	for i := uint64(0); i < nbits; i++ {
		if !v.Test(i) {
			want = append(want, i)
		}
	}

	if len(got) != len(want) {
		t.Fatalf("NextClear walk found %d zero bits, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("zero bit %d: got index %d, want %d", i, got[i], want[i])
		}
	}
}

func TestNextClearSkipsFullWords(t *testing.T) {
	const nbits = 64 * 10
	v := New(nbits)
	for i := uint64(0); i < nbits; i++ {
		v.Set(i)
	}
	v.Clear(64*7 + 13)

	i, ok := v.NextClear(0)
	if !ok || i != 64*7+13 {
		t.Fatalf("NextClear(0) = %d, %v; want %d, true", i, ok, 64*7+13)
	}
	if _, ok := v.NextClear(i + 1); ok {
		t.Error("NextClear found a zero bit past the only cleared one")
	}
}

func TestNextClearEdges(t *testing.T) {
	// from at or past the end.
	v := New(100)
	if _, ok := v.NextClear(100); ok {
		t.Error("NextClear(Len()) reported a bit")
	}
	if _, ok := v.NextClear(200); ok {
		t.Error("NextClear past Len() reported a bit")
	}

	// Zero bits that exist only in the padding of the last word must not
	// be reported.
	small := New(70)
	for i := uint64(0); i < 70; i++ {
		small.Set(i)
	}
	if i, ok := small.NextClear(0); ok {
		t.Errorf("NextClear reported padding bit %d on a full vector", i)
	}

	// from inside a word lands on the next zero in the same word.
	w := New(64)
	w.Set(10)
	w.Set(11)
	if i, ok := w.NextClear(10); !ok || i != 12 {
		t.Errorf("NextClear(10) = %d, %v; want 12, true", i, ok)
	}
}

func TestNextClearEmptyVector(t *testing.T) {
	v := New(0)
	if _, ok := v.NextClear(0); ok {
		t.Error("NextClear on an empty vector reported a bit")
	}
}
