package report

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShieldingFor(t *testing.T) {
	cases := []struct {
		gap    uint64
		score  int
		primes string
		boost  float64
	}{
		{2, 1, "3", 1.5},
		{4, 1, "3", 1.5},
		{6, 1, "5", 1.25},
		{12, 1, "11", 1.1},
		{30, 1, "29", 29.0 / 28.0},
		{34, 2, "3,11", 1.65},
		{56, 3, "3,5,11", 2.0625},
	}
	for _, tc := range cases {
		sh := ShieldingFor(tc.gap)
		assert.Equal(t, tc.score, sh.Score, "gap %d score", tc.gap)
		assert.Equal(t, tc.primes, sh.PrimesList(), "gap %d primes", tc.gap)
		assert.InDelta(t, tc.boost, sh.Boost, 1e-12, "gap %d boost", tc.gap)
	}
}

func TestShieldingForMultipleOfThree(t *testing.T) {
	// g = 3k with no q ≡ 1 residues carries no shielding at all.
	sh := ShieldingFor(3)
	assert.Equal(t, 0, sh.Score)
	assert.Empty(t, sh.Primes)
	assert.Equal(t, "", sh.PrimesList())
	assert.Equal(t, 1.0, sh.Boost)
}

func TestShieldingBoostAlwaysAtLeastOne(t *testing.T) {
	for gap := uint64(1); gap <= 200; gap++ {
		sh := ShieldingFor(gap)
		assert.GreaterOrEqual(t, sh.Boost, 1.0, "gap %d", gap)
		assert.Equal(t, len(sh.Primes), sh.Score, "gap %d score matches prime count", gap)
		assert.False(t, math.IsNaN(sh.Boost), "gap %d", gap)
	}
}
