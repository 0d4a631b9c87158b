package report

import (
	"strconv"
	"strings"
)

// smallShieldPrimes lists the odd primes up to 100 the shielding rules
// examine.
var smallShieldPrimes = [...]uint64{
	3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47,
	53, 59, 61, 67, 71, 73, 79, 83, 89, 97,
}

// Shielding describes which small primes can never divide S = 2p + g − 1 for
// a given gap g, and the success-rate boost that immunity predicts.
//
// For q = 3: a gap with g % 3 ≠ 0 forces every surviving pair into the
// residue class where S ≢ 0 (mod 3). For q ≥ 5: g ≡ 1 (mod q) makes
// S ≡ 2p (mod q), which is nonzero whenever p is a prime other than q.
// Each shielded q multiplies the expected rate by q/(q−1); the factor for 3
// is 3/2 because only one of the two admissible residue classes survives.
type Shielding struct {
	Score  int
	Primes []uint64
	Boost  float64
}

// ShieldingFor computes the shielding commentary for one gap size.
func ShieldingFor(gap uint64) Shielding {
	s := Shielding{Boost: 1}

	if gap%3 != 0 {
		s.Score++
		s.Primes = append(s.Primes, 3)
		s.Boost *= 3.0 / 2.0
	}
	for _, q := range smallShieldPrimes[1:] {
		if gap%q == 1 {
			s.Score++
			s.Primes = append(s.Primes, q)
			s.Boost *= float64(q) / float64(q-1)
		}
	}
	return s
}

// PrimesList renders the shielded primes as a comma-joined list, e.g. "3,11".
func (s Shielding) PrimesList() string {
	if len(s.Primes) == 0 {
		return ""
	}
	parts := make([]string, len(s.Primes))
	for i, q := range s.Primes {
		parts[i] = strconv.FormatUint(q, 10)
	}
	return strings.Join(parts, ",")
}
