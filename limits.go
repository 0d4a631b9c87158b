package primestream

import (
	primeerrors "github.com/tamirms/primestream/errors"
)

// MaxLimit is the largest stream limit the engine accepts. Capping limits at
// 10^18 keeps the analysis range 2×limit, and every S = p + p′ − 1 inside it,
// comfortably within uint64.
const MaxLimit = 1_000_000_000_000_000_000

// maxExponent is the largest power of ten not exceeding MaxLimit.
const maxExponent = 18

// Pow10 returns 10^exp as a uint64. Exponents outside [0, 18] fail with
// ErrExponentOverflow rather than wrapping.
func Pow10(exp int) (uint64, error) {
	if exp < 0 || exp > maxExponent {
		return 0, primeerrors.ErrExponentOverflow
	}
	n := uint64(1)
	for ; exp > 0; exp-- {
		n *= 10
	}
	return n, nil
}
