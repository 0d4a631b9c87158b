// Package errors defines all exported error sentinels for the primestream library.
//
// This is the single source of truth for error values. Both the top-level
// primestream package and its commands import from here, ensuring errors.Is
// checks work across package boundaries.
package errors

import "errors"

// Configuration errors
var (
	ErrExponentOverflow   = errors.New("primestream: exponent produces a limit beyond 10^18")
	ErrLimitTooLarge      = errors.New("primestream: limit exceeds 10^18")
	ErrNoTargetGaps       = errors.New("primestream: target gap set is empty")
	ErrInvalidGap         = errors.New("primestream: target gaps must be even or exactly 1, and nonzero")
	ErrInvalidBins        = errors.New("primestream: bin count must be >= 1 and coarse enough to partition the analysis range")
	ErrInvalidSegmentSize = errors.New("primestream: segment size must be positive")
	ErrInvalidWorkers     = errors.New("primestream: worker count cannot be negative")
	ErrInvalidBatchSize   = errors.New("primestream: batch size must be positive")
	ErrInvalidCacheSize   = errors.New("primestream: segment cache capacity must be >= 1")
)

// Pipeline errors
var (
	ErrAnalyzerConsumed = errors.New("primestream: analyzer has already run; create a new one")
)

// Dump file errors
var (
	ErrInvalidMagic   = errors.New("primestream: invalid dump magic number")
	ErrInvalidVersion = errors.New("primestream: unsupported dump format version")
	ErrTruncatedDump  = errors.New("primestream: dump file is truncated")
	ErrChecksumFailed = errors.New("primestream: dump checksum verification failed")
	ErrDumpCapacity   = errors.New("primestream: prime count exceeds preallocated dump capacity")
	ErrDumpClosed     = errors.New("primestream: dump is closed")
)
