package primestream

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	primeerrors "github.com/tamirms/primestream/errors"
)

func writeDump(t *testing.T, limit uint64, opts ...Option) (string, *Statistics) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "primes.dump")
	stats := runAnalyzer(t, limit, append(opts, WithDumpFile(path))...)
	return path, stats
}

func corruptByte(t *testing.T, path string, off int64) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var b [1]byte
	if _, err := f.ReadAt(b[:], off); err != nil {
		t.Fatal(err)
	}
	b[0] ^= 0xFF
	if _, err := f.WriteAt(b[:], off); err != nil {
		t.Fatal(err)
	}
}

// ============================================================================
// Roundtrip
// ============================================================================

func TestDumpRoundtrip(t *testing.T) {
	path, stats := writeDump(t, 10_000)

	dump, err := OpenDump(path)
	if err != nil {
		t.Fatalf("OpenDump failed: %v", err)
	}
	defer dump.Close()

	if dump.Count() != stats.TotalPrimes {
		t.Errorf("Count() = %d, want %d", dump.Count(), stats.TotalPrimes)
	}
	if dump.Limit() != 10_000 {
		t.Errorf("Limit() = %d, want 10000", dump.Limit())
	}
	if dump.At(0) != 2 || dump.At(1) != 3 {
		t.Errorf("dump starts %d, %d; want 2, 3", dump.At(0), dump.At(1))
	}
	if last := dump.At(dump.Count() - 1); last != 9_973 {
		t.Errorf("last prime = %d, want 9973", last)
	}
	for i := uint64(1); i < dump.Count(); i++ {
		if dump.At(i) <= dump.At(i-1) {
			t.Fatalf("dump not ascending at %d: %d after %d", i, dump.At(i), dump.At(i-1))
		}
	}
	if err := dump.Verify(); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}
}

func TestDumpMatchesStream(t *testing.T) {
	// A small batch size forces many appends into the same mapping.
	path, _ := writeDump(t, 5_000, WithBatchSize(64))

	dump, err := OpenDump(path)
	if err != nil {
		t.Fatal(err)
	}
	defer dump.Close()

	want := collectStream(t, 5_000)
	if dump.Count() != uint64(len(want)) {
		t.Fatalf("Count() = %d, want %d", dump.Count(), len(want))
	}
	for i, p := range want {
		if dump.At(uint64(i)) != p {
			t.Fatalf("At(%d) = %d, want %d", i, dump.At(uint64(i)), p)
		}
	}
}

func TestDumpEmpty(t *testing.T) {
	path, _ := writeDump(t, 1)

	dump, err := OpenDump(path)
	if err != nil {
		t.Fatalf("OpenDump failed on an empty dump: %v", err)
	}
	defer dump.Close()

	if dump.Count() != 0 {
		t.Errorf("Count() = %d, want 0", dump.Count())
	}
	if err := dump.Verify(); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}
}

// ============================================================================
// Corruption detection
// ============================================================================

func TestDumpCorruptMagic(t *testing.T) {
	path, _ := writeDump(t, 1_000)
	corruptByte(t, path, 0)
	if _, err := OpenDump(path); !errors.Is(err, primeerrors.ErrInvalidMagic) {
		t.Fatalf("OpenDump error = %v, want ErrInvalidMagic", err)
	}
}

func TestDumpCorruptVersion(t *testing.T) {
	path, _ := writeDump(t, 1_000)
	corruptByte(t, path, 4)
	if _, err := OpenDump(path); !errors.Is(err, primeerrors.ErrInvalidVersion) {
		t.Fatalf("OpenDump error = %v, want ErrInvalidVersion", err)
	}
}

func TestDumpTruncated(t *testing.T) {
	path, _ := writeDump(t, 1_000)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, info.Size()-10); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenDump(path); !errors.Is(err, primeerrors.ErrTruncatedDump) {
		t.Fatalf("OpenDump error = %v, want ErrTruncatedDump", err)
	}

	if err := os.Truncate(path, 20); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenDump(path); !errors.Is(err, primeerrors.ErrTruncatedDump) {
		t.Fatalf("OpenDump on 20-byte file error = %v, want ErrTruncatedDump", err)
	}
}

func TestDumpChecksumFailure(t *testing.T) {
	path, _ := writeDump(t, 1_000)

	// Flip a byte inside the primes region: the structure stays valid, so
	// only Verify notices.
	corruptByte(t, path, dumpHeaderSize+3)

	dump, err := OpenDump(path)
	if err != nil {
		t.Fatalf("OpenDump failed: %v", err)
	}
	defer dump.Close()
	if err := dump.Verify(); !errors.Is(err, primeerrors.ErrChecksumFailed) {
		t.Fatalf("Verify() = %v, want ErrChecksumFailed", err)
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestDumpCloseIdempotent(t *testing.T) {
	path, _ := writeDump(t, 1_000)
	dump, err := OpenDump(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := dump.Close(); err != nil {
		t.Fatal(err)
	}
	if err := dump.Close(); err != nil {
		t.Fatalf("second Close() = %v, want nil", err)
	}
	if err := dump.Verify(); !errors.Is(err, primeerrors.ErrDumpClosed) {
		t.Fatalf("Verify() after Close = %v, want ErrDumpClosed", err)
	}
}
