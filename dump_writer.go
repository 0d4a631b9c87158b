package primestream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	primeerrors "github.com/tamirms/primestream/errors"
)

// primesUpperBound bounds π(x) from above with the Rosser–Schoenfeld
// inequality π(x) < 1.25506·x/ln x, valid for all x > 1. The dump
// preallocates this many slots and truncates to the real count on finalize.
func primesUpperBound(x uint64) uint64 {
	if x < 2 {
		return 0
	}
	fx := float64(x)
	return uint64(1.25506*fx/math.Log(fx)) + 1
}

// dumpWriter streams produced primes into a preallocated, memory-mapped dump
// file. Batches land directly in the mapping while the xxHash64 of the
// primes region accumulates alongside, so finalize never re-reads what was
// written. The analyzer issues appends strictly in stream order.
type dumpWriter struct {
	path string
	file *os.File
	mmap mmap.MMap
	data []byte

	limit    uint64
	count    uint64
	capacity uint64
	hasher   *xxhash.Digest
}

// createDump creates, preallocates, and maps a dump file sized for the
// worst-case prime count below limit.
func createDump(path string, limit uint64) (*dumpWriter, error) {
	capacity := primesUpperBound(limit)
	size := int64(dumpHeaderSize + capacity*primeSize + dumpFooterSize)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create dump file: %w", err)
	}

	// Pre-allocate disk blocks to prevent SIGBUS on disk full.
	if err := fallocateFile(file, size); err != nil {
		primaryErr := fmt.Errorf("failed to allocate disk space: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	mapped, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("failed to mmap dump file: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	dw := &dumpWriter{
		path:     path,
		file:     file,
		mmap:     mapped,
		data:     []byte(mapped),
		limit:    limit,
		capacity: capacity,
		hasher:   xxhash.New(),
	}

	// Prefault the mapping for better write performance. On Linux 5.14+,
	// uses MADV_POPULATE_WRITE. No-op on other platforms.
	prefaultRegion(dw.data)
	return dw, nil
}

// append writes primes at the current cursor and folds them into the running
// checksum.
func (dw *dumpWriter) append(primes []uint64) error {
	if uint64(len(primes)) > dw.capacity-dw.count {
		return primeerrors.ErrDumpCapacity
	}
	off := dumpHeaderSize + dw.count*primeSize
	buf := dw.data[off : off+uint64(len(primes))*primeSize]
	for i, p := range primes {
		binary.LittleEndian.PutUint64(buf[i*primeSize:], p)
	}
	if _, err := dw.hasher.Write(buf); err != nil {
		panic("hash.Hash.Write returned unexpected error: " + err.Error())
	}
	dw.count += uint64(len(primes))
	return nil
}

// finalize stamps the header and footer, flushes the mapping, and truncates
// the file to its real size. The writer is unusable afterwards.
func (dw *dumpWriter) finalize() error {
	hdr := dumpHeader{Limit: dw.limit, Count: dw.count}
	hdr.encodeTo(dw.data[:dumpHeaderSize])

	ftr := dumpFooter{PrimesHash: dw.hasher.Sum64()}
	footerOff := dumpHeaderSize + dw.count*primeSize
	ftr.encodeTo(dw.data[footerOff : footerOff+dumpFooterSize])
	actualSize := int64(footerOff + dumpFooterSize)

	if err := dw.mmap.Flush(); err != nil {
		return fmt.Errorf("failed to flush dump file: %w", err)
	}
	if err := dw.mmap.Unmap(); err != nil {
		return fmt.Errorf("failed to unmap dump file: %w", err)
	}
	dw.mmap = nil
	dw.data = nil

	if err := dw.file.Truncate(actualSize); err != nil {
		return fmt.Errorf("failed to truncate dump file: %w", err)
	}
	if err := dw.file.Close(); err != nil {
		return fmt.Errorf("failed to close dump file: %w", err)
	}
	dw.file = nil
	return nil
}

// close releases the mapping and file handle without finalizing. Idempotent,
// and safe to call after a failed finalize.
func (dw *dumpWriter) close() error {
	var errs []error
	if dw.mmap != nil {
		if err := dw.mmap.Unmap(); err != nil {
			errs = append(errs, err)
		}
		dw.mmap = nil
		dw.data = nil
	}
	if dw.file != nil {
		if err := dw.file.Close(); err != nil {
			errs = append(errs, err)
		}
		dw.file = nil
	}
	return errors.Join(errs...)
}

// cleanup abandons the dump, releasing resources and removing the partial
// file.
func (dw *dumpWriter) cleanup() error {
	return errors.Join(dw.close(), os.Remove(dw.path))
}
