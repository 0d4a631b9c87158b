package primestream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	primeerrors "github.com/tamirms/primestream/errors"
)

// Dump is a read-only view of a finalized prime dump file, backed by a
// memory mapping.
//
// At and Count are safe for concurrent use. Close must not run concurrently
// with reads.
type Dump struct {
	mmap   mmap.MMap
	data   []byte
	header dumpHeader
	footer dumpFooter
	closed atomic.Bool
}

// OpenDump opens the dump file at path, maps it, and closes the file
// descriptor; the mapping keeps the data available.
func OpenDump(path string) (*Dump, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}
	defer file.Close()
	return OpenDumpFile(file)
}

// OpenDumpFile maps an already-open dump file. The caller retains ownership
// of file and may close it once OpenDumpFile returns.
func OpenDumpFile(file *os.File) (*Dump, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat dump file: %w", err)
	}
	if info.Size() < dumpHeaderSize+dumpFooterSize {
		return nil, primeerrors.ErrTruncatedDump
	}

	mapped, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap dump file: %w", err)
	}
	data := []byte(mapped)

	hdr, err := decodeDumpHeader(data[:dumpHeaderSize])
	if err != nil {
		return nil, errors.Join(err, mapped.Unmap())
	}

	expected := uint64(dumpHeaderSize) + hdr.Count*primeSize + dumpFooterSize
	if uint64(len(data)) != expected {
		return nil, errors.Join(primeerrors.ErrTruncatedDump, mapped.Unmap())
	}

	footerOff := dumpHeaderSize + hdr.Count*primeSize
	return &Dump{
		mmap:   mapped,
		data:   data,
		header: hdr,
		footer: decodeDumpFooter(data[footerOff : footerOff+dumpFooterSize]),
	}, nil
}

// Count returns the number of primes stored.
func (d *Dump) Count() uint64 { return d.header.Count }

// Limit returns the stream limit the dump was produced for.
func (d *Dump) Limit() uint64 { return d.header.Limit }

// At returns the i-th prime, in ascending order. i must be below Count, and
// At must not be called after Close.
func (d *Dump) At(i uint64) uint64 {
	off := dumpHeaderSize + i*primeSize
	return binary.LittleEndian.Uint64(d.data[off : off+primeSize])
}

// Verify recomputes the checksum of the primes region and compares it
// against the footer, reading the mapping sequentially.
func (d *Dump) Verify() error {
	if d.closed.Load() {
		return primeerrors.ErrDumpClosed
	}
	region := d.data[dumpHeaderSize : dumpHeaderSize+d.header.Count*primeSize]
	adviseSequential(region)
	if xxhash.Sum64(region) != d.footer.PrimesHash {
		return primeerrors.ErrChecksumFailed
	}
	return nil
}

// Close unmaps the dump. Idempotent.
func (d *Dump) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	if err := d.mmap.Unmap(); err != nil {
		return fmt.Errorf("failed to unmap dump file: %w", err)
	}
	d.mmap = nil
	d.data = nil
	return nil
}
