package primestream

import (
	"encoding/binary"

	primeerrors "github.com/tamirms/primestream/errors"
)

const (
	// dumpMagic identifies prime dump files ("PSPD" read little-endian).
	dumpMagic = uint32(0x44505350)

	// dumpVersion is the current dump format version.
	dumpVersion = uint16(0x0001)

	dumpHeaderSize = 40
	dumpFooterSize = 16

	// primeSize is the storage size of one prime.
	primeSize = 8
)

// dumpHeader is the fixed-size header at the start of every dump file.
//
// Layout (40 bytes, little-endian):
//
//	Offset  Size  Field
//	0       4     Magic     0x44505350 ("PSPD")
//	4       2     Version   0x0001
//	6       2     (zero padding)
//	8       8     Limit     stream limit the dump was produced for
//	16      8     Count     number of primes stored
//	24      16    Reserved  zero
//
// The primes follow as Count little-endian uint64 values, then the footer.
type dumpHeader struct {
	Limit uint64
	Count uint64
}

func (h *dumpHeader) encodeTo(buf []byte) {
	clear(buf[:dumpHeaderSize])
	binary.LittleEndian.PutUint32(buf[0:4], dumpMagic)
	binary.LittleEndian.PutUint16(buf[4:6], dumpVersion)
	binary.LittleEndian.PutUint64(buf[8:16], h.Limit)
	binary.LittleEndian.PutUint64(buf[16:24], h.Count)
}

func decodeDumpHeader(buf []byte) (dumpHeader, error) {
	if binary.LittleEndian.Uint32(buf[0:4]) != dumpMagic {
		return dumpHeader{}, primeerrors.ErrInvalidMagic
	}
	if binary.LittleEndian.Uint16(buf[4:6]) != dumpVersion {
		return dumpHeader{}, primeerrors.ErrInvalidVersion
	}
	return dumpHeader{
		Limit: binary.LittleEndian.Uint64(buf[8:16]),
		Count: binary.LittleEndian.Uint64(buf[16:24]),
	}, nil
}

// dumpFooter closes a dump file.
//
// Layout (16 bytes, little-endian):
//
//	Offset  Size  Field
//	0       8     PrimesHash  xxHash64 of the primes region
//	8       8     Reserved    zero
type dumpFooter struct {
	PrimesHash uint64
}

func (f *dumpFooter) encodeTo(buf []byte) {
	clear(buf[:dumpFooterSize])
	binary.LittleEndian.PutUint64(buf[0:8], f.PrimesHash)
}

func decodeDumpFooter(buf []byte) dumpFooter {
	return dumpFooter{PrimesHash: binary.LittleEndian.Uint64(buf[0:8])}
}
