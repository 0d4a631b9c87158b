//go:build linux

package primestream

import "golang.org/x/sys/unix"

// adviseSequential hints to the kernel that the mapped region will be read
// sequentially. Applied before full-region scans such as dump verification.
// Best-effort: errors are silently ignored.
func adviseSequential(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
}
