//go:build linux

package mem

import (
	"golang.org/x/sys/unix"
)

// Keeps b out of core dumps.
func adviseNoDump(b []byte) error {
	return unix.Madvise(b, unix.MADV_DONTDUMP)
}
