//go:build linux

package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

func preallocate(file *os.File, size int64) error {
	if err := unix.Fallocate(int(file.Fd()), 0, 0, size); err == nil {
		return nil
	}
	// Filesystem may not support fallocate (e.g. tmpfs variants, NFS).
	return file.Truncate(size)
}
