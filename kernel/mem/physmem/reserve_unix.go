//go:build unix

package physmem

import (
	"errors"

	"golang.org/x/sys/unix"
)

// reserve maps size bytes of anonymous, zero-filled memory. Pages are only
// committed by the host once they are touched, so windows spanning large
// firmware holes stay cheap.
func reserve(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unreserve(data []byte) error {
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
