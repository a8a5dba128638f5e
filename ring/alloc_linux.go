//go:build linux

package ring

import "golang.org/x/sys/unix"

// allocRegion maps an anonymous, page-backed region. Keeping ring and arena
// memory out of the Go heap means the garbage collector never moves it and
// it can be shared with a consuming process later.
func allocRegion(size int) ([]byte, func() error, error) {
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, nil, err
	}
	return mem, func() error { return unix.Munmap(mem) }, nil
}
