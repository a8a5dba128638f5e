//go:build !linux

package ring

// allocRegion falls back to heap memory on platforms without the mmap path.
func allocRegion(size int) ([]byte, func() error, error) {
	return make([]byte, size), nil, nil
}
