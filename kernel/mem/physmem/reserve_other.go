//go:build !unix

package physmem

// reserve falls back to a heap allocation when anonymous mappings are not
// available.
func reserve(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unreserve(_ []byte) error {
	return nil
}
