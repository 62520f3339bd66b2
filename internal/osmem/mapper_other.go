//go:build !linux && !darwin

package osmem

// NewMapper returns a heap-backed Mapper where anonymous mappings are not available.
func NewMapper() Mapper { return NewMemMapper() }
