//go:build !linux && !darwin

package osmem

// NewSegment falls back to a heap-backed segment where anonymous mappings
// are not available.
func NewSegment(capacity int) (Segment, error) {
	return NewMemSegment(capacity)
}
