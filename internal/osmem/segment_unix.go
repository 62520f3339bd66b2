//go:build linux || darwin

package osmem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// NewSegment reserves capacity bytes of private anonymous memory for a break
// segment. Pages are committed lazily by the kernel as the break advances
// into them.
func NewSegment(capacity int) (Segment, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("osmem: segment capacity must be positive, got %d", capacity)
	}
	mem, err := unix.Mmap(
		-1,
		0,
		capacity,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE,
	)
	if err != nil {
		return nil, fmt.Errorf("osmem: reserve segment: %w", err)
	}
	return &segment{
		mem: mem,
		release: func(b []byte) error {
			err := unix.Munmap(b)
			if errors.Is(err, unix.EINVAL) {
				// Already unmapped.
				return nil
			}
			return err
		},
	}, nil
}
