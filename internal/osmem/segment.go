package osmem

import "fmt"

// segment implements Segment over a fixed byte reservation. The platform
// constructors differ only in where the reservation comes from and how it is
// released.
type segment struct {
	mem     []byte
	brk     int // offset of the break from the start of mem
	release func([]byte) error
}

// NewMemSegment returns a Segment backed by an ordinary Go byte slice. It is
// used on platforms without anonymous mappings and by tests that want a
// deterministic, process-independent break.
func NewMemSegment(capacity int) (Segment, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("osmem: segment capacity must be positive, got %d", capacity)
	}
	return &segment{
		mem:     make([]byte, capacity),
		release: func([]byte) error { return nil },
	}, nil
}

func (s *segment) Base() uintptr { return AddrOf(s.mem) }

func (s *segment) Brk() uintptr { return s.Base() + uintptr(s.brk) }

func (s *segment) Sbrk(n int) (uintptr, error) {
	if s.mem == nil {
		return 0, ErrClosed
	}
	prev := s.Brk()
	switch {
	case n < 0:
		return prev, fmt.Errorf("%w: %d", ErrNegativeIncrement, n)
	case n > len(s.mem)-s.brk:
		return prev, fmt.Errorf("%w: need %d bytes, %d of %d left",
			ErrSegmentFull, n, len(s.mem)-s.brk, len(s.mem))
	}
	s.brk += n
	return prev, nil
}

func (s *segment) Bytes() []byte { return s.mem }

func (s *segment) Close() error {
	if s.mem == nil {
		return nil
	}
	err := s.release(s.mem)
	s.mem = nil
	s.brk = 0
	return err
}
