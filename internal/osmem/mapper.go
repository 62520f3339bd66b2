package osmem

import "fmt"

// MemMapper is a Mapper backed by Go byte slices. Protection flags are
// accepted and ignored. Unmap of a region it does not own fails, so a double
// release surfaces as an error the way munmap of a stale range would.
type MemMapper struct {
	live map[uintptr]int
}

// NewMemMapper returns an empty MemMapper.
func NewMemMapper() *MemMapper {
	return &MemMapper{live: make(map[uintptr]int)}
}

func (m *MemMapper) Map(n int, _ Prot) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrBadMapping, n)
	}
	b := make([]byte, n)
	m.live[AddrOf(b)] = n
	return b, nil
}

func (m *MemMapper) Unmap(b []byte) error {
	addr := AddrOf(b)
	n, ok := m.live[addr]
	if !ok {
		return fmt.Errorf("%w: 0x%x not mapped", ErrBadMapping, addr)
	}
	if n != len(b) {
		return fmt.Errorf("%w: 0x%x mapped with %d bytes, unmap of %d", ErrBadMapping, addr, n, len(b))
	}
	delete(m.live, addr)
	return nil
}

// Live returns the number of regions currently mapped.
func (m *MemMapper) Live() int { return len(m.live) }
