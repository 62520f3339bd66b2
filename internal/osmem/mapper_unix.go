//go:build linux || darwin

package osmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type unixMapper struct{}

// NewMapper returns a Mapper that issues anonymous private mmap calls.
func NewMapper() Mapper { return unixMapper{} }

func (unixMapper) Map(n int, prot Prot) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrBadMapping, n)
	}
	b, err := unix.Mmap(-1, 0, n, unixProt(prot), unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("osmem: mmap %d bytes: %w", n, err)
	}
	return b, nil
}

// Unmap releases b. The x/sys mmapper looks mappings up by their last byte
// and rejects len != cap, so b must be exactly the slice returned by Map.
func (unixMapper) Unmap(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("osmem: munmap 0x%x: %w", AddrOf(b), err)
	}
	return nil
}

func unixProt(p Prot) int {
	prot := unix.PROT_NONE
	if p&ProtRead != 0 {
		prot |= unix.PROT_READ
	}
	if p&ProtWrite != 0 {
		prot |= unix.PROT_WRITE
	}
	if p&ProtExec != 0 {
		prot |= unix.PROT_EXEC
	}
	return prot
}
