// Package osmem is the boundary between the allocator and the operating
// system. It provides the two memory primitives the allocator is built on:
//
//   - Segment: a contiguous region with a break that only moves forward
//     (the allocator's stand-in for the process data segment)
//   - Mapper: anonymous private mappings for individual large blocks
//
// plus the raw fd-1 writer used as the diagnostic channel.
//
// This is the only package that converts between slices and addresses. Every
// address it hands out points into a slice it (or its caller) keeps alive, so
// the addresses stay valid for as long as the owning Segment or mapping does.
package osmem

import (
	"errors"
	"unsafe"
)

var (
	// ErrSegmentFull indicates the segment reservation cannot satisfy a break extension.
	ErrSegmentFull = errors.New("osmem: segment exhausted")

	// ErrClosed indicates an operation on a released segment.
	ErrClosed = errors.New("osmem: segment closed")

	// ErrNegativeIncrement indicates an attempt to move the break backwards.
	ErrNegativeIncrement = errors.New("osmem: negative break increment")

	// ErrBadMapping indicates a Map size or an Unmap argument the mapper does not own.
	ErrBadMapping = errors.New("osmem: bad mapping")
)

// Prot is a set of page protection flags for Mapper.Map.
type Prot uint8

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec
)

// Segment is a contiguous reserved region with a monotonically advancing break.
//
// Sbrk follows the classic contract: it returns the break position before the
// extension. Callers that need to detect a break moved by someone else compare
// that value against a Brk taken just before the call.
type Segment interface {
	// Base returns the address of the first byte of the segment.
	Base() uintptr

	// Brk returns the current break address.
	Brk() uintptr

	// Sbrk advances the break by n bytes and returns the previous break.
	Sbrk(n int) (uintptr, error)

	// Bytes returns the whole reservation. Only [0, Brk()-Base()) is in use.
	Bytes() []byte

	// Close releases the reservation. Addresses inside it become invalid.
	Close() error
}

// Mapper creates and destroys anonymous private mappings.
type Mapper interface {
	// Map returns a zeroed region of exactly n bytes.
	Map(n int, prot Prot) ([]byte, error)

	// Unmap releases a region previously returned by Map.
	Unmap(b []byte) error
}

// AddrOf returns the address of the first byte backing b, or 0 when b has no
// backing array.
func AddrOf(b []byte) uintptr {
	if cap(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
