package alloc

import "github.com/joshuapare/brkalloc/internal/format"

// HeaderSize is the number of bytes preceding every payload.
const HeaderSize = format.HeaderSize

// allocatedLink occupies the next word of every chunk that is in use, so a
// chunk's state can be read from its header without trusting a stale link.
const allocatedLink = ^uintptr(0)

// Ptr is the address of a payload. Nil is the null result.
type Ptr uintptr

// Nil is returned for zero-byte requests and for every failure.
const Nil Ptr = 0

// Origin tells where a chunk's memory came from. It is set when the chunk is
// created and never changes.
type Origin uint8

const (
	// OriginHeap marks a size-class chunk carved from the heap segment.
	OriginHeap Origin = 0
	// OriginMapped marks a large block with its own anonymous mapping.
	OriginMapped Origin = 1
)

func (o Origin) String() string {
	switch o {
	case OriginHeap:
		return "heap"
	case OriginMapped:
		return "mapped"
	default:
		return "unknown"
	}
}

// Header is the decoded form of a chunk header.
type Header struct {
	// Size is the class granule size for heap chunks and the total mapped
	// bytes (header included) for mapped chunks.
	Size int
	// Origin is OriginHeap or OriginMapped.
	Origin Origin
	// Next is the free-list link of a free heap chunk (0 ends the list).
	Next uintptr
}

// InUse reports whether the header belongs to a chunk currently owned by a caller.
func (h Header) InUse() bool { return h.Next == allocatedLink }

// ChunkInfo describes one chunk visited by Walk.
type ChunkInfo struct {
	Header  uintptr // header address
	Payload Ptr
	Class   int // 0 for mapped chunks
	Size    int // usable payload bytes
	Origin  Origin
	Free    bool
}

// run is one contiguous block of same-class chunks carved by bootstrap or growth.
type run struct {
	start uintptr
	class int
	count int
}

type classCounters struct {
	total int // chunks ever carved for the class
	free  int // chunks currently on the list
}
