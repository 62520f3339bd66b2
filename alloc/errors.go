package alloc

import "errors"

var (
	// ErrBadConfig indicates a Config that cannot describe a valid class table.
	ErrBadConfig = errors.New("alloc: bad config")

	// ErrInvalidSize indicates a negative or unrepresentable request size.
	ErrInvalidSize = errors.New("alloc: invalid size")

	// ErrBreakMoved indicates the segment break was not where the allocator
	// left it when it tried to extend the heap.
	ErrBreakMoved = errors.New("alloc: heap break moved")

	// ErrGrowFail indicates the segment refused to extend the break.
	ErrGrowFail = errors.New("alloc: heap extension failed")

	// ErrMapFailed indicates the mapper could not provide a large block.
	ErrMapFailed = errors.New("alloc: mapping failed")

	// ErrUnmap indicates a large block could not be released.
	ErrUnmap = errors.New("alloc: unmap failed")

	// ErrBadPtr indicates an address that does not resolve to allocator memory.
	ErrBadPtr = errors.New("alloc: bad pointer")

	// ErrCeiling indicates a zero allocation would cross the zero-path ceiling.
	ErrCeiling = errors.New("alloc: zero allocation exceeds ceiling")

	// ErrCorrupt indicates Verify found a broken free-list invariant.
	ErrCorrupt = errors.New("alloc: free list corrupt")
)
