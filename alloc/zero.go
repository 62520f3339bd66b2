package alloc

import (
	"fmt"

	"github.com/joshuapare/brkalloc/internal/buf"
)

// ZeroAlloc returns count*size zeroed bytes.
//
// In ZeroBump mode the break is advanced directly, bounded by a fixed ceiling
// measured from the segment base, and the previous break is returned. No
// header is written and no class bookkeeping happens, so the result must not
// be passed to Release or Resize. A zero total returns the current break.
//
// In ZeroRouted mode the request goes through Alloc and the payload is
// cleared; the result is an ordinary pointer. A zero total returns Nil.
func (a *Allocator) ZeroAlloc(count, size int) (Ptr, error) {
	a.stats.zeroCalls++

	total, err := buf.ByteCount(count, size)
	if err != nil {
		a.stats.failed++
		return Nil, fmt.Errorf("%w: %w", ErrInvalidSize, err)
	}

	if a.cfg.ZeroMode == ZeroRouted {
		return a.zeroRouted(total)
	}
	return a.zeroBump(total)
}

func (a *Allocator) zeroBump(total int) (Ptr, error) {
	cur := a.seg.Brk()
	ceiling := a.seg.Base() + uintptr(a.cfg.zeroCeiling())
	if cur > ceiling || uintptr(total) > ceiling-cur {
		a.stats.failed++
		a.log.Warn("zero allocation over ceiling", "bytes", total, "break", cur, "ceiling", ceiling)
		return Nil, fmt.Errorf("%w: %d bytes at break 0x%x, ceiling 0x%x", ErrCeiling, total, cur, ceiling)
	}

	start, err := a.extend(total)
	if err != nil {
		a.stats.failed++
		return Nil, fmt.Errorf("zero alloc: %w", err)
	}

	mem, ok := a.heapView(start, total)
	if !ok {
		a.stats.failed++
		return Nil, fmt.Errorf("%w: 0x%x+%d", ErrBadPtr, start, total)
	}
	clear(mem)

	a.stats.zeroBytes += int64(total)
	return Ptr(start), nil
}

func (a *Allocator) zeroRouted(total int) (Ptr, error) {
	p, err := a.Alloc(total)
	if p == Nil {
		return Nil, err
	}
	mem, err := a.Bytes(p, total)
	if err != nil {
		return Nil, err
	}
	clear(mem)

	a.stats.zeroBytes += int64(total)
	return p, nil
}

// Calloc is ZeroAlloc with failures reported as Nil.
func (a *Allocator) Calloc(count, size int) Ptr {
	p, err := a.ZeroAlloc(count, size)
	if err != nil {
		a.log.Debug("calloc failed", "count", count, "size", size, "err", err)
	}
	return p
}
