// Package alloc implements a segregated size-class allocator over a
// monotonically growing heap segment, with an anonymous-mapping escape path
// for large requests.
//
// # Overview
//
// Every payload handed out through Alloc is preceded by a 24-byte header of
// three little-endian words:
//
//	0x00  size    class granule size, or total mapped bytes for large blocks
//	0x08  origin  OriginHeap or OriginMapped (write-once)
//	0x10  next    free-list link while free, allocatedLink while in use
//
// Requests are rounded up to Config.Align. Rounded sizes up to Config.MaxSmall
// are served from the free list of class rounded/Align; each class only ever
// holds chunks of exactly that size. Larger requests get their own mapping.
//
// # Size Classes
//
// With DefaultConfig (Align 8, MaxSmall 512) there are 64 live classes:
//
//	Class  1:   8 bytes  (64 chunks at bootstrap)
//	Class  2:  16 bytes  (32 chunks)
//	...
//	Class 64: 512 bytes  ( 1 chunk)
//
// # Heap Growth
//
// The first allocation carves one bootstrap region out of the segment with
// InitListBytes/size chunks for every class. When a class runs dry, growth
// extends the break by GrowBytes/size chunks for that class only. Both steps
// fail when the break returned by the segment is not the one observed just
// before extending it. Chunks are never coalesced, split, or returned to the
// segment; a freed chunk goes back on top of its class list and is the next
// one reused.
//
// # Usage Example
//
//	a, err := alloc.New(nil)
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	p := a.Malloc(100)
//	buf, err := a.Bytes(p, 100)
//	if err != nil {
//	    return err
//	}
//	copy(buf, payload)
//
//	p = a.Realloc(p, 200)
//	a.Free(p)
//
// Malloc, Free, Realloc and Calloc report failure as Nil. Alloc, Release,
// Resize and ZeroAlloc are the same operations with the cause as an error.
//
// # Zero Allocation
//
// In ZeroBump mode (the default) Calloc bumps the break directly and returns
// zeroed bytes with no header. Such pointers must never be passed to Free or
// Realloc. ZeroRouted mode serves Calloc through Alloc instead.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers must synchronize access
// externally or use package github.com/joshuapare/brkalloc/pkg/malloc.
package alloc
