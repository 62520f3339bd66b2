package alloc

import (
	"fmt"
	"maps"
	"slices"
)

// Walk calls fn for every size-class chunk in address order, then for every
// live mapped block in address order. Walking stops at the first error fn
// returns.
func (a *Allocator) Walk(fn func(ChunkInfo) error) error {
	for _, r := range a.runs {
		stride := uintptr(a.cfg.ClassSize(r.class) + HeaderSize)
		for j := range r.count {
			hdr := r.start + uintptr(j)*stride
			h := decodeHeader(a.heapHeader(hdr))
			info := ChunkInfo{
				Header:  hdr,
				Payload: PayloadOf(hdr),
				Class:   r.class,
				Size:    h.Size,
				Origin:  h.Origin,
				Free:    !h.InUse(),
			}
			if err := fn(info); err != nil {
				return err
			}
		}
	}

	for _, hdr := range slices.Sorted(maps.Keys(a.mapped)) {
		h := decodeHeader(a.mapped[hdr])
		info := ChunkInfo{
			Header:  hdr,
			Payload: PayloadOf(hdr),
			Size:    h.Size - HeaderSize,
			Origin:  h.Origin,
		}
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks the free-list invariants:
//   - every chunk on list i is a heap chunk of exactly ClassSize(i) bytes
//   - lists are acyclic and no chunk is on two lists
//   - listed chunks carry a free link, unlisted carved chunks are marked in use
//   - per-class free counters match list lengths
func (a *Allocator) Verify() error {
	listed := make(map[uintptr]int)

	for class := 1; class < len(a.heads); class++ {
		want := a.cfg.ClassSize(class)
		n := 0
		for hdr := a.heads[class]; hdr != 0; n++ {
			if n >= a.classes[class].total {
				return fmt.Errorf("%w: class %d list longer than its %d chunks",
					ErrCorrupt, class, a.classes[class].total)
			}
			if other, dup := listed[hdr]; dup {
				return fmt.Errorf("%w: chunk 0x%x on lists %d and %d", ErrCorrupt, hdr, other, class)
			}
			b, ok := a.heapView(hdr, HeaderSize)
			if !ok {
				return fmt.Errorf("%w: class %d links to 0x%x outside the heap", ErrCorrupt, class, hdr)
			}
			h := decodeHeader(b)
			switch {
			case h.Origin != OriginHeap:
				return fmt.Errorf("%w: class %d chunk 0x%x has origin %v", ErrCorrupt, class, hdr, h.Origin)
			case h.Size != want:
				return fmt.Errorf("%w: class %d chunk 0x%x has size %d, want %d",
					ErrCorrupt, class, hdr, h.Size, want)
			case h.InUse():
				return fmt.Errorf("%w: class %d chunk 0x%x is marked in use", ErrCorrupt, class, hdr)
			}
			listed[hdr] = class
			hdr = h.Next
		}
		if n != a.classes[class].free {
			return fmt.Errorf("%w: class %d has %d listed chunks, counter says %d",
				ErrCorrupt, class, n, a.classes[class].free)
		}
	}

	return a.Walk(func(c ChunkInfo) error {
		if c.Origin != OriginHeap {
			return nil
		}
		if _, ok := listed[c.Header]; !ok && c.Free {
			return fmt.Errorf("%w: free chunk 0x%x (class %d) is on no list", ErrCorrupt, c.Header, c.Class)
		}
		return nil
	})
}
