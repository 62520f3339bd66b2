package alloc

import "fmt"

// extend advances the break by n bytes and returns the start of the new
// space. The break must still be where it was observed immediately before
// the call; anything else means another party moved it (or the segment
// failed) and the space is not ours to carve.
func (a *Allocator) extend(n int) (uintptr, error) {
	cur := a.seg.Brk()
	got, err := a.seg.Sbrk(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %d bytes: %w", ErrGrowFail, n, err)
	}
	if got != cur {
		a.log.Warn("heap break moved", "expected", cur, "got", got)
		return 0, fmt.Errorf("%w: expected 0x%x, got 0x%x", ErrBreakMoved, cur, got)
	}
	a.stats.breakBytes += int64(n)
	return got, nil
}

// bootstrap carves the initial chunk supply of every class. It runs once;
// the flag stays set even when it fails so a contended break is not
// hammered by every later call.
func (a *Allocator) bootstrap() error {
	a.initialized = true

	size := a.cfg.BootstrapBytes()
	start, err := a.extend(size)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	p := start
	for class := 1; class < len(a.heads); class++ {
		count := a.cfg.InitialChunks(class)
		a.heads[class] = a.carve(p, class, count)
		p += uintptr(count * (a.cfg.ClassSize(class) + HeaderSize))
	}

	a.stats.bootstraps++
	a.log.Debug("bootstrapped free lists",
		"start", start,
		"bytes", size,
		"classes", len(a.heads)-1,
	)
	return nil
}

// grow carves a fresh run for one exhausted class and returns its first header.
func (a *Allocator) grow(class int) (uintptr, error) {
	count := a.cfg.GrowthChunks(class)
	size := count * (a.cfg.ClassSize(class) + HeaderSize)

	start, err := a.extend(size)
	if err != nil {
		return 0, fmt.Errorf("grow class %d: %w", class, err)
	}
	first := a.carve(start, class, count)

	a.stats.growCalls++
	a.stats.growBytes += int64(size)
	a.log.Debug("grew size class",
		"class", class,
		"chunk_size", a.cfg.ClassSize(class),
		"chunks", count,
		"bytes", size,
	)
	return first, nil
}

// carve writes count linked free headers for class starting at start and
// returns start. The last header terminates the run with a 0 link.
func (a *Allocator) carve(start uintptr, class, count int) uintptr {
	size := a.cfg.ClassSize(class)
	stride := uintptr(size + HeaderSize)
	mem := a.seg.Bytes()
	base := a.seg.Base()

	for j := range count {
		hdr := start + uintptr(j)*stride
		next := uintptr(0)
		if j != count-1 {
			next = hdr + stride
		}
		off := int(hdr - base)
		encodeHeader(mem[off:off+HeaderSize], Header{Size: size, Origin: OriginHeap, Next: next})
	}

	a.runs = append(a.runs, run{start: start, class: class, count: count})
	a.classes[class].total += count
	a.classes[class].free += count
	return start
}

// acquire pops one chunk of class, growing the class first when its list is empty.
func (a *Allocator) acquire(class int) (uintptr, error) {
	if a.heads[class] == 0 {
		first, err := a.grow(class)
		if err != nil {
			return 0, err
		}
		a.heads[class] = first
	}

	hdr := a.heads[class]
	b := a.heapHeader(hdr)
	a.heads[class] = link(b)
	setLink(b, allocatedLink)
	a.classes[class].free--
	return hdr, nil
}

// push puts the chunk whose header is b (at hdr) on top of its class list.
func (a *Allocator) push(b []byte, hdr uintptr, class int) {
	setLink(b, a.heads[class])
	a.heads[class] = hdr
	a.classes[class].free++
}

// heapHeader returns the header bytes of a chunk the allocator carved itself.
func (a *Allocator) heapHeader(hdr uintptr) []byte {
	off := int(hdr - a.seg.Base())
	return a.seg.Bytes()[off : off+HeaderSize : off+HeaderSize]
}
