package alloc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/joshuapare/brkalloc/internal/buf"
	"github.com/joshuapare/brkalloc/internal/osmem"
)

// unmapDiagnostic is written to the diagnostic channel when a large block
// cannot be released.
const unmapDiagnostic = "brkalloc: munmap failed\n"

// Allocator is a segregated free-list allocator over one heap segment.
// - One singly linked list per size class, threaded through chunk headers
// - Lazy bootstrap of every class on the first allocation
// - Per-class growth when a list runs dry
// - Individual mappings for requests above MaxSmall
type Allocator struct {
	cfg    Config
	seg    osmem.Segment
	mapper osmem.Mapper
	log    *slog.Logger
	diag   io.Writer

	// ownSeg is set when New created the segment and Close must release it.
	ownSeg bool

	// initialized is set by the first bootstrap attempt, successful or not.
	initialized bool

	// heads[i] is the header address of the first free chunk of class i (0 = empty).
	heads   []uintptr
	classes []classCounters

	// runs records every bootstrap and growth carve in break order.
	runs []run

	// mapped holds live large blocks keyed by header address.
	mapped map[uintptr][]byte

	stats counters
}

// New creates an Allocator. A nil config uses DefaultConfig. Nothing is taken
// from the segment until the first allocation.
func New(config *Config, opts ...Option) (*Allocator, error) {
	if config == nil {
		config = &DefaultConfig
	}
	cfg := *config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger: slog.New(slog.DiscardHandler),
		diag:   osmem.Stdout(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	a := &Allocator{
		cfg:     cfg,
		seg:     o.seg,
		mapper:  o.mapper,
		log:     o.logger,
		diag:    o.diag,
		heads:   make([]uintptr, cfg.NumClasses()),
		classes: make([]classCounters, cfg.NumClasses()),
		mapped:  make(map[uintptr][]byte),
	}
	if a.seg == nil {
		seg, err := osmem.NewSegment(cfg.SegmentBytes)
		if err != nil {
			return nil, err
		}
		a.seg = seg
		a.ownSeg = true
	}
	if a.mapper == nil {
		a.mapper = osmem.NewMapper()
	}
	return a, nil
}

// Config returns the configuration the allocator was built with.
func (a *Allocator) Config() Config { return a.cfg }

// Alloc returns a pointer to at least size usable bytes.
// A zero size returns Nil with no error and no side effect.
func (a *Allocator) Alloc(size int) (Ptr, error) {
	a.stats.allocCalls++

	if size == 0 {
		return Nil, nil
	}
	if size < 0 || size > math.MaxInt-HeaderSize-a.cfg.Align {
		a.stats.failed++
		return Nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	if !a.initialized {
		if err := a.bootstrap(); err != nil {
			a.stats.failed++
			return Nil, err
		}
	}

	rounded := a.cfg.Round(size)
	if rounded <= a.cfg.MaxSmall {
		hdr, err := a.acquire(a.cfg.ClassOf(rounded))
		if err != nil {
			a.stats.failed++
			return Nil, err
		}
		a.stats.smallAllocs++
		return PayloadOf(hdr), nil
	}

	p, err := a.allocLarge(size)
	if err != nil {
		a.stats.failed++
		return Nil, err
	}
	return p, nil
}

// allocLarge maps HeaderSize+size bytes for one block.
func (a *Allocator) allocLarge(size int) (Ptr, error) {
	total := HeaderSize + size
	prot := osmem.ProtRead | osmem.ProtWrite
	if a.cfg.ExecMappings {
		prot |= osmem.ProtExec
	}

	region, err := a.mapper.Map(total, prot)
	if err != nil {
		a.log.Warn("large allocation mapping failed", "bytes", total, "err", err)
		return Nil, fmt.Errorf("%w: %d bytes: %w", ErrMapFailed, total, err)
	}

	hdr := osmem.AddrOf(region)
	encodeHeader(region, Header{Size: total, Origin: OriginMapped, Next: allocatedLink})
	a.mapped[hdr] = region

	a.stats.largeAllocs++
	a.stats.liveMappedBytes += int64(total)
	a.log.Debug("mapped large block", "header", hdr, "bytes", total)
	return PayloadOf(hdr), nil
}

// Malloc is Alloc with failures reported as Nil.
func (a *Allocator) Malloc(size int) Ptr {
	p, err := a.Alloc(size)
	if err != nil {
		a.log.Debug("malloc failed", "size", size, "err", err)
	}
	return p
}

// Release returns p to the allocator. Nil is a no-op.
//
// Heap chunks go on top of their class list. Mapped blocks are unmapped with
// exactly the size stored in their header; when that fails the diagnostic
// channel gets a line, the block stays mapped, and the error is returned.
// Passing a pointer that did not come from Alloc/Resize (including Calloc
// pointers in ZeroBump mode) is undefined.
func (a *Allocator) Release(p Ptr) error {
	a.stats.freeCalls++
	if p == Nil {
		return nil
	}

	hdr := HeaderAddr(p)
	b, err := a.resolve(hdr, HeaderSize)
	if err != nil {
		return err
	}
	h := decodeHeader(b)

	if h.Origin == OriginMapped {
		return a.releaseMapped(hdr, h)
	}

	class := h.Size / a.cfg.Align
	if h.Size%a.cfg.Align != 0 || class < 1 || class >= len(a.heads) {
		return fmt.Errorf("%w: 0x%x has heap header with size %d", ErrBadPtr, uintptr(p), h.Size)
	}
	a.push(b, hdr, class)
	return nil
}

func (a *Allocator) releaseMapped(hdr uintptr, h Header) error {
	region := a.mapped[hdr]

	var err error
	if h.Size != len(region) {
		err = fmt.Errorf("header records %d bytes, mapping has %d", h.Size, len(region))
	} else {
		err = a.mapper.Unmap(region)
	}
	if err != nil {
		a.stats.unmapFailures++
		_, _ = io.WriteString(a.diag, unmapDiagnostic)
		a.log.Error("unmap failed", "header", hdr, "bytes", h.Size, "err", err)
		return fmt.Errorf("%w: 0x%x: %w", ErrUnmap, hdr, err)
	}

	delete(a.mapped, hdr)
	a.stats.liveMappedBytes -= int64(h.Size)
	a.log.Debug("unmapped large block", "header", hdr, "bytes", h.Size)
	return nil
}

// Free is Release without an error result.
func (a *Allocator) Free(p Ptr) {
	if err := a.Release(p); err != nil {
		a.log.Debug("free failed", "ptr", uintptr(p), "err", err)
	}
}

// Resize moves p to a new block of Round(size) bytes.
//
// A Nil p is a plain allocation. Otherwise a new block is allocated,
// min(old size, rounded) bytes are copied, and p is released whether or not
// the allocation succeeded, including when size itself is invalid. If the copy
// fails the new block is released as well. Blocks are never resized in place.
func (a *Allocator) Resize(p Ptr, size int) (Ptr, error) {
	a.stats.reallocCalls++
	if size < 0 || size > math.MaxInt-HeaderSize-a.cfg.Align {
		a.releaseOld(p)
		return Nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	rounded := a.cfg.Round(size)
	if p == Nil {
		return a.Alloc(rounded)
	}

	avail, err := a.UsableSize(p)
	if err != nil {
		return Nil, err
	}

	np, allocErr := a.Alloc(rounded)
	if np != Nil {
		if err := a.copyPayload(np, p, min(avail, rounded)); err != nil {
			a.releaseOld(np)
			np, allocErr = Nil, err
		}
	}

	a.releaseOld(p)
	return np, allocErr
}

func (a *Allocator) copyPayload(dst, src Ptr, n int) error {
	from, srcErr := a.Bytes(src, n)
	to, dstErr := a.Bytes(dst, n)
	if err := errors.Join(srcErr, dstErr); err != nil {
		return err
	}
	copy(to, from)
	return nil
}

// releaseOld frees a block Resize is giving up on. Failures are logged only.
func (a *Allocator) releaseOld(p Ptr) {
	if err := a.Release(p); err != nil {
		a.log.Warn("realloc could not release block", "ptr", uintptr(p), "err", err)
	}
}

// Realloc is Resize with failures reported as Nil.
func (a *Allocator) Realloc(p Ptr, size int) Ptr {
	np, err := a.Resize(p, size)
	if err != nil {
		a.log.Debug("realloc failed", "ptr", uintptr(p), "size", size, "err", err)
	}
	return np
}

// HeaderOf decodes the header in front of payload p.
func (a *Allocator) HeaderOf(p Ptr) (Header, error) {
	if p == Nil {
		return Header{}, fmt.Errorf("%w: nil", ErrBadPtr)
	}
	b, err := a.resolve(HeaderAddr(p), HeaderSize)
	if err != nil {
		return Header{}, err
	}
	return decodeHeader(b), nil
}

// UsableSize returns the number of payload bytes behind p: the class size for
// heap chunks, the mapping minus its header for large blocks.
func (a *Allocator) UsableSize(p Ptr) (int, error) {
	h, err := a.HeaderOf(p)
	if err != nil {
		return 0, err
	}
	if h.Origin == OriginMapped {
		return h.Size - HeaderSize, nil
	}
	return h.Size, nil
}

// Bytes returns a view of n bytes at p. p must lie in the heap segment (any
// address up to the break) or be the payload of a live mapped block.
func (a *Allocator) Bytes(p Ptr, n int) ([]byte, error) {
	return a.resolve(uintptr(p), n)
}

// resolve maps an address range to the memory that backs it.
func (a *Allocator) resolve(addr uintptr, n int) ([]byte, error) {
	if b, ok := a.heapView(addr, n); ok {
		return b, nil
	}
	if b, ok := a.mappedView(addr, n); ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: 0x%x+%d", ErrBadPtr, addr, n)
}

func (a *Allocator) heapView(addr uintptr, n int) ([]byte, bool) {
	base, brk := a.seg.Base(), a.seg.Brk()
	if addr < base || addr > brk {
		return nil, false
	}
	used := a.seg.Bytes()[:brk-base]
	return buf.Slice(used, int(addr-base), n)
}

// mappedView accepts the header address or the payload address of a block.
func (a *Allocator) mappedView(addr uintptr, n int) ([]byte, bool) {
	for _, start := range [2]uintptr{addr, addr - HeaderSize} {
		if region, ok := a.mapped[start]; ok {
			return buf.Slice(region, int(addr-start), n)
		}
	}
	return nil, false
}

// Close unmaps every live large block and releases the segment if New
// created it. The allocator must not be used afterwards.
func (a *Allocator) Close() error {
	var errs []error
	for hdr, region := range a.mapped {
		if err := a.mapper.Unmap(region); err != nil {
			errs = append(errs, fmt.Errorf("%w: 0x%x: %w", ErrUnmap, hdr, err))
		}
		delete(a.mapped, hdr)
	}
	a.stats.liveMappedBytes = 0
	if a.ownSeg {
		errs = append(errs, a.seg.Close())
	}
	return errors.Join(errs...)
}
