// Package workload drives an allocator with a reproducible random mix of
// malloc, free, realloc and calloc calls and checks every live block's
// contents before it is freed or moved.
package workload

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/joshuapare/brkalloc/alloc"
)

// ErrCorruptBlock indicates a live block's contents changed behind its owner's back.
var ErrCorruptBlock = errors.New("workload: block contents corrupted")

// Op identifies one operation kind.
type Op uint8

const (
	OpMalloc Op = iota
	OpFree
	OpRealloc
	OpCalloc
)

func (o Op) String() string {
	switch o {
	case OpMalloc:
		return "malloc"
	case OpFree:
		return "free"
	case OpRealloc:
		return "realloc"
	case OpCalloc:
		return "calloc"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// Options configures a Driver.
type Options struct {
	Seed    uint64
	MaxSize int  // largest request; 0 means 1024
	Verify  bool // run Allocator.Verify after every step
}

type block struct {
	p    alloc.Ptr
	size int
	tag  byte
}

// Driver issues random operations against one allocator.
type Driver struct {
	a       *alloc.Allocator
	rng     *rand.Rand
	maxSize int
	verify  bool
	routed  bool

	live  []block
	steps int
	ops   [4]int

	// CeilingHits counts bump-mode calloc requests refused by the zero ceiling.
	CeilingHits int
}

// New returns a Driver for a.
func New(a *alloc.Allocator, opts Options) *Driver {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &Driver{
		a:       a,
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		maxSize: maxSize,
		verify:  opts.Verify,
		routed:  a.Config().ZeroMode == alloc.ZeroRouted,
	}
}

// Live returns the number of blocks the driver currently owns.
func (d *Driver) Live() int { return len(d.live) }

// Steps returns the number of completed steps.
func (d *Driver) Steps() int { return d.steps }

// Count returns how many times op has been issued.
func (d *Driver) Count(op Op) int { return d.ops[op] }

// Run performs n steps, stopping at the first error.
func (d *Driver) Run(n int) error {
	for range n {
		if err := d.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step performs one random operation. Half the steps allocate, three in ten
// free, one resizes and one zero-allocates. Bump-mode calloc results are not
// kept because they cannot be freed.
func (d *Driver) Step() error {
	step := d.steps
	d.steps++

	var err error
	switch r := d.rng.IntN(10); {
	case r < 5 || len(d.live) == 0:
		d.ops[OpMalloc]++
		b := block{size: 1 + d.rng.IntN(d.maxSize), tag: byte(step)}
		if b.p, err = d.a.Alloc(b.size); err == nil {
			d.live = append(d.live, b)
			err = d.stamp(b)
		}
	case r < 8:
		d.ops[OpFree]++
		i := d.rng.IntN(len(d.live))
		if err = d.check(d.live[i], d.live[i].size); err == nil {
			err = d.a.Release(d.live[i].p)
			d.live[i] = d.live[len(d.live)-1]
			d.live = d.live[:len(d.live)-1]
		}
	case r < 9:
		d.ops[OpRealloc]++
		i := d.rng.IntN(len(d.live))
		old := d.live[i]
		size := 1 + d.rng.IntN(d.maxSize)
		var p alloc.Ptr
		if p, err = d.a.Resize(old.p, size); err == nil {
			nb := block{p: p, size: size, tag: old.tag}
			if err = d.check(nb, min(old.size, size)); err == nil {
				d.live[i] = nb
				err = d.stamp(nb)
			}
		}
	default:
		d.ops[OpCalloc]++
		n := 1 + d.rng.IntN(d.maxSize/8+1)
		var p alloc.Ptr
		if p, err = d.a.ZeroAlloc(n, 8); err == nil && d.routed {
			b := block{p: p, size: n * 8, tag: byte(step)}
			d.live = append(d.live, b)
			err = d.stamp(b)
		}
		if errors.Is(err, alloc.ErrCeiling) {
			d.CeilingHits++
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("step %d: %w", step, err)
	}
	if d.verify {
		if err := d.a.Verify(); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
	}
	return nil
}

// Drain checks and frees every live block.
func (d *Driver) Drain() error {
	for _, b := range d.live {
		if err := d.check(b, b.size); err != nil {
			return err
		}
		if err := d.a.Release(b.p); err != nil {
			return err
		}
	}
	d.live = d.live[:0]
	return nil
}

func (d *Driver) stamp(b block) error {
	mem, err := d.a.Bytes(b.p, b.size)
	if err != nil {
		return err
	}
	for i := range mem {
		mem[i] = b.tag + byte(i)
	}
	return nil
}

func (d *Driver) check(b block, n int) error {
	mem, err := d.a.Bytes(b.p, n)
	if err != nil {
		return err
	}
	for i, v := range mem {
		if v != b.tag+byte(i) {
			return fmt.Errorf("%w: 0x%x byte %d", ErrCorruptBlock, uintptr(b.p), i)
		}
	}
	return nil
}
