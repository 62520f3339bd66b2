package alloc

import (
	"fmt"
	"testing"

	"github.com/joshuapare/brkalloc/internal/osmem"
)

// newBenchAllocator builds an allocator over a heap-backed segment without
// logging, so benchmarks measure the free lists only.
func newBenchAllocator(b *testing.B, cfg *Config, segBytes int) *Allocator {
	b.Helper()
	seg, err := osmem.NewMemSegment(segBytes)
	if err != nil {
		b.Fatal(err)
	}
	a, err := New(cfg, WithSegment(seg), WithMapper(osmem.NewMemMapper()))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = a.Close() })
	return a
}

func BenchmarkMallocFree(b *testing.B) {
	for _, size := range []int{8, 64, 256, 512} {
		b.Run(sizeName(size), func(b *testing.B) {
			a := newBenchAllocator(b, nil, 1<<20)
			b.ReportAllocs()
			for b.Loop() {
				a.Free(a.Malloc(size))
			}
		})
	}
}

func BenchmarkMallocBurst(b *testing.B) {
	for _, cfg := range []Config{DefaultConfig, ConfigWide} {
		b.Run(cfg.String(), func(b *testing.B) {
			a := newBenchAllocator(b, &cfg, 64<<20)
			ptrs := make([]Ptr, 1024)
			b.ReportAllocs()
			for b.Loop() {
				for i := range ptrs {
					ptrs[i] = a.Malloc(8 + (i%64)*8)
				}
				for _, p := range ptrs {
					a.Free(p)
				}
			}
		})
	}
}

func BenchmarkRealloc(b *testing.B) {
	a := newBenchAllocator(b, nil, 1<<20)
	p := a.Malloc(16)
	b.ReportAllocs()
	for b.Loop() {
		p = a.Realloc(p, 128)
		p = a.Realloc(p, 16)
	}
}

func BenchmarkLargeAlloc(b *testing.B) {
	a := newBenchAllocator(b, nil, 1<<20)
	b.ReportAllocs()
	for b.Loop() {
		a.Free(a.Malloc(4096))
	}
}

func sizeName(n int) string { return fmt.Sprintf("%dB", n) }
