package alloc

import (
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/brkalloc/internal/osmem"
)

// TestAlloc_ZeroSize checks that a zero-byte request returns Nil without
// touching the break, bootstrapping, or mapping anything.
func TestAlloc_ZeroSize(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)
	brk := env.seg.Brk()

	p, err := env.a.Alloc(0)
	require.NoError(t, err)
	assert.Equal(t, Nil, p)
	assert.Equal(t, Nil, env.a.Malloc(0))

	assert.Equal(t, brk, env.seg.Brk(), "break must not move")
	assert.Zero(t, env.mapper.maps)
	s := env.a.Stats()
	assert.Zero(t, s.Bootstraps, "zero-byte request must not bootstrap")
	assert.Zero(t, s.FailedAllocs)
	assert.Equal(t, 2, s.AllocCalls)
}

func TestAlloc_NegativeSize(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)
	brk := env.seg.Brk()

	_, err := env.a.Alloc(-1)
	require.ErrorIs(t, err, ErrInvalidSize)
	_, err = env.a.Alloc(math.MaxInt)
	require.ErrorIs(t, err, ErrInvalidSize)

	assert.Equal(t, brk, env.seg.Brk())
	assert.Equal(t, 2, env.a.Stats().FailedAllocs)
}

// TestAlloc_FirstCallBootstraps checks the bootstrap region layout.
func TestAlloc_FirstCallBootstraps(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)
	base := env.seg.Base()

	p := env.a.Malloc(8)
	require.NotEqual(t, Nil, p)

	assert.Equal(t, base+defaultBootstrapBytes, env.seg.Brk(), "bootstrap extends by exactly its region")
	assert.Equal(t, PayloadOf(base), p, "class 1 is carved first, at the old break")

	s := env.a.Stats()
	assert.Equal(t, 1, s.Bootstraps)
	assert.Equal(t, int64(defaultBootstrapBytes), s.BreakBytes)

	total := 0
	for _, c := range s.Classes {
		assert.Equal(t, DefaultConfig.InitialChunks(c.Class), c.Total, "class %d", c.Class)
		total += c.Total
	}
	assert.Equal(t, defaultBootstrapChunks, total)
	require.NoError(t, env.a.Verify())
}

// TestAlloc_LIFOReuse checks that the last chunk freed in a class is the next
// one handed out, for every class.
func TestAlloc_LIFOReuse(t *testing.T) {
	a := newTestAllocator(t, nil)

	for size := 1; size <= DefaultConfig.MaxSmall; size += 7 {
		p1 := a.Malloc(size)
		require.NotEqual(t, Nil, p1, "size %d", size)
		a.Free(p1)
		p2 := a.Malloc(size)
		require.Equal(t, p1, p2, "size %d", size)
		a.Free(p2)
	}
	require.NoError(t, a.Verify())
}

func TestAlloc_LIFOOrderWithinClass(t *testing.T) {
	a := newTestAllocator(t, nil)

	p1 := a.Malloc(24)
	p2 := a.Malloc(24)
	p3 := a.Malloc(24)
	a.Free(p1)
	a.Free(p3)
	a.Free(p2)

	assert.Equal(t, p2, a.Malloc(24))
	assert.Equal(t, p3, a.Malloc(24))
	assert.Equal(t, p1, a.Malloc(24))
}

// TestAlloc_ClassIsolation checks that every chunk carries exactly the
// granule size its request rounds to, and that classes never share chunks.
func TestAlloc_ClassIsolation(t *testing.T) {
	a := newTestAllocator(t, nil)
	owner := make(map[Ptr]int)

	for round := range 3 {
		for size := 1; size <= DefaultConfig.MaxSmall; size++ {
			p := a.Malloc(size)
			require.NotEqual(t, Nil, p)

			h, err := a.HeaderOf(p)
			require.NoError(t, err)
			rounded := DefaultConfig.Round(size)
			require.Equal(t, rounded, h.Size, "size %d", size)
			require.Equal(t, OriginHeap, h.Origin)
			require.True(t, h.InUse())

			class := DefaultConfig.ClassOf(rounded)
			if prev, seen := owner[p]; seen {
				require.Equal(t, prev, class, "chunk 0x%x moved between classes", uintptr(p))
			}
			owner[p] = class

			// Free every other chunk so later rounds mix reused and fresh chunks.
			if (size+round)%2 == 0 {
				a.Free(p)
			}
		}
	}
	require.NoError(t, a.Verify())
}

// TestAlloc_LargePath checks the mapping path header and its release.
func TestAlloc_LargePath(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)

	p := env.a.Malloc(1000)
	require.NotEqual(t, Nil, p)
	require.Equal(t, 1, env.mapper.maps)
	assert.Equal(t, osmem.ProtRead|osmem.ProtWrite|osmem.ProtExec, env.mapper.lastProt)

	h, err := env.a.HeaderOf(p)
	require.NoError(t, err)
	assert.Equal(t, OriginMapped, h.Origin)
	assert.Equal(t, HeaderSize+1000, h.Size)

	usable, err := env.a.UsableSize(p)
	require.NoError(t, err)
	assert.Equal(t, 1000, usable)

	fill(t, env.a, p, 1000, 0x40)
	requirePattern(t, env.a, p, 1000, 0x40)

	s := env.a.Stats()
	assert.Equal(t, 1, s.LargeAllocs)
	assert.Equal(t, 1, s.LiveMapped)
	assert.Equal(t, int64(HeaderSize+1000), s.LiveMappedBytes)

	env.a.Free(p)
	require.Equal(t, 1, env.mapper.unmaps, "exactly one unmap")
	assert.Equal(t, []int{HeaderSize + 1000}, env.mapper.unmapSizes)
	assert.Zero(t, env.mapper.Live())

	s = env.a.Stats()
	assert.Zero(t, s.LiveMapped)
	assert.Zero(t, s.LiveMappedBytes)

	_, err = env.a.HeaderOf(p)
	require.ErrorIs(t, err, ErrBadPtr, "released block no longer resolves")
}

func TestAlloc_ThresholdBoundary(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)

	small := env.a.Malloc(512)
	h, err := env.a.HeaderOf(small)
	require.NoError(t, err)
	assert.Equal(t, OriginHeap, h.Origin)
	assert.Equal(t, 512, h.Size)

	large := env.a.Malloc(513)
	h, err = env.a.HeaderOf(large)
	require.NoError(t, err)
	assert.Equal(t, OriginMapped, h.Origin)
	assert.Equal(t, HeaderSize+513, h.Size, "mapping uses the unrounded request")
}

func TestAlloc_LargeBootstrapsFirst(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)

	p := env.a.Malloc(4096)
	require.NotEqual(t, Nil, p)
	assert.Equal(t, 1, env.a.Stats().Bootstraps, "any first allocation bootstraps the classes")
}

func TestAlloc_NoExecMappings(t *testing.T) {
	cfg := DefaultConfig
	cfg.ExecMappings = false
	env := newTestEnv(t, &cfg, 1<<20)

	require.NotEqual(t, Nil, env.a.Malloc(2048))
	assert.Equal(t, osmem.ProtRead|osmem.ProtWrite, env.mapper.lastProt)
}

func TestAlloc_MapFailure(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)
	env.mapper.failMap = errors.New("ENOMEM")

	p, err := env.a.Alloc(1 << 16)
	assert.Equal(t, Nil, p)
	require.ErrorIs(t, err, ErrMapFailed)
	assert.Equal(t, Nil, env.a.Malloc(1<<16))
	assert.Equal(t, 2, env.a.Stats().FailedAllocs)
}

// TestFree_Nil checks that freeing Nil is a no-op.
func TestFree_Nil(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)
	require.NoError(t, env.a.Release(Nil))
	env.a.Free(Nil)
	assert.Zero(t, env.mapper.unmaps)
	assert.Zero(t, env.a.Stats().Bootstraps)
}

func TestFree_UnmapFailureWritesDiagnostic(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)

	p := env.a.Malloc(4000)
	require.NotEqual(t, Nil, p)

	env.mapper.failUnmap = errors.New("EINVAL")
	err := env.a.Release(p)
	require.ErrorIs(t, err, ErrUnmap)
	assert.Equal(t, unmapDiagnostic, env.diag.String())

	env.a.Free(p)
	assert.Equal(t, unmapDiagnostic+unmapDiagnostic, env.diag.String())

	s := env.a.Stats()
	assert.Equal(t, 2, s.UnmapFailures)
	assert.Equal(t, 1, s.LiveMapped, "block stays mapped after a failed unmap")

	env.mapper.failUnmap = nil
	require.NoError(t, env.a.Release(p))
	assert.Zero(t, env.a.Stats().LiveMapped)
}

func TestFree_UnresolvablePointer(t *testing.T) {
	a := newTestAllocator(t, nil)
	require.NotEqual(t, Nil, a.Malloc(8))

	err := a.Release(Ptr(0x1000))
	require.ErrorIs(t, err, ErrBadPtr)
}

// TestRealloc_Truncation checks that shrinking keeps the leading bytes.
func TestRealloc_Truncation(t *testing.T) {
	a := newTestAllocator(t, nil)

	p := a.Malloc(16)
	fill(t, a, p, 16, 0xA0)

	q := a.Realloc(p, 4)
	require.NotEqual(t, Nil, q)
	require.NotEqual(t, p, q, "no shrink in place")
	requirePattern(t, a, q, 4, 0xA0)

	h, err := a.HeaderOf(q)
	require.NoError(t, err)
	assert.Equal(t, 8, h.Size, "4 rounds to the 8-byte class")

	assert.Equal(t, p, a.Malloc(16), "old block was freed")
}

func TestRealloc_GrowSmallToLarge(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)
	a := env.a

	p := a.Malloc(100)
	fill(t, a, p, 100, 0x11)

	q := a.Realloc(p, 3000)
	require.NotEqual(t, Nil, q)
	requirePattern(t, a, q, 100, 0x11)

	h, err := a.HeaderOf(q)
	require.NoError(t, err)
	assert.Equal(t, OriginMapped, h.Origin)
	assert.Equal(t, HeaderSize+3000, h.Size)
	assert.Equal(t, p, a.Malloc(100), "old chunk back on its list")
}

func TestRealloc_LargeToSmallCopiesPayloadOnly(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)
	a := env.a

	p := a.Malloc(1000)
	fill(t, a, p, 1000, 0x22)

	q := a.Realloc(p, 100)
	require.NotEqual(t, Nil, q)
	requirePattern(t, a, q, 100, 0x22)
	assert.Equal(t, 1, env.mapper.unmaps)
}

func TestRealloc_LargeToLargerClampsToPayload(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)
	a := env.a

	// The stored size counts the header, so min(stored, rounded) exceeds the
	// old payload. Only the real payload may be copied.
	p := a.Malloc(1000)
	fill(t, a, p, 1000, 0x33)

	q := a.Realloc(p, 1010)
	require.NotEqual(t, Nil, q)
	requirePattern(t, a, q, 1000, 0x33)
}

func TestRealloc_NilIsAlloc(t *testing.T) {
	a := newTestAllocator(t, nil)

	p := a.Realloc(Nil, 10)
	require.NotEqual(t, Nil, p)
	h, err := a.HeaderOf(p)
	require.NoError(t, err)
	assert.Equal(t, 16, h.Size)
}

func TestRealloc_ZeroFrees(t *testing.T) {
	a := newTestAllocator(t, nil)

	p := a.Malloc(40)
	assert.Equal(t, Nil, a.Realloc(p, 0))
	assert.Equal(t, p, a.Malloc(40), "realloc to zero released the block")
}

func TestRealloc_FailureStillReleasesOld(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)
	a := env.a

	p := a.Malloc(64)
	env.mapper.failMap = errors.New("ENOMEM")

	q, err := a.Resize(p, 5000)
	assert.Equal(t, Nil, q)
	require.ErrorIs(t, err, ErrMapFailed)
	assert.Equal(t, p, a.Malloc(64), "old block is freed even when the new allocation fails")
}

func TestRealloc_InvalidSize(t *testing.T) {
	a := newTestAllocator(t, nil)

	p := a.Malloc(8)
	_, err := a.Resize(p, -5)
	require.ErrorIs(t, err, ErrInvalidSize)
	assert.Equal(t, p, a.Malloc(8), "old block is released on an invalid size")

	q := a.Malloc(16)
	free := a.Stats().Classes[1].Free
	assert.Equal(t, Nil, a.Realloc(q, math.MaxInt))
	assert.Equal(t, free+1, a.Stats().Classes[1].Free)
	require.NoError(t, a.Verify())

	_, err = a.Resize(Nil, -1)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestRealloc_CopyFailureReleasesBoth(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)
	a := env.a

	p := a.Malloc(64)
	fill(t, a, p, 64, 0x5a)
	env.mapper.truncate = HeaderSize + 8

	q, err := a.Resize(p, 4096)
	assert.Equal(t, Nil, q)
	require.ErrorIs(t, err, ErrBadPtr)

	assert.Equal(t, 1, env.mapper.maps)
	assert.Equal(t, 1, a.Stats().UnmapFailures, "the new block is handed back, not leaked")
	assert.Equal(t, p, a.Malloc(64), "old block is released")
}

func TestNew_DefaultLoggerDiscards(t *testing.T) {
	seg, err := osmem.NewMemSegment(1 << 20)
	require.NoError(t, err)
	a, err := New(nil, WithSegment(seg), WithMapper(osmem.NewMemMapper()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
		_ = seg.Close()
	})

	assert.False(t, a.log.Enabled(t.Context(), slog.LevelError))
}

// TestScenario_ReverseFreeReuse allocates 100 8-byte blocks, frees them in
// reverse order and checks the next 100 allocations reuse exactly those
// addresses, each once.
func TestScenario_ReverseFreeReuse(t *testing.T) {
	a := newTestAllocator(t, nil)

	first := make([]Ptr, 100)
	seen := make(map[Ptr]bool)
	for i := range first {
		first[i] = a.Malloc(8)
		require.NotEqual(t, Nil, first[i])
		require.False(t, seen[first[i]], "duplicate address")
		seen[first[i]] = true
	}
	assert.Equal(t, 1, a.Stats().GrowCalls, "64 bootstrap chunks, then one growth")

	for i := len(first) - 1; i >= 0; i-- {
		a.Free(first[i])
	}
	require.NoError(t, a.Verify())

	for i := range first {
		p := a.Malloc(8)
		require.Equal(t, first[i], p, "allocation %d", i)
		require.True(t, seen[p], "reused an address that was not freed")
		delete(seen, p)
	}
	assert.Empty(t, seen, "every freed address reused exactly once")
	assert.Equal(t, 1, a.Stats().GrowCalls, "reuse must not grow")
}

func TestBytes_Bounds(t *testing.T) {
	a := newTestAllocator(t, nil)
	p := a.Malloc(8)

	_, err := a.Bytes(p, 8)
	require.NoError(t, err)

	_, err = a.Bytes(Ptr(1), 8)
	require.ErrorIs(t, err, ErrBadPtr)

	large := a.Malloc(600)
	_, err = a.Bytes(large, 600)
	require.NoError(t, err)
	_, err = a.Bytes(large, 601)
	require.ErrorIs(t, err, ErrBadPtr, "view may not run past the mapping")
}

func TestClose_UnmapsLiveBlocks(t *testing.T) {
	env := newTestEnv(t, nil, 1<<20)

	env.a.Malloc(5000)
	env.a.Malloc(6000)
	require.Equal(t, 2, env.mapper.Live())

	require.NoError(t, env.a.Close())
	assert.Zero(t, env.mapper.Live())
	assert.Zero(t, env.a.Stats().LiveMapped)
}

func TestStats_Counters(t *testing.T) {
	a := newTestAllocator(t, nil)

	p := a.Malloc(10)
	q := a.Malloc(700)
	r := a.Realloc(p, 20)
	a.Free(q)
	a.Free(r)
	a.Calloc(2, 2)

	s := a.Stats()
	assert.Equal(t, 3, s.AllocCalls, "Realloc allocates through Alloc")
	assert.Equal(t, 3, s.FreeCalls, "Realloc releases through Release")
	assert.Equal(t, 1, s.ReallocCalls)
	assert.Equal(t, 1, s.ZeroCalls)
	assert.Equal(t, 2, s.SmallAllocs)
	assert.Equal(t, 1, s.LargeAllocs)
	assert.Equal(t, int64(4), s.ZeroBytes)
	require.Len(t, s.Classes, 64)
	assert.Equal(t, 8, s.Classes[0].Size)
	assert.Equal(t, 0, s.Classes[1].InUse())
}
