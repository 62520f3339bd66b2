package alloc

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/brkalloc/internal/osmem"
)

// ============================================================================
// Test Helpers
// ============================================================================

// testEnv bundles an allocator with the fakes behind it.
type testEnv struct {
	a      *Allocator
	seg    osmem.Segment
	mapper *countingMapper
	diag   *bytes.Buffer
}

// newTestEnv builds an allocator over a heap-backed segment of segBytes and a
// counting mapper. A nil config uses DefaultConfig.
func newTestEnv(t testing.TB, cfg *Config, segBytes int) *testEnv {
	t.Helper()

	seg, err := osmem.NewMemSegment(segBytes)
	require.NoError(t, err)
	return newTestEnvWithSegment(t, cfg, seg)
}

func newTestEnvWithSegment(t testing.TB, cfg *Config, seg osmem.Segment) *testEnv {
	t.Helper()

	env := &testEnv{
		seg:    seg,
		mapper: &countingMapper{MemMapper: osmem.NewMemMapper()},
		diag:   &bytes.Buffer{},
	}
	a, err := New(cfg,
		WithSegment(seg),
		WithMapper(env.mapper),
		WithDiagnostics(env.diag),
		WithLogger(slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
	require.NoError(t, err)
	env.a = a
	t.Cleanup(func() {
		_ = a.Close()
		_ = seg.Close()
	})
	return env
}

// newTestAllocator is newTestEnv with a 1 MiB segment, returning only the allocator.
func newTestAllocator(t testing.TB, cfg *Config) *Allocator {
	t.Helper()
	return newTestEnv(t, cfg, 1<<20).a
}

// testWriter sends slog output to t.Log so failures show the allocator's trace.
type testWriter struct{ t testing.TB }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

// countingMapper records Map/Unmap traffic and can be told to fail.
type countingMapper struct {
	*osmem.MemMapper

	maps       int
	unmaps     int
	unmapSizes []int
	lastProt   osmem.Prot

	failMap   error
	failUnmap error

	// truncate, when set, shortens every mapping handed back to the allocator.
	truncate int
}

func (m *countingMapper) Map(n int, prot osmem.Prot) ([]byte, error) {
	if m.failMap != nil {
		return nil, m.failMap
	}
	m.maps++
	m.lastProt = prot
	b, err := m.MemMapper.Map(n, prot)
	if err == nil && m.truncate > 0 {
		b = b[:m.truncate]
	}
	return b, err
}

func (m *countingMapper) Unmap(b []byte) error {
	m.unmaps++
	m.unmapSizes = append(m.unmapSizes, len(b))
	if m.failUnmap != nil {
		return m.failUnmap
	}
	return m.MemMapper.Unmap(b[:cap(b)])
}

// movingSegment simulates another party extending the break: before every
// Sbrk it grabs interlope bytes for itself.
type movingSegment struct {
	osmem.Segment
	interlope int
}

func (s *movingSegment) Sbrk(n int) (uintptr, error) {
	if s.interlope > 0 {
		if _, err := s.Segment.Sbrk(s.interlope); err != nil {
			return 0, err
		}
	}
	return s.Segment.Sbrk(n)
}

// fill writes a repeating tag pattern into n bytes at p.
func fill(t testing.TB, a *Allocator, p Ptr, n int, tag byte) {
	t.Helper()
	b, err := a.Bytes(p, n)
	require.NoError(t, err)
	for i := range b {
		b[i] = tag + byte(i)
	}
}

// requirePattern asserts the pattern written by fill is intact.
func requirePattern(t testing.TB, a *Allocator, p Ptr, n int, tag byte) {
	t.Helper()
	b, err := a.Bytes(p, n)
	require.NoError(t, err)
	for i := range b {
		if b[i] != tag+byte(i) {
			t.Fatalf("pattern at 0x%x broken at byte %d: got 0x%02x want 0x%02x", uintptr(p), i, b[i], tag+byte(i))
		}
	}
}

// defaultBootstrapBytes is BootstrapBytes for DefaultConfig:
// sum over classes 1..64 of (512/(8i)) * (8i + 24).
const defaultBootstrapBytes = 33944

// defaultBootstrapChunks is the number of chunks carved by a default bootstrap.
const defaultBootstrapChunks = 280
