package alloc

import (
	"io"
	"log/slog"

	"github.com/joshuapare/brkalloc/internal/osmem"
)

// Option configures an Allocator at construction.
type Option func(*options)

type options struct {
	seg    osmem.Segment
	mapper osmem.Mapper
	logger *slog.Logger
	diag   io.Writer
}

// WithSegment supplies the heap segment. The caller keeps ownership: Close
// does not release it.
func WithSegment(seg osmem.Segment) Option {
	return func(o *options) {
		o.seg = seg
	}
}

// WithMapper supplies the mapper used for large blocks.
func WithMapper(m osmem.Mapper) Option {
	return func(o *options) {
		o.mapper = m
	}
}

// WithLogger routes allocator logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDiagnostics replaces the fd-1 diagnostic channel used to report unmap failures.
func WithDiagnostics(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.diag = w
		}
	}
}
