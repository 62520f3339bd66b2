/*
Package malloc exposes a process-wide allocator with C-shaped entry points.

# Quick Start

	p := malloc.Malloc(64)
	b, _ := malloc.Bytes(p, 64)
	copy(b, "hello")
	p = malloc.Realloc(p, 128)
	malloc.Free(p)

The default instance is created on first use with alloc.DefaultConfig over a
reserved anonymous segment. Every call takes one package mutex, so the
functions are safe for concurrent use; the underlying *alloc.Allocator is
not.

# Failure

Every failure is reported as alloc.Nil. Use Configure with a logger to see
why a call failed, or build an alloc.Allocator directly to get error
results.
*/
package malloc

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/joshuapare/brkalloc/alloc"
)

// ErrConfigured is returned by Configure once the default instance exists.
var ErrConfigured = errors.New("malloc: default allocator already created")

var (
	mu      sync.Mutex
	def     *alloc.Allocator
	initErr error

	pendingCfg  *alloc.Config
	pendingOpts []alloc.Option
)

// Configure sets the config and options used to create the default instance.
// It must be called before the first allocation.
func Configure(cfg *alloc.Config, opts ...alloc.Option) error {
	mu.Lock()
	defer mu.Unlock()

	if def != nil || initErr != nil {
		return ErrConfigured
	}
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	pendingCfg = cfg
	pendingOpts = opts
	return nil
}

// instance returns the default allocator, creating it on first use.
// Callers hold mu.
func instance() *alloc.Allocator {
	if def == nil && initErr == nil {
		def, initErr = alloc.New(pendingCfg, pendingOpts...)
		if initErr != nil {
			slog.Default().Error("malloc: default allocator unavailable", "err", initErr)
		}
	}
	return def
}

// Malloc returns at least size usable bytes, or Nil.
func Malloc(size int) alloc.Ptr {
	mu.Lock()
	defer mu.Unlock()
	a := instance()
	if a == nil {
		return alloc.Nil
	}
	return a.Malloc(size)
}

// Free releases p. Nil is a no-op.
func Free(p alloc.Ptr) {
	mu.Lock()
	defer mu.Unlock()
	if a := instance(); a != nil {
		a.Free(p)
	}
}

// Realloc moves p to a block of size bytes and frees p.
func Realloc(p alloc.Ptr, size int) alloc.Ptr {
	mu.Lock()
	defer mu.Unlock()
	a := instance()
	if a == nil {
		return alloc.Nil
	}
	return a.Realloc(p, size)
}

// Calloc returns count*size zeroed bytes, or Nil.
func Calloc(count, size int) alloc.Ptr {
	mu.Lock()
	defer mu.Unlock()
	a := instance()
	if a == nil {
		return alloc.Nil
	}
	return a.Calloc(count, size)
}

// Bytes returns a view of n bytes at p. The view stays valid until p is freed.
func Bytes(p alloc.Ptr, n int) ([]byte, error) {
	mu.Lock()
	defer mu.Unlock()
	a := instance()
	if a == nil {
		return nil, initErr
	}
	return a.Bytes(p, n)
}

// Stats returns a snapshot of the default instance's counters.
func Stats() alloc.Stats {
	mu.Lock()
	defer mu.Unlock()
	a := instance()
	if a == nil {
		return alloc.Stats{}
	}
	return a.Stats()
}

// reset closes the default instance and forgets any pending configuration.
func reset() error {
	mu.Lock()
	defer mu.Unlock()

	var err error
	if def != nil {
		err = def.Close()
	}
	def, initErr = nil, nil
	pendingCfg, pendingOpts = nil, nil
	return err
}
