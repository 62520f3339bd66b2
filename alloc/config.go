package alloc

import (
	"fmt"

	"github.com/joshuapare/brkalloc/internal/format"
)

// ZeroMode selects how Calloc obtains memory.
type ZeroMode uint8

const (
	// ZeroBump extends the break directly and returns headerless zeroed bytes.
	ZeroBump ZeroMode = iota
	// ZeroRouted serves the request through Alloc and zeroes the payload.
	ZeroRouted
)

func (m ZeroMode) String() string {
	switch m {
	case ZeroBump:
		return "bump"
	case ZeroRouted:
		return "routed"
	default:
		return fmt.Sprintf("ZeroMode(%d)", uint8(m))
	}
}

// Config defines the size-class geometry and heap policy of an Allocator.
type Config struct {
	// Name for this configuration (for benchmarks and reports)
	Name string

	// Align is the rounding granule applied to every request. Power of two.
	Align int

	// MaxSmall is the largest rounded size served from a size class.
	// Anything above it is mapped individually.
	MaxSmall int

	// InitListBytes is the payload budget per class at bootstrap. Class i
	// receives InitListBytes/(i*Align) chunks.
	InitListBytes int

	// GrowBytes is the payload budget of one growth step for one class.
	GrowBytes int

	// SegmentBytes is the reservation backing the heap break.
	SegmentBytes int

	// ZeroCeiling bounds the break for ZeroBump allocations, measured from
	// the segment base. 0 means twice BootstrapBytes.
	ZeroCeiling int

	ZeroMode ZeroMode

	// ExecMappings adds execute permission to large-block mappings.
	ExecMappings bool
}

// Predefined configurations.
var (
	// DefaultConfig: 8-byte granule, 64 classes up to 512 bytes, 512-byte
	// bootstrap and growth budgets.
	DefaultConfig = Config{
		Name:          "Default",
		Align:         8,
		MaxSmall:      512,
		InitListBytes: 512,
		GrowBytes:     512,
		SegmentBytes:  64 << 20,
		ZeroMode:      ZeroBump,
		ExecMappings:  true,
	}

	// ConfigWide: 16-byte granule, 64 classes up to 1KB, larger growth steps
	// so busy classes extend the break less often.
	ConfigWide = Config{
		Name:          "Wide",
		Align:         16,
		MaxSmall:      1024,
		InitListBytes: 1024,
		GrowBytes:     4096,
		SegmentBytes:  256 << 20,
		ZeroMode:      ZeroBump,
		ExecMappings:  true,
	}
)

// Validate reports whether c describes a usable class table.
func (c Config) Validate() error {
	switch {
	case !format.IsPow2(c.Align):
		return fmt.Errorf("%w: Align %d is not a power of two", ErrBadConfig, c.Align)
	case c.MaxSmall <= 0 || c.MaxSmall%c.Align != 0:
		return fmt.Errorf("%w: MaxSmall %d is not a positive multiple of Align %d",
			ErrBadConfig, c.MaxSmall, c.Align)
	case c.InitListBytes < c.MaxSmall:
		return fmt.Errorf("%w: InitListBytes %d < MaxSmall %d leaves classes empty at bootstrap",
			ErrBadConfig, c.InitListBytes, c.MaxSmall)
	case c.GrowBytes < c.MaxSmall:
		return fmt.Errorf("%w: GrowBytes %d < MaxSmall %d", ErrBadConfig, c.GrowBytes, c.MaxSmall)
	case c.SegmentBytes <= 0:
		return fmt.Errorf("%w: SegmentBytes %d", ErrBadConfig, c.SegmentBytes)
	case c.ZeroCeiling < 0:
		return fmt.Errorf("%w: ZeroCeiling %d", ErrBadConfig, c.ZeroCeiling)
	case c.ZeroMode > ZeroRouted:
		return fmt.Errorf("%w: %v", ErrBadConfig, c.ZeroMode)
	}
	return nil
}

// NumClasses returns the number of free-list slots, including the unused slot 0.
func (c Config) NumClasses() int {
	return c.MaxSmall/c.Align + 1
}

// ClassSize returns the granule size of class i.
func (c Config) ClassSize(class int) int {
	return class * c.Align
}

// ClassOf returns the class index for a rounded size, or 0 when the size is
// served by mapping.
func (c Config) ClassOf(rounded int) int {
	if rounded <= 0 || rounded > c.MaxSmall {
		return 0
	}
	return rounded / c.Align
}

// Round rounds n up to the granule.
func (c Config) Round(n int) int {
	return format.AlignUp(n, c.Align)
}

// InitialChunks returns how many chunks class i receives at bootstrap.
func (c Config) InitialChunks(class int) int {
	return c.InitListBytes / c.ClassSize(class)
}

// GrowthChunks returns how many chunks one growth step adds to class i.
func (c Config) GrowthChunks(class int) int {
	return max(1, c.GrowBytes/c.ClassSize(class))
}

// BootstrapBytes returns the exact size of the bootstrap region.
func (c Config) BootstrapBytes() int {
	total := 0
	for class := 1; class < c.NumClasses(); class++ {
		total += c.InitialChunks(class) * (c.ClassSize(class) + HeaderSize)
	}
	return total
}

// zeroCeiling returns the effective ZeroBump ceiling offset.
func (c Config) zeroCeiling() int {
	if c.ZeroCeiling > 0 {
		return c.ZeroCeiling
	}
	return 2 * c.BootstrapBytes()
}

func (c Config) String() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("align=%d max=%d", c.Align, c.MaxSmall)
}
