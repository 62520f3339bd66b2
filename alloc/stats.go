package alloc

// counters is the internal, mutable form of Stats.
type counters struct {
	allocCalls      int
	freeCalls       int
	reallocCalls    int
	zeroCalls       int
	smallAllocs     int
	largeAllocs     int
	failed          int
	bootstraps      int
	growCalls       int
	growBytes       int64
	breakBytes      int64
	zeroBytes       int64
	liveMappedBytes int64
	unmapFailures   int
}

// Stats is a snapshot of allocator activity.
type Stats struct {
	AllocCalls   int // Alloc/Malloc calls, including zero-byte requests
	FreeCalls    int // Release/Free calls, including Nil
	ReallocCalls int
	ZeroCalls    int

	SmallAllocs  int // served from a size class
	LargeAllocs  int // served by a mapping
	FailedAllocs int // Nil results caused by an error

	Bootstraps int   // 1 once bootstrap has succeeded
	GrowCalls  int   // per-class growth steps
	GrowBytes  int64 // bytes carved by growth
	BreakBytes int64 // bytes the break advanced on the allocator's behalf
	ZeroBytes  int64 // bytes handed out by ZeroAlloc

	LiveMapped      int   // large blocks currently mapped
	LiveMappedBytes int64 // their total size, headers included
	UnmapFailures   int

	Classes []ClassStat // one entry per class, index 1 first
}

// ClassStat describes one size class.
type ClassStat struct {
	Class int
	Size  int // granule size in bytes
	Total int // chunks ever carved
	Free  int // chunks on the free list
}

// InUse returns the number of chunks of the class owned by callers.
func (c ClassStat) InUse() int { return c.Total - c.Free }

// Stats returns a snapshot of the allocator's counters and class table.
func (a *Allocator) Stats() Stats {
	s := Stats{
		AllocCalls:      a.stats.allocCalls,
		FreeCalls:       a.stats.freeCalls,
		ReallocCalls:    a.stats.reallocCalls,
		ZeroCalls:       a.stats.zeroCalls,
		SmallAllocs:     a.stats.smallAllocs,
		LargeAllocs:     a.stats.largeAllocs,
		FailedAllocs:    a.stats.failed,
		Bootstraps:      a.stats.bootstraps,
		GrowCalls:       a.stats.growCalls,
		GrowBytes:       a.stats.growBytes,
		BreakBytes:      a.stats.breakBytes,
		ZeroBytes:       a.stats.zeroBytes,
		LiveMapped:      len(a.mapped),
		LiveMappedBytes: a.stats.liveMappedBytes,
		UnmapFailures:   a.stats.unmapFailures,
		Classes:         make([]ClassStat, 0, len(a.classes)-1),
	}
	for class := 1; class < len(a.classes); class++ {
		s.Classes = append(s.Classes, ClassStat{
			Class: class,
			Size:  a.cfg.ClassSize(class),
			Total: a.classes[class].total,
			Free:  a.classes[class].free,
		})
	}
	return s
}
