// Package buf contains overflow-safe size arithmetic and bounds-checked
// slicing used when turning caller-supplied sizes and addresses into views of
// the heap segment or a mapped region.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies a and b, returning ok = false when the result would overflow int.
// Used for count * elementSize in zero-allocation requests.
func MulOverflowSafe(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > 0 && b > 0 && a > math.MaxInt/b {
		return 0, false
	}
	if a < 0 && b < 0 && a < math.MaxInt/b {
		return 0, false
	}
	if a > 0 && b < 0 && b < math.MinInt/a {
		return 0, false
	}
	if a < 0 && b > 0 && a < math.MinInt/b {
		return 0, false
	}
	return a * b, true
}

// ByteCount computes count*size for a request, rejecting negative operands
// and products that overflow int.
//
//	total, err := buf.ByteCount(count, size)
//	if err != nil {
//	    return fmt.Errorf("calloc: %w", err)
//	}
func ByteCount(count, size int) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("negative count: %d", count)
	}
	if size < 0 {
		return 0, fmt.Errorf("negative element size: %d", size)
	}
	total, ok := MulOverflowSafe(count, size)
	if !ok {
		return 0, fmt.Errorf("overflow: count=%d * size=%d", count, size)
	}
	return total, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}
