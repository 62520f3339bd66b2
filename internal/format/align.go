package format

// AlignUp rounds n up to the next multiple of align. align must be a power of
// two; use IsPow2 to validate configuration before calling.
//
// Example (align = 8):
//
//	AlignUp(1, 8)  = 8
//	AlignUp(8, 8)  = 8
//	AlignUp(9, 8)  = 16
//	AlignUp(0, 8)  = 0
func AlignUp(n, align int) int {
	mask := align - 1
	return (n + mask) &^ mask
}

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}
