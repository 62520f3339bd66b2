// Package format holds the fixed binary layout of allocator metadata: the
// machine-word codec used for chunk headers and the alignment arithmetic used
// to classify request sizes. Nothing in here knows about free lists or the OS.
package format

const (
	// WordSize is the width of one header word. Headers are encoded with
	// 64-bit words regardless of the host word size so the layout is the same
	// on every platform.
	WordSize = 8

	// HeaderWords is the number of words in a chunk header:
	//   0x00  usable size (or total mapped size)
	//   0x08  origin tag
	//   0x10  free-list link
	HeaderWords = 3

	// HeaderSize is the encoded size of a chunk header in bytes.
	HeaderSize = HeaderWords * WordSize

	// SizeOffset, OriginOffset and NextOffset locate the header fields.
	SizeOffset   = 0x00
	OriginOffset = 0x08
	NextOffset   = 0x10
)
