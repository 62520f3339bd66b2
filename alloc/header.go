package alloc

import "github.com/joshuapare/brkalloc/internal/format"

// PayloadOf returns the payload address for the header at hdr.
func PayloadOf(hdr uintptr) Ptr {
	return Ptr(hdr + HeaderSize)
}

// HeaderAddr returns the header address for payload p.
func HeaderAddr(p Ptr) uintptr {
	return uintptr(p) - HeaderSize
}

// encodeHeader writes h into b[0:HeaderSize].
func encodeHeader(b []byte, h Header) {
	format.PutWord(b, format.SizeOffset, uint64(h.Size))
	format.PutWord(b, format.OriginOffset, uint64(h.Origin))
	format.PutAddr(b, format.NextOffset, h.Next)
}

// decodeHeader reads a header from b[0:HeaderSize].
func decodeHeader(b []byte) Header {
	return Header{
		Size:   int(format.ReadWord(b, format.SizeOffset)),
		Origin: Origin(format.ReadWord(b, format.OriginOffset)),
		Next:   format.ReadAddr(b, format.NextOffset),
	}
}

// link and setLink touch only the next word, which is all the free-list
// push and pop paths need.
func link(b []byte) uintptr {
	return format.ReadAddr(b, format.NextOffset)
}

func setLink(b []byte, next uintptr) {
	format.PutAddr(b, format.NextOffset, next)
}
