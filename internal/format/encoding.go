package format

import "encoding/binary"

// Header words are little-endian. binary.LittleEndian is inlined by the
// compiler, so there is nothing to gain from unsafe loads here.

// PutWord writes v as one header word at off.
func PutWord(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+WordSize], v)
}

// ReadWord reads one header word at off.
func ReadWord(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+WordSize])
}

// PutAddr writes an address-sized value as one header word.
func PutAddr(b []byte, off int, v uintptr) {
	PutWord(b, off, uint64(v))
}

// ReadAddr reads one header word as an address.
func ReadAddr(b []byte, off int) uintptr {
	return uintptr(ReadWord(b, off))
}
