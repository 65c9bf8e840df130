package freelist

import "github.com/kshku/SnMemory/internal/addr"

// The byte immediately preceding every payload pointer this allocator hands
// out encodes, as a little-endian base-128 varint laid out *backward*
// (growing toward lower addresses, toward the owning node's header), the
// distance from the payload back to the start of that header. This lets
// Free and Reallocate recover the header from a bare pointer without a
// fixed-size header-to-payload gap, while still allowing arbitrary
// alignment padding between the two.
//
// Encoding: the 7 low bits of each byte hold 7 bits of the value; bit 7 is
// set on every byte except the last one written (which ends up at the
// lowest address, i.e. closest to the header) to mark "more bytes follow
// toward lower addresses".

const continuationBit = 0x80

// writeBackPointer encodes offset (> 0) into the bytes immediately
// preceding payload, growing toward lower addresses.
func writeBackPointer(payload addr.Addr, offset uint64) {
	p := payload.Minus(1)
	for offset != 0 {
		*addr.Cast[byte](p) = byte(offset&0x7f) | continuationBit
		offset >>= 7
		p = p.Minus(1)
	}
	// p now points one byte below the last byte written; step back up to
	// it and clear its continuation bit, marking the end of the varint.
	last := p.Add(1)
	*addr.Cast[byte](last) &^= continuationBit
}

// readBackPointer decodes the varint immediately preceding payload.
func readBackPointer(payload addr.Addr) uint64 {
	p := payload.Minus(1)
	var value uint64
	var shift uint
	for {
		b := *addr.Cast[byte](p)
		if b&continuationBit != 0 {
			value |= uint64(b&^continuationBit) << shift
			shift += 7
			p = p.Minus(1)
			continue
		}
		value |= uint64(b) << shift
		return value
	}
}
