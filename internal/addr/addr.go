// Package addr confines the raw pointer arithmetic shared by every
// allocator to one small, exclusively-unsafe module.
//
// Every allocator package stores its buffer as a base Addr plus a size and
// derives every other pointer it hands out or consumes through the helpers
// here, instead of touching package unsafe directly. This mirrors the
// "Addr[T] core module" pattern the rest of this codebase's ancestry uses
// for arena pointer math, adapted to address a caller-owned []byte instead
// of a GC-managed chunk.
package addr

import "unsafe"

// Addr is a raw byte address inside some caller-owned buffer.
//
// A zero Addr denotes "no address" (analogous to a null pointer); it must
// never be dereferenced.
type Addr uintptr

// Of returns the Addr of the memory p points to.
func Of(p unsafe.Pointer) Addr { return Addr(uintptr(p)) }

// OfSlice returns the Addr of the first byte of b.
//
// OfSlice of an empty slice returns 0, since there is no backing byte to
// take the address of.
func OfSlice(b []byte) Addr {
	if len(b) == 0 {
		return 0
	}
	return Of(unsafe.Pointer(unsafe.SliceData(b)))
}

// Valid reports whether a is non-zero.
func (a Addr) Valid() bool { return a != 0 }

// Pointer converts a back into an unsafe.Pointer.
func (a Addr) Pointer() unsafe.Pointer { return unsafe.Pointer(a) } //nolint:govet

// Add returns a+n.
func (a Addr) Add(n uint64) Addr { return a + Addr(n) }

// Sub returns a-b, the distance in bytes from b to a.
//
// Sub panics if a < b; callers that need a signed difference should convert
// to int64 themselves.
func (a Addr) Sub(b Addr) uint64 {
	if a < b {
		panic("snmemory/addr: Sub of a < b")
	}
	return uint64(a - b)
}

// Less reports whether a is strictly below b.
func (a Addr) Less(b Addr) bool { return a < b }

// Minus returns a-n, the address n bytes below a.
func (a Addr) Minus(n uint64) Addr { return a - Addr(n) }

// IsAligned reports whether a is a multiple of align, which must be a power
// of two.
func (a Addr) IsAligned(align uint64) bool {
	return uint64(a)&(align-1) == 0
}

// RoundUp rounds a up to the nearest multiple of align (a power of two),
// returning a unchanged if it is already aligned.
func (a Addr) RoundUp(align uint64) Addr {
	return Addr((uint64(a) + align - 1) &^ (align - 1))
}

// NextAligned rounds a up to the next multiple of align that is strictly
// greater than a, even when a is already aligned.
//
// This is the "next_aligned, not aligned" rule the free-list allocator
// relies on to guarantee at least one byte of padding before every payload.
func (a Addr) NextAligned(align uint64) Addr {
	return Addr((uint64(a) + align) &^ (align - 1))
}

// Padding returns RoundUp(align) - a, the number of filler bytes needed to
// align a.
func (a Addr) Padding(align uint64) uint64 {
	return uint64(a.RoundUp(align) - a)
}

// Cast reinterprets the memory at a as a *T.
func Cast[T any](a Addr) *T {
	return (*T)(a.Pointer())
}

// CastSlice reinterprets the n bytes at a as a []byte.
func CastSlice(a Addr, n uint64) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(a.Pointer()), n)
}

// OfValue reinterprets p as the Addr of the value it points to.
func OfValue[T any](p *T) Addr {
	return Of(unsafe.Pointer(p))
}
