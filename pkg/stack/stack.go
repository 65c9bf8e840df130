// Package stack implements a strict LIFO allocator over a caller-supplied
// byte buffer.
//
// Every allocation writes a footer immediately after its payload, recording
// the stack's top before the allocation and the alignment padding that was
// inserted before it. Free uses that footer to recover the exact previous
// top regardless of how much alignment padding a given request needed —
// there is no header-to-payload gap guessing, at the cost of requiring
// LIFO discipline: only the most recent live allocation may be freed.
package stack

import (
	"errors"

	"github.com/kshku/SnMemory/internal/addr"
	"github.com/kshku/SnMemory/internal/assert"
)

// ErrInvalidBuffer is returned by Init when the buffer is empty.
var ErrInvalidBuffer = errors.New("snmemory/stack: buffer must be non-empty")

// footer is the out-of-band record stored immediately after every
// allocation's payload.
type footer struct {
	previousTop addr.Addr
	alignDiff   uint64
}

var (
	footerSize  = addr.SizeOf[footer]()
	footerAlign = addr.AlignOf[footer]()
)

// Allocator is a LIFO stack allocator over a fixed buffer.
//
// The zero Allocator is not usable; call Init first.
type Allocator struct {
	base addr.Addr
	top  addr.Addr
	size uint64
}

// Init binds alloc to buf for its lifetime.
func Init(alloc *Allocator, buf []byte) error {
	if len(buf) == 0 {
		return ErrInvalidBuffer
	}

	base := addr.OfSlice(buf)
	*alloc = Allocator{base: base, top: base, size: uint64(len(buf))}
	return nil
}

// Deinit clears alloc back to its zero state.
func Deinit(alloc *Allocator) {
	*alloc = Allocator{}
}

// Allocate returns size bytes aligned to align, or nil if there is not
// enough room for the payload plus its footer. align must be a power of
// two.
func (a *Allocator) Allocate(size, align uint64) []byte {
	assert.Assert(addr.IsPow2(align), "align %d is not a power of two", align)

	aligned := a.top.RoundUp(align)
	payloadEnd := aligned.Add(size)
	footerAt := payloadEnd.RoundUp(footerAlign)
	newTop := footerAt.Add(footerSize)

	if newTop.Sub(a.base) > a.size {
		return nil
	}

	f := addr.Cast[footer](footerAt)
	*f = footer{
		previousTop: a.top,
		alignDiff:   aligned.Sub(a.top),
	}

	a.top = newTop

	return addr.CastSlice(aligned, size)
}

// Free releases the most recently allocated live block.
//
// ptr must be the pointer returned by the matching Allocate call: freeing
// anything other than the topmost allocation violates the stack's LIFO
// discipline and is a contract violation.
func (a *Allocator) Free(ptr []byte) {
	assert.Assert(a.top.Sub(a.base) >= footerSize, "Free called on an empty stack")

	footerAt := a.top.Minus(footerSize)
	f := addr.Cast[footer](footerAt)

	p := addr.OfSlice(ptr)
	assert.Assert(f.previousTop.Add(f.alignDiff) == p, "Free called out of LIFO order")

	a.top = f.previousTop
}

// Reset unconditionally returns the stack to its empty state.
func (a *Allocator) Reset() {
	a.top = a.base
}

// AllocatedSize reports how many bytes are currently in use, including
// footer and alignment overhead.
func (a *Allocator) AllocatedSize() uint64 {
	return a.top.Sub(a.base)
}

// RemainingSize reports how many bytes remain in the buffer.
func (a *Allocator) RemainingSize() uint64 {
	return a.size - a.AllocatedSize()
}
