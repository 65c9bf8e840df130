// Package linear implements a monotonic bump-pointer allocator over a
// caller-supplied byte buffer.
//
// An Allocator never grows or shrinks its buffer: Init binds it for the
// allocator's whole lifetime. Allocate only ever moves the cursor forward;
// the only ways to reclaim space are Reset (back to the start) and
// RewindTo (back to a previously taken Mark). Allocations made since a
// mark do not outlive a rewind to it.
package linear

import (
	"errors"

	"github.com/kshku/SnMemory/internal/addr"
	"github.com/kshku/SnMemory/internal/assert"
)

// ErrInvalidBuffer is returned by Init when the buffer is empty.
var ErrInvalidBuffer = errors.New("snmemory/linear: buffer must be non-empty")

// Mark is an opaque snapshot of the allocator's cursor, taken with GetMark
// and consumed by RewindTo.
type Mark addr.Addr

// Allocator is a bump-pointer allocator over a fixed buffer.
//
// The zero Allocator is not usable; call Init first. None of its methods
// are safe for concurrent use.
type Allocator struct {
	base addr.Addr
	top  addr.Addr
	size uint64
}

// Init binds alloc to buf for its lifetime.
//
// Init fails with ErrInvalidBuffer if buf is empty. Re-Init over a live
// allocator is not guarded against: it discards the current state, matching
// the source contract that double-init is not specially handled.
func Init(alloc *Allocator, buf []byte) error {
	if len(buf) == 0 {
		return ErrInvalidBuffer
	}

	base := addr.OfSlice(buf)
	*alloc = Allocator{
		base: base,
		top:  base,
		size: uint64(len(buf)),
	}
	return nil
}

// Deinit clears alloc back to its zero state. The backing buffer itself is
// left untouched; the caller owns it both before Init and after Deinit.
func Deinit(alloc *Allocator) {
	*alloc = Allocator{}
}

// Allocate returns size bytes aligned to align, or nil if the buffer has no
// room left. align must be a power of two.
func (a *Allocator) Allocate(size, align uint64) []byte {
	assert.Assert(addr.IsPow2(align), "align %d is not a power of two", align)

	aligned := a.top.RoundUp(align)
	if aligned.Add(size).Sub(a.base) > a.size {
		return nil
	}

	a.top = aligned.Add(size)
	return addr.CastSlice(aligned, size)
}

// Reset rewinds the allocator to the start of its buffer, invalidating
// every allocation and mark taken so far.
func (a *Allocator) Reset() {
	a.top = a.base
}

// GetMark captures the current cursor.
func (a *Allocator) GetMark() Mark {
	return Mark(a.top)
}

// RewindTo restores the cursor to mark, freeing every allocation made since
// it was taken. mark must have been obtained from this allocator and must
// not be older than the buffer's start; rewinding to a mark at or beyond
// the current top is a no-op.
func (a *Allocator) RewindTo(mark Mark) {
	m := addr.Addr(mark)
	assert.Assert(m >= a.base && m <= a.base.Add(a.size), "mark out of range for this allocator")

	if a.top.Less(m) {
		return
	}
	a.top = m
}

// AllocatedSize reports how many bytes are currently in use.
func (a *Allocator) AllocatedSize() uint64 {
	return a.top.Sub(a.base)
}

// RemainingSize reports how many bytes are free for allocation.
//
// Not every remaining byte is necessarily usable: alignment padding for the
// next request may consume some of it.
func (a *Allocator) RemainingSize() uint64 {
	return a.size - a.AllocatedSize()
}
