// Package frame provides a scope-based wrapper around a linear allocator:
// Begin/End brackets a "frame" (e.g. one game-loop tick), and every
// allocation made inside it is freed in one shot when the frame ends.
//
// Only one frame may be open at a time; frame does not support nesting.
package frame

import (
	"github.com/kshku/SnMemory/internal/assert"
	"github.com/kshku/SnMemory/pkg/linear"
)

// noMark is the sentinel for "no frame currently open". It is distinct from
// any Mark a linear.Allocator can actually produce, because a mark is an
// address at or below the end of a buffer, and no buffer ends at the
// all-ones address.
const noMark = ^linear.Mark(0)

// Allocator is a linear allocator scoped by explicit Begin/End frames.
//
// The zero Allocator is not usable; call Init first.
type Allocator struct {
	arena     linear.Allocator
	frameMark linear.Mark
	open      bool
}

// Init binds alloc to buf for its lifetime. See linear.Init for the
// buffer contract.
func Init(alloc *Allocator, buf []byte) error {
	if err := linear.Init(&alloc.arena, buf); err != nil {
		return err
	}
	alloc.frameMark = noMark
	alloc.open = false
	return nil
}

// Deinit clears alloc back to its zero state.
func Deinit(alloc *Allocator) {
	linear.Deinit(&alloc.arena)
	*alloc = Allocator{}
}

// Begin opens a new frame, recording the current cursor. Calling Begin
// again before a matching End is a contract violation: frames do not
// nest.
func (a *Allocator) Begin() {
	assert.Assert(!a.open, "Begin called with a frame already open")
	a.frameMark = a.arena.GetMark()
	a.open = true
}

// End closes the current frame, freeing every allocation made since the
// matching Begin. Calling End without a prior Begin is a contract
// violation.
func (a *Allocator) End() {
	assert.Assert(a.open, "End called without a matching Begin")
	a.arena.RewindTo(a.frameMark)
	a.frameMark = noMark
	a.open = false
}

// Allocate returns size bytes aligned to align from the current frame, or
// nil if the buffer has no room left.
func (a *Allocator) Allocate(size, align uint64) []byte {
	return a.arena.Allocate(size, align)
}

// FrameUsage reports how many bytes are in use in the underlying linear
// allocator. The count includes allocations made before the current frame
// began and allocations made while no frame is open, not only those made
// inside the current frame.
func (a *Allocator) FrameUsage() uint64 {
	return a.arena.AllocatedSize()
}

// RemainingSize reports how many bytes remain available for allocation.
func (a *Allocator) RemainingSize() uint64 {
	return a.arena.RemainingSize()
}
