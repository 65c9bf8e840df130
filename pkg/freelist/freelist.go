// Package freelist implements a variable-size, first-fit allocator with
// splitting, coalescing and in-place reallocation over a caller-supplied
// byte buffer.
//
// Free blocks are threaded into a singly-linked list of headers
// (freeNode) living at the start of each free block. Allocated blocks
// carry no header at all: the distance from a payload pointer back to the
// header it was carved from is instead recovered from a reverse varint
// stored in the byte(s) immediately below the payload, written by
// writeBackPointer and read by readBackPointer. This lets Free and
// Reallocate work from a bare pointer regardless of how much alignment
// padding sits between the header and the payload.
package freelist

import (
	"errors"

	"github.com/kshku/SnMemory/internal/addr"
	"github.com/kshku/SnMemory/internal/assert"
)

// ErrInvalidBuffer is returned by Init when the buffer is empty.
var ErrInvalidBuffer = errors.New("snmemory/freelist: buffer must be non-empty")

// ErrBufferTooSmall is returned by Init when the buffer cannot hold even
// one free node plus the splitting threshold.
var ErrBufferTooSmall = errors.New("snmemory/freelist: buffer too small for a single free node")

// maxPrimitiveAlign is the largest alignment the allocator itself assumes
// it may need to satisfy for its own bookkeeping structures.
const maxPrimitiveAlign = 16

// SplittingThreshold is the minimum leftover size, after carving an
// allocation out of a free node, below which the leftover is left
// attached to the allocation instead of becoming its own free node.
const SplittingThreshold = 2 * maxPrimitiveAlign

type freeNode struct {
	size uint64
	next addr.Addr
}

var (
	nodeSize  = addr.SizeOf[freeNode]()
	nodeAlign = addr.AlignOf[freeNode]()
)

// Option configures an Allocator at Init time.
type Option func(*Allocator)

// WithSplittingThreshold overrides SplittingThreshold.
func WithSplittingThreshold(n uint64) Option {
	return func(a *Allocator) { a.splittingThreshold = n }
}

// Allocator is a variable-size, first-fit, splitting and coalescing
// allocator over a fixed buffer.
//
// The zero Allocator is not usable; call Init first.
type Allocator struct {
	base addr.Addr
	size uint64

	freeList addr.Addr

	splittingThreshold uint64
}

// Init carves buf into a single free node spanning the whole buffer.
//
// Init fails if buf is empty or too small to hold one free node plus the
// splitting threshold's worth of usable space.
func Init(alloc *Allocator, buf []byte, opts ...Option) error {
	if len(buf) == 0 {
		return ErrInvalidBuffer
	}

	a := Allocator{splittingThreshold: SplittingThreshold}
	for _, opt := range opts {
		opt(&a)
	}

	base := addr.OfSlice(buf)
	size := uint64(len(buf))
	end := base.Add(size)

	first := base.RoundUp(nodeAlign)
	if first.Add(nodeSize).Add(a.splittingThreshold) > end {
		return ErrBufferTooSmall
	}

	node := addr.Cast[freeNode](first)
	*node = freeNode{size: end.Sub(first.Add(nodeSize)), next: 0}

	a.base = base
	a.size = size
	a.freeList = first
	*alloc = a
	return nil
}

// Deinit clears alloc back to its zero state.
func Deinit(alloc *Allocator) {
	*alloc = Allocator{}
}

func nodeEnd(node addr.Addr) addr.Addr {
	fn := addr.Cast[freeNode](node)
	return node.Add(nodeSize).Add(fn.size)
}

// firstFit scans the free list for the first node able to hold size bytes,
// returning both it and its predecessor (0 if it is the head).
func (a *Allocator) firstFit(size uint64) (prev, node addr.Addr) {
	node = a.freeList
	for node.Valid() {
		fn := addr.Cast[freeNode](node)
		if fn.size >= size {
			return prev, node
		}
		prev = node
		node = fn.next
	}
	return 0, 0
}

// unlink removes node from the free list given its predecessor (0 if node
// is the head).
func (a *Allocator) unlink(prev, node addr.Addr) {
	fn := addr.Cast[freeNode](node)
	if prev.Valid() {
		addr.Cast[freeNode](prev).next = fn.next
	} else {
		a.freeList = fn.next
	}
}

// splitNodeIfPossible shrinks node to allocatedSize bytes and, if enough
// room remains past the splitting threshold, turns the remainder into a
// new free node linked in node's place. allocatedSize must already include
// room for the back-pointer and any alignment padding.
//
// end is captured before node's header is touched: once fn.size is
// overwritten below, node.Add(nodeSize).Add(fn.size) no longer reflects
// the original extent.
//
// allocatedSize may exceed node's current span (Reallocate's shrink path
// passes a fixed newSize+align regardless of how little the block is
// actually shrinking by); remainder can then land past end, which must be
// treated the same as "not enough room to split", mirroring the unsigned
// wraparound of size - allocated_size in the C source.
func (a *Allocator) splitNodeIfPossible(prev, node addr.Addr, allocatedSize uint64) {
	end := nodeEnd(node)
	fn := addr.Cast[freeNode](node)

	remainder := node.Add(nodeSize).Add(allocatedSize).RoundUp(nodeAlign)
	if remainder > end || end.Sub(remainder) < nodeSize+a.splittingThreshold {
		// Not enough left over to host its own node; the whole node stays
		// allocated as-is.
		return
	}

	newNode := addr.Cast[freeNode](remainder)
	*newNode = freeNode{size: end.Sub(remainder.Add(nodeSize)), next: fn.next}

	fn.size = allocatedSize
	fn.next = remainder

	if prev.Valid() {
		addr.Cast[freeNode](prev).next = remainder
	} else {
		a.freeList = remainder
	}

	assert.Trace("freelist", "split", "node=%#x allocated=%d remainder=%#x remainder_size=%d", uint64(node), allocatedSize, uint64(remainder), newNode.size)
}

// Allocate returns a size-byte slice aligned to align, or nil if no free
// node is large enough.
func (a *Allocator) Allocate(size, align uint64) []byte {
	assert.Assert(addr.IsPow2(align), "align %d is not a power of two", align)

	// The payload must land strictly past the node header with room for at
	// least one back-pointer byte below it, so reserve align extra bytes on
	// top of the rounded request: worst case the header ends exactly
	// align-aligned and NextAligned has to push a whole align further.
	effSize := addr.RoundUpSize(size, align) + align

	prev, node := a.firstFit(effSize)
	if !node.Valid() {
		assert.Trace("freelist", "allocate", "no fit for size=%d align=%d", size, align)
		return nil
	}

	payload := node.Add(nodeSize).NextAligned(align)
	writeBackPointer(payload, payload.Sub(node))

	allocatedSize := payload.Add(size).Sub(node.Add(nodeSize))
	a.splitNodeIfPossible(prev, node, allocatedSize)
	a.unlink(prev, node)

	assert.Trace("freelist", "allocate", "node=%#x size=%d align=%d payload=%#x", uint64(node), size, align, uint64(payload))
	return addr.CastSlice(payload, size)
}

// Free returns ptr's block to the free list, attempting to coalesce it
// with adjacent free nodes.
func (a *Allocator) Free(ptr []byte) {
	if ptr == nil {
		return
	}
	a.freeAddr(addr.OfSlice(ptr))
}

func (a *Allocator) freeAddr(p addr.Addr) {
	offset := readBackPointer(p)
	node := p.Minus(offset)

	// node.size is kept equal to the block's current span while it is
	// allocated (Allocate and Reallocate only change it through
	// splitNodeIfPossible or an in-place extension), so it needs no
	// recomputation here.
	fn := addr.Cast[freeNode](node)

	prevFree, _ := a.locateAround(node)

	// Splice node into the address-sorted free list (after its predecessor,
	// or at the head when it has none), then immediately try to merge it
	// with its neighbors. Reusing the same two locals for "the node behind
	// the merge point" and "the node ahead of it" in both branches below
	// mirrors the underlying algorithm's habit of folding the
	// list-insertion step into the merge step rather than treating them as
	// separate operations — so a predecessor-less free still has something
	// well-defined to merge left into (nothing) and right into (the old
	// head), while a free with a predecessor merges around the predecessor
	// itself.
	var mergeBase, mergeNext addr.Addr
	if prevFree.Valid() {
		pfn := addr.Cast[freeNode](prevFree)
		fn.next = pfn.next
		pfn.next = node
		mergeBase, mergeNext = prevFree, node
	} else {
		fn.next = a.freeList
		a.freeList = node
		mergeBase, mergeNext = node, fn.next
	}

	assert.Trace("freelist", "free", "node=%#x size=%d", uint64(node), fn.size)
	a.tryMerge(mergeBase, mergeNext)
}

// tryMerge coalesces prev forward across as many adjacent free nodes as
// are physically contiguous, then makes one final check to absorb the
// node immediately after the result. node may be invalid (0).
//
// This replaces a bounded recursion with an equivalent loop: each
// iteration either merges prev with the node it immediately precedes
// (folding that node's size and list-successor into prev and repeating
// with prev's new successor), or, once prev and node are no longer
// adjacent, falls through to a single non-looping check of whether node
// can absorb its own successor.
func (a *Allocator) tryMerge(prev, node addr.Addr) {
	for node.Valid() && nodeEnd(prev) == node {
		pfn := addr.Cast[freeNode](prev)
		nfn := addr.Cast[freeNode](node)

		pfn.size += nodeSize + nfn.size
		pfn.next = nfn.next

		assert.Trace("freelist", "merge", "prev=%#x absorbed=%#x new_size=%d", uint64(prev), uint64(node), pfn.size)
		node = pfn.next
	}

	if !node.Valid() {
		return
	}
	nfn := addr.Cast[freeNode](node)
	if nfn.next.Valid() && nodeEnd(node) == nfn.next {
		absorbed := nfn.next
		next := addr.Cast[freeNode](absorbed)
		nfn.size += nodeSize + next.size
		nfn.next = next.next

		assert.Trace("freelist", "merge", "node=%#x absorbed=%#x new_size=%d", uint64(node), uint64(absorbed), nfn.size)
	}
}

// locateAround walks the (address-sorted) free list and returns the last
// node with an address at or below target (0 if none) and the first node
// strictly above it (0 if none).
func (a *Allocator) locateAround(target addr.Addr) (prev, succ addr.Addr) {
	cur := a.freeList
	for cur.Valid() {
		if cur > target {
			break
		}
		prev = cur
		cur = addr.Cast[freeNode](cur).next
	}
	return prev, cur
}

// Reallocate resizes ptr's allocation to newSize bytes, preserving the
// lesser of its old and new sizes' worth of content, and returns the new
// slice (which may or may not share ptr's address). A nil ptr or a zero
// newSize returns nil without allocating or freeing anything.
func (a *Allocator) Reallocate(ptr []byte, newSize, align uint64) []byte {
	assert.Assert(addr.IsPow2(align), "align %d is not a power of two", align)

	if ptr == nil || newSize == 0 {
		return nil
	}

	p := addr.OfSlice(ptr)
	node := p.Minus(readBackPointer(p))
	fn := addr.Cast[freeNode](node)

	// liveSize is measured from the payload, not the header: it excludes
	// the alignment padding sitting between node+nodeSize and p, unlike
	// fn.size which is the node's full header-relative span. Using fn.size
	// here would overstate how much of the block is actually the caller's
	// to keep, both misjudging the shrink/grow boundary below and, via
	// allocCopyFree, reading past the live payload when copying.
	liveSize := nodeEnd(node).Sub(p)

	if !p.IsAligned(align) {
		return a.allocCopyFree(p, liveSize, newSize, align)
	}

	prev, succ := a.locateAround(node)

	if liveSize >= newSize {
		// Treat node as if it were spliced into the free list between prev
		// and succ just long enough to run the same split/merge logic
		// Allocate and Free use, then remove it again: shrinking never
		// actually leaves node on the free list itself, only whatever tail
		// space the split carves off.
		fn.next = succ
		a.splitNodeIfPossible(prev, node, newSize+align)

		if next := addr.Cast[freeNode](node).next; next.Valid() {
			nfn := addr.Cast[freeNode](next)
			a.tryMerge(next, nfn.next)
		}

		if prev.Valid() {
			addr.Cast[freeNode](prev).next = addr.Cast[freeNode](node).next
		} else {
			a.freeList = addr.Cast[freeNode](node).next
		}

		return addr.CastSlice(p, newSize)
	}

	if succ.Valid() && nodeEnd(node) == succ {
		succFn := addr.Cast[freeNode](succ)
		if liveSize+nodeSize+succFn.size >= newSize+align {
			fn.size += nodeSize + succFn.size
			fn.next = succFn.next

			a.splitNodeIfPossible(prev, node, newSize+align)

			if prev.Valid() {
				addr.Cast[freeNode](prev).next = addr.Cast[freeNode](node).next
			} else {
				a.freeList = addr.Cast[freeNode](node).next
			}

			return addr.CastSlice(p, newSize)
		}
	}

	assert.Trace("freelist", "reallocate", "node=%#x live=%d new_size=%d falling back to alloc+copy+free", uint64(node), liveSize, newSize)
	return a.allocCopyFree(p, liveSize, newSize, align)
}

// allocCopyFree allocates a fresh newSize-byte block, copies the lesser of
// liveSize (p's current live span) and newSize bytes from p into it, frees
// p, and returns the new block.
func (a *Allocator) allocCopyFree(p addr.Addr, liveSize, newSize, align uint64) []byte {
	newPtr := a.Allocate(newSize, align)
	if newPtr == nil {
		return nil
	}

	n := liveSize
	if newSize < n {
		n = newSize
	}
	full := addr.CastSlice(p, liveSize)
	copy(newPtr, full[:n])

	a.freeAddr(p)
	return newPtr
}

// GetFreeSize sums the usable capacity of every node currently on the free
// list (excluding per-node header overhead).
func (a *Allocator) GetFreeSize() uint64 {
	var total uint64
	cur := a.freeList
	for cur.Valid() {
		fn := addr.Cast[freeNode](cur)
		total += fn.size
		cur = fn.next
	}
	return total
}

// GetTotalSize returns the size of the buffer passed to Init.
func (a *Allocator) GetTotalSize() uint64 { return a.size }
