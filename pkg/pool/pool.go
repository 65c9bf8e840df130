// Package pool implements a fixed-size block allocator over a
// caller-supplied byte buffer.
//
// Init threads every block in the buffer into a singly-linked free list by
// writing each free block's own address space with a pointer to the next
// free block — the usual "first machine word of the block is the next
// pointer" free-list trick, specialized here to a single block size fixed
// at init.
package pool

import (
	"errors"

	"github.com/kshku/SnMemory/internal/addr"
	"github.com/kshku/SnMemory/internal/assert"
)

// ErrInvalidBuffer is returned by Init when the buffer is empty.
var ErrInvalidBuffer = errors.New("snmemory/pool: buffer must be non-empty")

// ErrBlockTooSmall is returned by Init when the rounded block size cannot
// hold a free-list pointer.
var ErrBlockTooSmall = errors.New("snmemory/pool: block size must be at least a pointer wide")

// ErrNoBlocksFit is returned by Init when not even one block fits in the
// buffer once alignment is taken into account.
var ErrNoBlocksFit = errors.New("snmemory/pool: no blocks fit in the given buffer")

var ptrSize = addr.SizeOf[addr.Addr]()

// Allocator hands out fixed-size, fixed-alignment blocks from a buffer.
//
// The zero Allocator is not usable; call Init first.
type Allocator struct {
	base       addr.Addr
	size       uint64
	blockSize  uint64
	blockAlign uint64

	freeList addr.Addr

	blockCount uint64
	freeCount  uint64
}

// Init carves buf into blocks of blockSize bytes (rounded up to
// blockAlign), chained into a free list starting at the first
// blockAlign-aligned address in buf.
//
// Init fails if buf is empty, if the rounded block size is smaller than a
// pointer, or if not even one block fits.
func Init(alloc *Allocator, buf []byte, blockSize, blockAlign uint64) error {
	if len(buf) == 0 {
		return ErrInvalidBuffer
	}

	blockSize = addr.RoundUpSize(blockSize, blockAlign)
	if blockSize < ptrSize {
		return ErrBlockTooSmall
	}

	base := addr.OfSlice(buf)
	size := uint64(len(buf))
	end := base.Add(size)

	first := base.RoundUp(blockAlign)

	var blockCount uint64
	var prev addr.Addr
	cur := first
	for cur.Add(blockSize) <= end {
		next := cur.Add(blockSize)
		*addr.Cast[addr.Addr](cur) = next
		prev = cur
		cur = next
		blockCount++
	}

	if blockCount == 0 {
		return ErrNoBlocksFit
	}

	// Only write the list terminator once at least one block was threaded;
	// doing this unconditionally would dereference prev while it is still
	// the zero Addr when no block fits.
	*addr.Cast[addr.Addr](prev) = 0

	*alloc = Allocator{
		base:       base,
		size:       size,
		blockSize:  blockSize,
		blockAlign: blockAlign,
		freeList:   first,
		blockCount: blockCount,
		freeCount:  blockCount,
	}
	return nil
}

// Deinit clears alloc back to its zero state.
func Deinit(alloc *Allocator) {
	*alloc = Allocator{}
}

// Allocate pops a block from the free list, or returns nil if the pool is
// exhausted.
func (a *Allocator) Allocate() []byte {
	if !a.freeList.Valid() {
		return nil
	}

	p := a.freeList
	a.freeList = *addr.Cast[addr.Addr](p)
	a.freeCount--

	return addr.CastSlice(p, a.blockSize)
}

// Free pushes ptr back onto the free list.
//
// ptr must be a block previously returned by Allocate from this allocator;
// freeing a pointer outside the buffer, or one not aligned to the pool's
// block alignment, is a contract violation. Freeing the same pointer twice
// is undefined behavior, checked only to the extent the bounds/alignment
// assertions happen to catch it.
func (a *Allocator) Free(ptr []byte) {
	p := addr.OfSlice(ptr)

	assert.Assert(p >= a.base && p.Sub(a.base) < a.size, "Free called with a pointer outside the pool's buffer")
	assert.Assert(p.IsAligned(a.blockAlign), "Free called with a pointer misaligned for this pool")

	*addr.Cast[addr.Addr](p) = a.freeList
	a.freeList = p
	a.freeCount++
}

// BlockCount reports the fixed number of blocks in the pool.
func (a *Allocator) BlockCount() uint64 { return a.blockCount }

// FreeCount reports how many blocks are currently unused.
func (a *Allocator) FreeCount() uint64 { return a.freeCount }

// UsedCount reports how many blocks are currently allocated.
func (a *Allocator) UsedCount() uint64 { return a.blockCount - a.freeCount }
