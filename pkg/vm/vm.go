// Package vm is the virtual-memory facade of this module: reserve a range
// of address space without backing it, commit pages into it on demand,
// decommit them back, and release the reservation entirely. None of the
// allocator packages import it; a caller may use it to obtain a buffer to
// hand to one of them.
//
// The platform-specific primitives live in vm_unix.go (mmap/mprotect/munmap
// via golang.org/x/sys/unix) and vm_windows.go (VirtualAlloc/VirtualFree via
// golang.org/x/sys/windows).
package vm

import (
	"errors"
	"sync"

	"github.com/kshku/SnMemory/internal/addr"
	"github.com/kshku/SnMemory/internal/assert"
)

// ErrReserveFailed is returned by Reserve when the platform cannot grant
// the requested address space.
var ErrReserveFailed = errors.New("snmemory/vm: reserve failed")

var (
	pageSizeOnce sync.Once
	pageSize     uint64
)

// PageSize returns the platform's page size in bytes, querying it lazily
// on first use and caching the result for the life of the process.
func PageSize() uint64 {
	pageSizeOnce.Do(func() {
		pageSize = queryPageSize()
	})
	return pageSize
}

// Reserve reserves pages worth of address space, returning a pointer to
// the page-aligned start of the reservation. The memory is not readable or
// writable, and not zeroed, until committed. It returns the zero Addr if
// pages is zero or the platform could not satisfy the reservation.
func Reserve(pages uint32) addr.Addr {
	if pages == 0 {
		return 0
	}
	return reserve(uint64(pages) * PageSize())
}

// Commit makes pages pages starting at ptr readable and writable. ptr must
// be page-aligned and must fall within a prior Reserve call; committing
// the same pages twice, or pages outside the reservation, is a contract
// violation enforced by the platform, not by this package.
func Commit(ptr addr.Addr, pages uint32) bool {
	assert.Assert(ptr.IsAligned(PageSize()), "Commit called with a non-page-aligned pointer")
	if pages == 0 {
		return true
	}
	return commit(ptr, uint64(pages)*PageSize())
}

// Decommit makes pages pages starting at ptr inaccessible again, without
// releasing the address space itself.
func Decommit(ptr addr.Addr, pages uint32) bool {
	assert.Assert(ptr.IsAligned(PageSize()), "Decommit called with a non-page-aligned pointer")
	if pages == 0 {
		return true
	}
	return decommit(ptr, uint64(pages)*PageSize())
}

// Release gives the whole reservation back to the operating system. ptr
// must be the address previously returned by Reserve, and pages the same
// count passed to that call.
func Release(ptr addr.Addr, pages uint32) bool {
	if pages == 0 {
		return true
	}
	return release(ptr, uint64(pages)*PageSize())
}

// Reservation is a convenience wrapper bundling a reserved range with its
// page count, so callers don't have to thread both through every call.
type Reservation struct {
	base  addr.Addr
	pages uint32
}

// NewReservation reserves pages pages and wraps the result. It returns an
// error if the platform could not satisfy the reservation.
func NewReservation(pages uint32) (*Reservation, error) {
	base := Reserve(pages)
	if !base.Valid() {
		return nil, ErrReserveFailed
	}
	return &Reservation{base: base, pages: pages}, nil
}

// Base returns the start of the reservation.
func (r *Reservation) Base() addr.Addr { return r.base }

// Pages returns the reservation's page count.
func (r *Reservation) Pages() uint32 { return r.pages }

// Size returns the reservation's size in bytes.
func (r *Reservation) Size() uint64 { return uint64(r.pages) * PageSize() }

// Commit commits the first pages pages of the reservation.
func (r *Reservation) Commit(pages uint32) bool {
	assert.Assert(pages <= r.pages, "Commit of %d pages exceeds reservation of %d", pages, r.pages)
	return Commit(r.base, pages)
}

// Decommit decommits the first pages pages of the reservation.
func (r *Reservation) Decommit(pages uint32) bool {
	assert.Assert(pages <= r.pages, "Decommit of %d pages exceeds reservation of %d", pages, r.pages)
	return Decommit(r.base, pages)
}

// Release gives the whole reservation back to the operating system. The
// Reservation must not be used afterward.
func (r *Reservation) Release() bool {
	return Release(r.base, r.pages)
}

// Bytes reinterprets the whole reservation as a byte slice, for callers
// that want to hand it to one of the buffer-based allocators after
// committing it. Uncommitted bytes will fault on access.
func (r *Reservation) Bytes() []byte {
	return addr.CastSlice(r.base, r.Size())
}
