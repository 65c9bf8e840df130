//go:build !windows

package vm

import (
	"golang.org/x/sys/unix"

	"github.com/kshku/SnMemory/internal/addr"
)

func queryPageSize() uint64 {
	return uint64(unix.Getpagesize())
}

func reserve(size uint64) addr.Addr {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0
	}
	return addr.OfSlice(b)
}

func commit(ptr addr.Addr, size uint64) bool {
	b := addr.CastSlice(ptr, size)
	return unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE) == nil
}

func decommit(ptr addr.Addr, size uint64) bool {
	b := addr.CastSlice(ptr, size)
	return unix.Mprotect(b, unix.PROT_NONE) == nil
}

func release(ptr addr.Addr, size uint64) bool {
	b := addr.CastSlice(ptr, size)
	return unix.Munmap(b) == nil
}
