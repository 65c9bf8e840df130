//go:build windows

package vm

import (
	"golang.org/x/sys/windows"

	"github.com/kshku/SnMemory/internal/addr"
)

func queryPageSize() uint64 {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	return uint64(info.PageSize)
}

func reserve(size uint64) addr.Addr {
	p, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return 0
	}
	return addr.Addr(p)
}

func commit(ptr addr.Addr, size uint64) bool {
	_, err := windows.VirtualAlloc(uintptr(ptr), uintptr(size), windows.MEM_COMMIT, windows.PAGE_READWRITE)
	return err == nil
}

func decommit(ptr addr.Addr, size uint64) bool {
	return windows.VirtualFree(uintptr(ptr), uintptr(size), windows.MEM_DECOMMIT) == nil
}

func release(ptr addr.Addr, size uint64) bool {
	_ = size
	return windows.VirtualFree(uintptr(ptr), 0, windows.MEM_RELEASE) == nil
}
