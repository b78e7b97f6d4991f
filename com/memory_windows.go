//go:build windows

package com

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// allocSlots returns n pointer-sized words outside the Go heap. The region is
// never freed.
func allocSlots(n int) []uintptr {
	size := uintptr(n) * unsafe.Sizeof(uintptr(0))
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		panic(fmt.Errorf("com: VirtualAlloc %d bytes for vtable: %w", size, err))
	}
	return unsafe.Slice((*uintptr)(unsafe.Pointer(addr)), n)
}
