//go:build darwin || linux || freebsd || netbsd

package com

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// allocSlots returns n pointer-sized words outside the Go heap, used for tables
// and object blocks. The mapping is never unmapped: native callers may cache
// table pointers for the life of the process.
func allocSlots(n int) []uintptr {
	size := n * int(unsafe.Sizeof(uintptr(0)))
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		panic(fmt.Errorf("com: mmap %d bytes for vtable: %w", size, err))
	}
	return unsafe.Slice((*uintptr)(unsafe.Pointer(&mem[0])), n)
}
