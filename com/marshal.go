package com

import (
	"runtime"
	"unsafe"
)

var ptrSize = unsafe.Sizeof(uintptr(0))

func uintptrOf[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// Caller-owned addresses may be pinned Go memory handed over as a uintptr, so
// the accessors below opt out of checkptr.

// Ref reinterprets a raw out-parameter address as a *T. It returns nil for a
// null pointer.
//
//go:nocheckptr
func Ref[T any](p uintptr) *T {
	if p == 0 {
		return nil
	}
	return (*T)(unsafe.Pointer(p))
}

// Store writes v to the caller-owned storage at p. A null p yields E_POINTER.
//
//go:nocheckptr
func Store[T any](p uintptr, v T) error {
	if p == 0 {
		return E_POINTER
	}
	*(*T)(unsafe.Pointer(p)) = v
	return nil
}

// Load reads a T from caller-owned storage at p.
//
//go:nocheckptr
func Load[T any](p uintptr) (T, error) {
	if p == 0 {
		var zero T
		return zero, E_POINTER
	}
	return *(*T)(unsafe.Pointer(p)), nil
}

// View returns caller-owned storage at p as a slice of exactly n elements.
// Writes through the slice can never pass element n-1. A null p yields a nil
// slice.
//
//go:nocheckptr
func View[T any](p uintptr, n uint32) []T {
	if p == 0 || n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(p)), int(n))
}

// RequirePointers returns E_POINTER if any of ptrs is null.
func RequirePointers(ptrs ...uintptr) error {
	for _, p := range ptrs {
		if p == 0 {
			return E_POINTER
		}
	}
	return nil
}

// Addr pins v and returns its address for use as a native argument. The pin
// lasts until pins.Unpin.
func Addr[T any](pins *runtime.Pinner, v *T) uintptr {
	if v == nil {
		return 0
	}
	pins.Pin(v)
	return uintptr(unsafe.Pointer(v))
}

// SliceAddr pins the backing array of s and returns the address of its first
// element, or 0 for an empty slice.
func SliceAddr[T any](pins *runtime.Pinner, s []T) uintptr {
	if len(s) == 0 {
		return 0
	}
	pins.Pin(&s[0])
	return uintptr(unsafe.Pointer(&s[0]))
}

// slotAddr reads the function pointer stored in slot of the vtable that the
// object at this points to.
//
//go:nocheckptr
func slotAddr(this Handle, slot int) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(this))
	return *(*uintptr)(unsafe.Pointer(vtbl + uintptr(slot)*ptrSize))
}

// vtableOf returns the table address stored in the first word at this.
//
//go:nocheckptr
func vtableOf(this Handle) uintptr {
	return *(*uintptr)(unsafe.Pointer(this))
}
