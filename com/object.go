package com

import "runtime"

// Handle is the address of a COM object: a shadow created by this process or
// an object owned by native code. 0 means absent.
type Handle uintptr

// Object is a reference to a COM object. It owns one reference, dropped by
// Release. The zero Object is a null reference.
type Object struct {
	ptr Handle
}

// Attach takes ownership of one existing reference to ptr.
func Attach(ptr Handle) Object {
	return Object{ptr: ptr}
}

// NativePointer returns the object address without changing its count.
func (o *Object) NativePointer() Handle {
	if o == nil {
		return 0
	}
	return o.ptr
}

// IsNull reports whether o holds no object.
func (o *Object) IsNull() bool { return o == nil || o.ptr == 0 }

// Detach gives up ownership of the reference and returns the pointer.
func (o *Object) Detach() Handle {
	p := o.ptr
	o.ptr = 0
	return p
}

// CallRaw invokes vtable slot with the object as the first argument and
// returns the raw return register.
func (o *Object) CallRaw(slot int, args ...uintptr) uintptr {
	if o.IsNull() {
		panic(violationf("call of slot %d on a null object", slot))
	}
	return invoke(slotAddr(o.ptr, slot), uintptr(o.ptr), args...)
}

// Call invokes vtable slot and returns its HRESULT. A null object yields
// E_POINTER.
func (o *Object) Call(slot int, args ...uintptr) Result {
	if o.IsNull() {
		return E_POINTER
	}
	return ResultFromRet(o.CallRaw(slot, args...))
}

// AddRef increments the object's reference count and returns the new count.
func (o *Object) AddRef() uint32 {
	if o.IsNull() {
		return 0
	}
	return AddRefPointer(o.ptr)
}

// Release drops the reference o owns. Later calls are no-ops.
func (o *Object) Release() uint32 {
	if o.IsNull() {
		return 0
	}
	p := o.Detach()
	return ReleasePointer(p)
}

// QueryInterface asks the object for iid. On success the returned pointer
// carries its own reference.
func (o *Object) QueryInterface(iid GUID) (Handle, Result) {
	if o.IsNull() {
		return 0, E_POINTER
	}
	return QueryInterface(o.ptr, iid)
}

// QueryInterface calls slot 0 of the object at ptr.
func QueryInterface(ptr Handle, iid GUID) (Handle, Result) {
	if ptr == 0 {
		return 0, E_POINTER
	}
	var pins runtime.Pinner
	defer pins.Unpin()
	id := new(GUID)
	*id = iid
	out := new(uintptr)
	r := ResultFromRet(invoke(slotAddr(ptr, SlotQueryInterface), uintptr(ptr), Addr(&pins, id), Addr(&pins, out)))
	if r.Failed() {
		return 0, r
	}
	return Handle(*out), r
}

// AddRefPointer calls slot 1 of the object at ptr.
func AddRefPointer(ptr Handle) uint32 {
	return uint32(invoke(slotAddr(ptr, SlotAddRef), uintptr(ptr)))
}

// ReleasePointer calls slot 2 of the object at ptr.
func ReleasePointer(ptr Handle) uint32 {
	return uint32(invoke(slotAddr(ptr, SlotRelease), uintptr(ptr)))
}
