package com

import "sync"

// Thunk is the Go side of one vtable slot. this is the object address the
// native caller passed; a0..a3 are the remaining register arguments. Slots
// with fewer parameters ignore the trailing ones, and 32-bit parameters must
// be truncated by the thunk because the upper register half is unspecified.
//
// The return value is the HRESULT (or the ULONG count for AddRef/Release) in
// the low 32 bits.
type Thunk func(this, a0, a1, a2, a3 uintptr) uintptr

// MaxThunkArgs is the number of arguments after this a Thunk can receive.
const MaxThunkArgs = 4

// thunks maps every function pointer minted by this process to its Go thunk,
// so in-process calls skip the native trampoline.
var thunks sync.Map // uintptr -> Thunk

func mintThunk(t Thunk) uintptr {
	fn := newCallback(t)
	thunks.Store(fn, t)
	return fn
}

// invoke calls the function pointer fn with this followed by args.
func invoke(fn, this uintptr, args ...uintptr) uintptr {
	if v, ok := thunks.Load(fn); ok {
		if len(args) > MaxThunkArgs {
			panic(violationf("in-process call with %d arguments, thunks take at most %d", len(args), MaxThunkArgs))
		}
		var a [MaxThunkArgs]uintptr
		copy(a[:], args)
		return v.(Thunk)(this, a[0], a[1], a[2], a[3])
	}
	return callNative(fn, this, args...)
}

// IsThunk reports whether fn was minted by this process.
func IsThunk(fn uintptr) bool {
	_, ok := thunks.Load(fn)
	return ok
}
