// Package com exposes Go values to native code as COM-style objects and calls
// COM-style objects from Go.
//
// A native COM object is an address whose first word points at a table of
// function pointers (the vtable). Slots 0..2 are the IUnknown methods
// (QueryInterface, AddRef, Release); the remaining slots are the methods of the
// interface, in declaration order. Every method returns a 32-bit HRESULT.
//
// # Shadows
//
// A Contract describes one interface: its IID, its method count and the thunks
// installed in its slots. Contract.Wrap places a small pinned block (the
// shadow) in front of a Go implementation; the block's first word points at the
// contract's shared table, so native code can call it like any other COM
// object. Thunks recover the implementation with Contract.Unwrap, call it and
// convert the returned error (or a recovered panic) into an HRESULT.
//
// # Calling objects
//
// Object holds a reference to any COM object, shadow or native, and calls its
// slots through the vtable. Slots minted by this process are invoked directly;
// anything else goes through purego.SyscallN.
//
// Tables are minted with purego.NewCallback, which is available on darwin,
// freebsd, netbsd, windows and linux/amd64, linux/arm64.
package com
