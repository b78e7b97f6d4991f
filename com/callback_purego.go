//go:build darwin || freebsd || netbsd || windows || (linux && (amd64 || arm64))

package com

import "github.com/ebitengine/purego"

func newCallback(t Thunk) uintptr {
	return purego.NewCallback(t)
}

func callNative(fn, this uintptr, args ...uintptr) uintptr {
	all := make([]uintptr, 0, len(args)+1)
	all = append(all, this)
	all = append(all, args...)
	r1, _, _ := purego.SyscallN(fn, all...)
	return r1
}
