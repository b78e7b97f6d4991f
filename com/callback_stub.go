//go:build !(darwin || freebsd || netbsd || windows || (linux && (amd64 || arm64)))

package com

import (
	"runtime"
	"sync"
)

var (
	stubMu    sync.Mutex
	stubCells []*uintptr
)

// newCallback hands out unique addresses that only the in-process directory
// can resolve. purego cannot mint callbacks on this platform.
func newCallback(Thunk) uintptr {
	stubMu.Lock()
	defer stubMu.Unlock()
	cell := new(uintptr)
	stubCells = append(stubCells, cell)
	return uintptrOf(cell)
}

func callNative(fn, this uintptr, args ...uintptr) uintptr {
	panic(violationf("native calls are not supported on %s/%s", runtime.GOOS, runtime.GOARCH))
}
