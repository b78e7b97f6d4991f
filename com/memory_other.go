//go:build !(darwin || linux || freebsd || netbsd || windows)

package com

import (
	"runtime"
	"sync"
)

var (
	tablePinsMu sync.Mutex
	// tablePins keeps every table allocation pinned for the life of the process.
	tablePins runtime.Pinner
)

// allocSlots returns n pinned pointer-sized words.
func allocSlots(n int) []uintptr {
	slots := make([]uintptr, n)
	tablePinsMu.Lock()
	tablePins.Pin(&slots[0])
	tablePinsMu.Unlock()
	return slots
}
