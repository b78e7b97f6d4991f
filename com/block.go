package com

import "sync"

const (
	// blockChunk is the number of object blocks carved from one allocation.
	blockChunk = 512

	// deadQuarantine is how many destroyed blocks must be waiting before the
	// oldest one is handed out again. Until then a late call on a released
	// object lands on its dead table.
	deadQuarantine = 4096
)

// blocks hands out the one-word object headers that native code sees as
// shadows. They live outside the Go heap, like tables, and are never returned
// to the system.
var blocks struct {
	mu    sync.Mutex
	fresh []*uintptr
	dead  []*uintptr
}

func allocBlock(vtbl uintptr) Handle {
	blocks.mu.Lock()
	var w *uintptr
	switch {
	case len(blocks.dead) > deadQuarantine:
		w = blocks.dead[0]
		blocks.dead[0] = nil
		blocks.dead = blocks.dead[1:]
	default:
		if len(blocks.fresh) == 0 {
			chunk := allocSlots(blockChunk)
			blocks.fresh = make([]*uintptr, blockChunk)
			for i := range chunk {
				blocks.fresh[i] = &chunk[i]
			}
		}
		n := len(blocks.fresh) - 1
		w = blocks.fresh[n]
		blocks.fresh = blocks.fresh[:n]
	}
	blocks.mu.Unlock()

	*w = vtbl
	return Handle(uintptrOf(w))
}

// retireBlock points the block at dead and queues it for reuse.
func retireBlock(h Handle, dead uintptr) {
	w := Ref[uintptr](uintptr(h))
	*w = dead
	blocks.mu.Lock()
	blocks.dead = append(blocks.dead, w)
	blocks.mu.Unlock()
}
