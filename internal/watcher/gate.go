// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package watcher

import "sync/atomic"

// Gate admits at most one healing run at a time. Callers that find it taken are
// turned away rather than queued.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire takes the gate if it is free and reports whether it did.
func (g *Gate) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the gate.
func (g *Gate) Release() {
	g.busy.Store(false)
}

// Busy reports whether a run holds the gate.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}
