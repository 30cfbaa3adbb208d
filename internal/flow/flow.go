// Package flow issues monotonically increasing identifiers for logical
// regeneration cycles. A flow id is captured when asynchronous work
// starts and re-checked at every suspension point; results whose id is
// no longer current are discarded. This is the subsystem's only
// cancellation mechanism — the blur transform cannot be interrupted
// mid-operation, so stale work runs to completion and only the
// application of its result is skipped.
package flow

import "sync/atomic"

// ID identifies one logical regeneration cycle.
type ID int64

// Sequencer owns the live flow counter. Issue is only ever called from
// the engine's cycle loop, but Current may be consulted from bridge and
// watcher goroutines, so the counter is atomic.
type Sequencer struct {
	n atomic.Int64
}

// Issue increments the counter and returns the new active id.
func (s *Sequencer) Issue() ID {
	return ID(s.n.Add(1))
}

// Current reports whether id is still the active flow.
func (s *Sequencer) Current(id ID) bool {
	return ID(s.n.Load()) == id
}

// Active returns the active flow id without issuing a new one.
func (s *Sequencer) Active() ID {
	return ID(s.n.Load())
}
