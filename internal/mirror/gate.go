package mirror

import "sync/atomic"

// Gate serializes mirror runs. A Session acquires its gate for the
// whole run and releases it on every exit path, so a second run
// against the same gate fails fast with ErrMirrorInProgress instead
// of queueing.
type Gate struct {
	busy atomic.Bool
}

// NewGate creates an open Gate.
func NewGate() *Gate {
	return &Gate{}
}

// Acquire claims the gate. It reports false when another run holds it.
func (g *Gate) Acquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release opens the gate again.
func (g *Gate) Release() {
	g.busy.Store(false)
}

// InProgress reports whether a run currently holds the gate.
func (g *Gate) InProgress() bool {
	return g.busy.Load()
}

// defaultGate serializes all sessions that don't bring their own gate.
var defaultGate = NewGate()

// DefaultGate returns the process-wide gate shared by sessions created
// without WithGate.
func DefaultGate() *Gate {
	return defaultGate
}
