// Package suppress provides the single-slot signal a writer uses to tell the
// clipboard monitor that the next change it observes was caused by us.
package suppress

import "sync/atomic"

// Gate holds at most one pending suppression. The zero value is disarmed and
// ready to use.
type Gate struct {
	armed atomic.Bool
}

// Arm marks the next checked change as self-inflicted. Arming an already
// armed gate does not queue a second suppression.
func (g *Gate) Arm() { g.armed.Store(true) }

// CheckAndClear reports whether the gate was armed and disarms it in the
// same atomic step.
func (g *Gate) CheckAndClear() bool { return g.armed.Swap(false) }

// Disarm drops a pending suppression without consuming a change.
func (g *Gate) Disarm() { g.armed.Store(false) }

// Armed reports the current state without consuming it.
func (g *Gate) Armed() bool { return g.armed.Load() }
