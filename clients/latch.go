package clients

import "sync/atomic"

const (
	latchOpen int32 = iota
	latchFired
	latchClosed
)

// Latch admits exactly one terminal event. Whichever of Fire or Close wins
// the race decides the session; every later call is a no-op.
type Latch struct {
	state atomic.Int32
}

// Fire claims the latch for delivery. It returns false if an event was
// already delivered or the latch was closed.
func (l *Latch) Fire() bool {
	return l.state.CompareAndSwap(latchOpen, latchFired)
}

// Close prevents any future delivery. It returns true only for the call
// that closed an open latch.
func (l *Latch) Close() bool {
	return l.state.CompareAndSwap(latchOpen, latchClosed)
}

func (l *Latch) Fired() bool {
	return l.state.Load() == latchFired
}

// GuardWithDrop wraps cb so only the first terminal event that wins the
// latch reaches cb. dropped, if set, runs for every event the latch rejects.
func (l *Latch) GuardWithDrop(cb Callbacks, dropped func()) Callbacks {
	admit := func() bool {
		if l.Fire() {
			return true
		}
		if dropped != nil {
			dropped()
		}
		return false
	}

	var out Callbacks
	if cb.OnComplete != nil {
		out.OnComplete = func(p map[string]any) {
			if admit() {
				cb.OnComplete(p)
			}
		}
	}
	if cb.OnError != nil {
		out.OnError = func(p map[string]any) {
			if admit() {
				cb.OnError(p)
			}
		}
	}
	if cb.OnCancel != nil {
		out.OnCancel = func() {
			if admit() {
				cb.OnCancel()
			}
		}
	}
	return out
}
