// internal/status/tracker.go
package status

import "sync"

// Tracker owns the health state machine: cycle outcomes move the health
// code, a 1 Hz tick counts seconds spent not OK.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Observe applies one cycle outcome. changed reports whether anything
// the writer delivers differs from before.
func (t *Tracker) Observe(o Outcome) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.snap

	switch {
	case o.Err == nil:
		// Recovery / OK: error code and seconds reset.
		next.Health = HealthOK
		next.LastErrorCode = 0
		next.SecondsInError = 0

	case o.Reads > 0 && o.Failures >= o.Reads:
		next.Health = HealthError
		next.LastErrorCode = ErrorCode(o.Err)

	default:
		next.Health = HealthStale
		next.LastErrorCode = ErrorCode(o.Err)
	}

	// NOTE: seconds_in_error increments on Tick only.

	changed := next != t.snap
	t.snap = next
	return next, changed
}

// Tick is called at 1 Hz. While not OK, seconds_in_error grows until it
// saturates; it MUST NOT wrap.
func (t *Tracker) Tick() (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snap.Health == HealthOK || t.snap.SecondsInError >= MaxSecondsInError {
		return t.snap, false
	}
	t.snap.SecondsInError++
	return t.snap, true
}
