// internal/status/snapshot.go
package status

// Snapshot represents exactly what the status writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
}

// Outcome is the part of a poll cycle the tracker cares about.
type Outcome struct {
	Reads    int
	Failures int
	Err      error // first failure of the cycle, nil when healthy
}
