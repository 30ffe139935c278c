// internal/poller/types.go
package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/modbus-acquire/internal/status"
)

// Stage names where a channel failed inside a cycle.
type Stage string

const (
	StageDecode    Stage = "decode"    // address or response could not be decoded; value is NaN
	StageTransport Stage = "transport" // device call failed; previous raw value kept
	StageEvaluate  Stage = "evaluate"  // formula failed; computed value is NaN
)

// ErrDependencyCycle marks math channels that reference each other.
var ErrDependencyCycle = errors.New("math channel dependency cycle")

// ChannelError is one channel's failure inside a cycle. It never aborts
// the cycle. Math channel failures carry Channel 0.
type ChannelError struct {
	Channel int
	Name    string
	Stage   Stage
	Err     error
}

func (e *ChannelError) Error() string {
	who := e.Name
	if e.Channel > 0 {
		who = fmt.Sprintf("channel %d", e.Channel)
		if e.Name != "" {
			who += fmt.Sprintf(" (%s)", e.Name)
		}
	} else {
		who = fmt.Sprintf("math %q", e.Name)
	}
	return fmt.Sprintf("%s: %s: %v", who, e.Stage, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// State is the poller's position within a cycle.
type State int32

const (
	Idle State = iota
	Reading
	Computing
	Publishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reading:
		return "reading"
	case Computing:
		return "computing"
	case Publishing:
		return "publishing"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Cycle summarizes one poll cycle.
type Cycle struct {
	Seq      uint64
	At       time.Time
	Duration time.Duration

	Channels     int // channel records processed
	Reads        int // transport reads attempted
	ReadFailures int // transport reads that failed
	Errors       []*ChannelError

	// Published is false when the cycle was interrupted before computing.
	Published bool

	// SourceErr is set when records could not be loaded and the last
	// good set was used instead.
	SourceErr error
}

// Failed reports whether any channel failed at stage s.
func (c Cycle) Failed(s Stage) int {
	n := 0
	for _, e := range c.Errors {
		if e.Stage == s {
			n++
		}
	}
	return n
}

// FirstTransportError returns the first transport failure, or nil.
func (c Cycle) FirstTransportError() error {
	for _, e := range c.Errors {
		if e.Stage == StageTransport {
			return e
		}
	}
	return nil
}

// Outcome reduces the cycle to what health tracking needs: device reads
// and the first transport failure, else the records source failure.
func (c Cycle) Outcome() status.Outcome {
	o := status.Outcome{Reads: c.Reads, Failures: c.ReadFailures}
	if err := c.FirstTransportError(); err != nil {
		o.Err = err
	} else if c.SourceErr != nil {
		o.Err = c.SourceErr
	}
	return o
}

// Observer receives every completed cycle. Implementations must not block.
type Observer interface {
	ObserveCycle(c Cycle)
}
