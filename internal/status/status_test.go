// internal/status/status_test.go
package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/goburrow/modbus"
)

type codedErr struct{ code uint16 }

func (e codedErr) Error() string { return fmt.Sprintf("coded %d", e.code) }
func (e codedErr) Code() uint16  { return e.code }

func TestErrorCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want uint16
	}{
		{"nil", nil, 0},
		{"generic", errors.New("boom"), 1},
		{"modbus exception", &modbus.ModbusError{FunctionCode: 3, ExceptionCode: 2}, 2},
		{"wrapped exception", fmt.Errorf("channel 4: %w", &modbus.ModbusError{FunctionCode: 3, ExceptionCode: 11}), 11},
		{"coder", fmt.Errorf("wrap: %w", codedErr{code: 42}), 42},
	}

	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("%s: ErrorCode=%d want %d", tc.name, got, tc.want)
		}
	}
}

func TestTracker_StateMachine(t *testing.T) {
	tr := NewTracker()
	if tr.Snapshot().Health != HealthUnknown {
		t.Fatalf("initial health = %d", tr.Snapshot().Health)
	}

	// unknown counts as not OK
	if s, changed := tr.Tick(); !changed || s.SecondsInError != 1 {
		t.Fatalf("tick while unknown = %+v %v", s, changed)
	}

	s, changed := tr.Observe(Outcome{Reads: 3})
	if !changed || s != (Snapshot{Health: HealthOK}) {
		t.Fatalf("ok outcome = %+v %v", s, changed)
	}
	if _, changed := tr.Observe(Outcome{Reads: 3}); changed {
		t.Fatalf("repeated ok must not report a change")
	}
	if _, changed := tr.Tick(); changed {
		t.Fatalf("tick while OK must not count")
	}

	exc := &modbus.ModbusError{FunctionCode: 3, ExceptionCode: 2}
	s, _ = tr.Observe(Outcome{Reads: 3, Failures: 1, Err: exc})
	if s.Health != HealthStale || s.LastErrorCode != 2 {
		t.Fatalf("partial failure = %+v", s)
	}

	s, _ = tr.Observe(Outcome{Reads: 3, Failures: 3, Err: errors.New("timeout")})
	if s.Health != HealthError || s.LastErrorCode != 1 {
		t.Fatalf("total failure = %+v", s)
	}

	tr.Tick()
	s, _ = tr.Tick()
	if s.SecondsInError != 2 {
		t.Fatalf("seconds = %d, want 2", s.SecondsInError)
	}

	// Error -> Error keeps counting, recovery resets
	if s, _ = tr.Observe(Outcome{Reads: 3, Failures: 3, Err: errors.New("timeout")}); s.SecondsInError != 2 {
		t.Fatalf("outcome must not touch seconds: %+v", s)
	}
	s, changed = tr.Observe(Outcome{Reads: 3})
	if !changed || s != (Snapshot{Health: HealthOK}) {
		t.Fatalf("recovery = %+v", s)
	}
}

func TestTracker_SourceErrorIsStale(t *testing.T) {
	tr := NewTracker()
	s, _ := tr.Observe(Outcome{Err: errors.New("records unavailable")})
	if s.Health != HealthStale {
		t.Fatalf("health = %d, want stale", s.Health)
	}
}

func TestTracker_SecondsSaturate(t *testing.T) {
	tr := NewTracker()
	tr.snap = Snapshot{Health: HealthError, SecondsInError: MaxSecondsInError - 1}

	if s, changed := tr.Tick(); !changed || s.SecondsInError != MaxSecondsInError {
		t.Fatalf("last increment = %+v %v", s, changed)
	}
	if s, changed := tr.Tick(); changed || s.SecondsInError != MaxSecondsInError {
		t.Fatalf("seconds wrapped: %+v %v", s, changed)
	}
}

func TestEncode(t *testing.T) {
	regs := Encode(Snapshot{Health: HealthError, LastErrorCode: 4, SecondsInError: 9}, "PLANT-A")
	if len(regs) != BlockSize {
		t.Fatalf("len = %d", len(regs))
	}
	if regs[SlotHealthCode] != HealthError || regs[SlotLastErrorCode] != 4 || regs[SlotSecondsInError] != 9 {
		t.Fatalf("live slots = %v", regs[:3])
	}
	// "PL" "AN" "T-" "A\x00"
	want := []uint16{0x504C, 0x414E, 0x542D, 0x4100, 0, 0, 0, 0}
	for i, w := range want {
		if regs[SlotDeviceNameStart+i] != w {
			t.Fatalf("name slot %d = %#04x want %#04x", i, regs[SlotDeviceNameStart+i], w)
		}
	}
}

func TestEncodeName_TruncatesAndSanitizes(t *testing.T) {
	regs := EncodeName("abcdefghijklmnop-overflow")
	if regs[7] != uint16('o')<<8|uint16('p') {
		t.Fatalf("last slot = %#04x", regs[7])
	}
	regs = EncodeName("a\tb")
	if regs[0] != uint16('a')<<8|uint16('?') {
		t.Fatalf("control char not replaced: %#04x", regs[0])
	}
}
