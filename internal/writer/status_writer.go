// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/modbus-acquire/internal/status"
	"github.com/tamzrod/modbus-acquire/internal/transport"
)

// StatusWriter is the delivery-only contract for engine status.
// It receives a snapshot and writes it verbatim.
// No logic, no state, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter writes the status block into a device's holding registers.
type deviceStatusWriter struct {
	plan *StatusPlan
	w    transport.Writer

	needFull bool
	last     status.Snapshot
}

// NewDeviceStatusWriter builds a status writer if status is enabled.
// If plan is nil, status is disabled.
func NewDeviceStatusWriter(plan *StatusPlan, w transport.Writer) (StatusWriter, bool) {
	if plan == nil || w == nil {
		return nil, false
	}

	return &deviceStatusWriter{
		plan:     plan,
		w:        w,
		needFull: true, // full re-assert on first successful write
		last:     status.Snapshot{Health: status.HealthUnknown},
	}, true
}

// WriteStatus delivers a status snapshot into device memory.
// On any write failure, the next successful call will re-assert the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.plan == nil {
		return errors.New("status writer: disabled")
	}

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		regs := status.Encode(s, sw.plan.DeviceName)

		if err := sw.w.WriteRegisters(sw.plan.DeviceID, sw.plan.Base, regs); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	var errs []string

	slot := func(idx int, have *uint16, want uint16, label string) {
		if *have == want {
			return
		}
		if err := sw.w.WriteRegister(sw.plan.DeviceID, sw.plan.Base+uint16(idx), want); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", idx, label, err))
			return
		}
		*have = want
	}

	slot(status.SlotHealthCode, &sw.last.Health, s.Health, "health")
	slot(status.SlotLastErrorCode, &sw.last.LastErrorCode, s.LastErrorCode, "last_error")
	slot(status.SlotSecondsInError, &sw.last.SecondsInError, s.SecondsInError, "seconds")

	if len(errs) > 0 {
		// Any partial failure introduces doubt, re-assert on next success.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}
