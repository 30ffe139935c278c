// internal/transport/transport.go
package transport

import (
	"fmt"

	"github.com/tamzrod/modbus-acquire/internal/address"
)

// Reader abstracts the Modbus reads the engine needs.
// Addresses are zero-based protocol offsets.
type Reader interface {
	ReadCoils(device uint8, addr, qty uint16) ([]bool, error)              // FC 1
	ReadDiscreteInputs(device uint8, addr, qty uint16) ([]bool, error)     // FC 2
	ReadHoldingRegisters(device uint8, addr, qty uint16) ([]uint16, error) // FC 3
	ReadInputRegisters(device uint8, addr, qty uint16) ([]uint16, error)   // FC 4
}

// Writer abstracts out-of-band writes.
type Writer interface {
	WriteCoil(device uint8, addr uint16, on bool) error            // FC 5
	WriteRegister(device uint8, addr uint16, v uint16) error       // FC 6
	WriteRegisters(device uint8, addr uint16, regs []uint16) error // FC 16
}

// ReadWriter is a full device connection.
type ReadWriter interface {
	Reader
	Writer
	Close() error
}

// Result holds exactly one of Bits or Registers depending on the zone.
type Result struct {
	Bits      []bool
	Registers []uint16
}

// Read dispatches a decoded location to the matching read function.
func Read(r Reader, device uint8, loc address.Location) (Result, error) {
	switch loc.Zone {
	case address.Coils:
		bits, err := r.ReadCoils(device, loc.Offset, loc.Count)
		return Result{Bits: bits}, err

	case address.DiscreteInputs:
		bits, err := r.ReadDiscreteInputs(device, loc.Offset, loc.Count)
		return Result{Bits: bits}, err

	case address.InputRegisters:
		regs, err := r.ReadInputRegisters(device, loc.Offset, loc.Count)
		return Result{Registers: regs}, err

	case address.HoldingRegisters, address.HoldingRaw:
		regs, err := r.ReadHoldingRegisters(device, loc.Offset, loc.Count)
		return Result{Registers: regs}, err
	}
	return Result{}, fmt.Errorf("transport: unsupported zone %s", loc.Zone)
}
