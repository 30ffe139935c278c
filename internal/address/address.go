// internal/address/address.go
package address

import (
	"errors"
	"fmt"

	"github.com/tamzrod/modbus-acquire/internal/codec"
)

// Zone is an address range implying a Modbus function code and access mode.
type Zone uint8

const (
	Coils Zone = iota + 1
	DiscreteInputs
	InputRegisters
	HoldingRegisters
	// HoldingRaw reads holding registers with the address used unchanged.
	HoldingRaw
)

func (z Zone) String() string {
	switch z {
	case Coils:
		return "coils"
	case DiscreteInputs:
		return "discrete-inputs"
	case InputRegisters:
		return "input-registers"
	case HoldingRegisters:
		return "holding-registers"
	case HoldingRaw:
		return "holding-registers-raw"
	}
	return fmt.Sprintf("zone(%d)", uint8(z))
}

// IsBit reports whether the zone carries single-bit elements.
func (z Zone) IsBit() bool {
	return z == Coils || z == DiscreteInputs
}

var (
	ErrNonPositive  = errors.New("address: must be positive")
	ErrOutOfRange   = errors.New("address: zero-based offset exceeds 65535")
	ErrReadOnlyZone = errors.New("address: zone is read-only")
)

// Location is the decoded form of a configured address.
type Location struct {
	Address int
	Zone    Zone
	Offset  uint16 // zero-based protocol address
	Count   uint16 // elements to read
}

// Writable is true only for coils (1-9999) and holding registers (40001-49999).
func (l Location) Writable() bool {
	return l.Zone == Coils || l.Zone == HoldingRegisters
}

// CheckWritable returns ErrReadOnlyZone wrapped with the address for
// every zone other than coils and holding registers.
func (l Location) CheckWritable() error {
	if l.Writable() {
		return nil
	}
	return fmt.Errorf("%w: address %d is in %s", ErrReadOnlyZone, l.Address, l.Zone)
}

// Decode maps a one-based configured address onto its zone.
//
//	1-9999       coils              address-1
//	10001-19999  discrete inputs    address-10001
//	30001-39999  input registers    address-30001
//	40001-49999  holding registers  address-40001
//	anything else                   holding registers, address unchanged
func Decode(addr int, dt codec.DataType) (Location, error) {
	if addr <= 0 {
		return Location{}, fmt.Errorf("%w: %d", ErrNonPositive, addr)
	}

	var zone Zone
	var off int

	switch {
	case addr <= 9999:
		zone, off = Coils, addr-1
	case addr >= 10001 && addr <= 19999:
		zone, off = DiscreteInputs, addr-10001
	case addr >= 30001 && addr <= 39999:
		zone, off = InputRegisters, addr-30001
	case addr >= 40001 && addr <= 49999:
		zone, off = HoldingRegisters, addr-40001
	default:
		zone, off = HoldingRaw, addr
	}

	if off > 0xFFFF {
		return Location{}, fmt.Errorf("%w: address %d", ErrOutOfRange, addr)
	}

	count := uint16(1)
	if !zone.IsBit() {
		count = uint16(dt.Words())
	}

	return Location{
		Address: addr,
		Zone:    zone,
		Offset:  uint16(off),
		Count:   count,
	}, nil
}
