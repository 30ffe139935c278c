// internal/writer/types.go
package writer

import (
	"errors"

	"github.com/tamzrod/modbus-acquire/internal/address"
	"github.com/tamzrod/modbus-acquire/internal/codec"
	cfg "github.com/tamzrod/modbus-acquire/internal/config"
)

// StatusPlan is where the status block lives on the device.
type StatusPlan struct {
	DeviceID   uint8
	Base       uint16 // zero-based holding register offset of slot 0
	DeviceName string
}

// BuildStatusPlan converts the optional status config. A nil config
// returns a nil plan (status disabled).
// Assumes config has already passed validation.
func BuildStatusPlan(s *cfg.StatusConfig) (*StatusPlan, error) {
	if s == nil {
		return nil, nil
	}

	loc, err := address.Decode(s.Address, codec.UInt16)
	if err != nil {
		return nil, err
	}
	if loc.Zone != address.HoldingRegisters {
		return nil, errors.New("writer: status block must live in holding registers")
	}

	return &StatusPlan{
		DeviceID:   s.DeviceID,
		Base:       loc.Offset,
		DeviceName: s.Name,
	}, nil
}
