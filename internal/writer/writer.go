// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-acquire/internal/address"
	"github.com/tamzrod/modbus-acquire/internal/codec"
	cfg "github.com/tamzrod/modbus-acquire/internal/config"
	"github.com/tamzrod/modbus-acquire/internal/transport"
)

// ErrNaN is returned when asked to write a value that is not a number.
var ErrNaN = errors.New("writer: value is NaN")

// ChannelWriter issues out-of-band writes against the same transport
// the poller reads from. The transport serializes calls.
type ChannelWriter struct {
	w     transport.Writer
	order codec.WordOrder
	log   zerolog.Logger
}

// New creates a ChannelWriter. order applies to channels without their own
// word order.
func New(w transport.Writer, order codec.WordOrder, log zerolog.Logger) *ChannelWriter {
	if order == "" {
		order = codec.ABCD
	}
	return &ChannelWriter{
		w:     w,
		order: order,
		log:   log.With().Str("component", "writer").Logger(),
	}
}

// WriteChannel writes an engineering value to a channel's address.
// The channel offset is removed first so that a following read yields v.
func (cw *ChannelWriter) WriteChannel(ch cfg.ChannelConfig, v float64) error {
	order := ch.WordOrder
	if order == "" {
		order = cw.order
	}
	if err := cw.Write(ch.DeviceID, ch.Address, ch.DataType, order, v-ch.Offset); err != nil {
		return fmt.Errorf("channel %d: %w", ch.Number, err)
	}
	return nil
}

// Write encodes v for the given address and type. Read-only zones fail
// before any transport call. Coils are on for any non-zero value.
func (cw *ChannelWriter) Write(device uint8, addr int, dt codec.DataType, order codec.WordOrder, v float64) error {
	dt, err := codec.ParseDataType(string(dt))
	if err != nil {
		return err
	}
	loc, err := address.Decode(addr, dt)
	if err != nil {
		return err
	}
	if err := loc.CheckWritable(); err != nil {
		return err
	}
	if math.IsNaN(v) {
		return ErrNaN
	}

	if loc.Zone == address.Coils {
		err = cw.w.WriteCoil(device, loc.Offset, v != 0)
	} else {
		var regs []uint16
		if regs, err = codec.EncodeValue(v, dt, order); err != nil {
			return err
		}
		if len(regs) == 1 {
			err = cw.w.WriteRegister(device, loc.Offset, regs[0])
		} else {
			err = cw.w.WriteRegisters(device, loc.Offset, regs)
		}
	}

	if err != nil {
		cw.log.Warn().
			Uint8("device", device).
			Int("address", addr).
			Err(err).
			Msg("write failed")
		return fmt.Errorf("writer: address %d: %w", addr, err)
	}

	cw.log.Debug().
		Uint8("device", device).
		Int("address", addr).
		Float64("value", v).
		Msg("written")
	return nil
}
