// internal/codec/codec.go
package codec

import (
	"errors"
	"math"
)

// ErrShortResponse is reported when a device answered with fewer elements
// than the channel needs. The decoded value is NaN in that case.
var ErrShortResponse = errors.New("codec: short response")

// DecodeRegisters turns raw holding/input registers into a float64.
// Malformed input yields NaN together with ErrShortResponse; it never panics.
func DecodeRegisters(regs []uint16, dt DataType, order WordOrder) (float64, error) {
	if len(regs) < dt.Words() {
		return math.NaN(), ErrShortResponse
	}

	switch dt {
	case Int16:
		return float64(int16(regs[0])), nil
	case UInt16:
		return float64(regs[0] & 0xFFFF), nil
	case Float32:
		return float64(DecodeFloat32(regs[0], regs[1], order)), nil
	default:
		return math.NaN(), errors.New("codec: unsupported data type " + string(dt))
	}
}

// DecodeBits turns a coil/discrete-input response into 1.0 or 0.0.
func DecodeBits(bits []bool) (float64, error) {
	if len(bits) == 0 {
		return math.NaN(), ErrShortResponse
	}
	if bits[0] {
		return 1, nil
	}
	return 0, nil
}

// DecodeFloat32 combines two registers into an IEEE-754 single.
func DecodeFloat32(w0, w1 uint16, order WordOrder) float32 {
	hi, lo := w0, w1
	if order == BADC {
		hi, lo = w1, w0
	}
	return math.Float32frombits(uint32(hi)<<16 | uint32(lo))
}

// EncodeFloat32 is the exact inverse of DecodeFloat32 for the same order.
func EncodeFloat32(f float32, order WordOrder) (w0, w1 uint16) {
	bits := math.Float32bits(f)
	hi := uint16(bits >> 16)
	lo := uint16(bits)
	if order == BADC {
		return lo, hi
	}
	return hi, lo
}

// EncodeValue converts an engineering value into the registers written for
// a channel of the given type. Integer types are rounded and saturated.
func EncodeValue(v float64, dt DataType, order WordOrder) ([]uint16, error) {
	if math.IsNaN(v) {
		return nil, errors.New("codec: cannot encode NaN")
	}

	switch dt {
	case Int16:
		r := math.Round(v)
		if r < math.MinInt16 {
			r = math.MinInt16
		}
		if r > math.MaxInt16 {
			r = math.MaxInt16
		}
		return []uint16{uint16(int16(r))}, nil
	case UInt16:
		r := math.Round(v)
		if r < 0 {
			r = 0
		}
		if r > math.MaxUint16 {
			r = math.MaxUint16
		}
		return []uint16{uint16(r)}, nil
	case Float32:
		w0, w1 := EncodeFloat32(float32(v), order)
		return []uint16{w0, w1}, nil
	default:
		return nil, errors.New("codec: unsupported data type " + string(dt))
	}
}
