// internal/address/address_test.go
package address

import (
	"errors"
	"testing"

	"github.com/tamzrod/modbus-acquire/internal/codec"
)

func TestDecode_CoilsRange(t *testing.T) {
	for addr := 1; addr <= 9999; addr++ {
		loc, err := Decode(addr, codec.UInt16)
		if err != nil {
			t.Fatalf("addr=%d: %v", addr, err)
		}
		if loc.Zone != Coils || int(loc.Offset) != addr-1 {
			t.Fatalf("addr=%d: got zone=%s offset=%d", addr, loc.Zone, loc.Offset)
		}
		if loc.Count != 1 {
			t.Fatalf("addr=%d: coils read one element, got %d", addr, loc.Count)
		}
	}
}

func TestDecode_HoldingRange(t *testing.T) {
	for addr := 40001; addr <= 49999; addr++ {
		loc, err := Decode(addr, codec.Int16)
		if err != nil {
			t.Fatalf("addr=%d: %v", addr, err)
		}
		if loc.Zone != HoldingRegisters || int(loc.Offset) != addr-40001 {
			t.Fatalf("addr=%d: got zone=%s offset=%d", addr, loc.Zone, loc.Offset)
		}
	}
}

func TestDecode_Boundaries(t *testing.T) {
	cases := []struct {
		addr   int
		dt     codec.DataType
		zone   Zone
		offset uint16
		count  uint16
	}{
		{1, codec.UInt16, Coils, 0, 1},
		{9999, codec.Float32, Coils, 9998, 1},
		{10000, codec.UInt16, HoldingRaw, 10000, 1},
		{10001, codec.UInt16, DiscreteInputs, 0, 1},
		{19999, codec.UInt16, DiscreteInputs, 9998, 1},
		{20000, codec.UInt16, HoldingRaw, 20000, 1},
		{30000, codec.UInt16, HoldingRaw, 30000, 1},
		{30001, codec.UInt16, InputRegisters, 0, 1},
		{30001, codec.Float32, InputRegisters, 0, 2},
		{39999, codec.Int16, InputRegisters, 9998, 1},
		{40000, codec.UInt16, HoldingRaw, 40000, 1},
		{40001, codec.Float32, HoldingRegisters, 0, 2},
		{49999, codec.UInt16, HoldingRegisters, 9998, 1},
		{50000, codec.Float32, HoldingRaw, 50000, 2},
		{65535, codec.UInt16, HoldingRaw, 65535, 1},
	}

	for _, tc := range cases {
		loc, err := Decode(tc.addr, tc.dt)
		if err != nil {
			t.Fatalf("addr=%d: %v", tc.addr, err)
		}
		if loc.Zone != tc.zone || loc.Offset != tc.offset || loc.Count != tc.count {
			t.Fatalf("addr=%d: got (%s,%d,%d) want (%s,%d,%d)",
				tc.addr, loc.Zone, loc.Offset, loc.Count, tc.zone, tc.offset, tc.count)
		}
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode(0, codec.UInt16); !errors.Is(err, ErrNonPositive) {
		t.Fatalf("expected ErrNonPositive, got %v", err)
	}
	if _, err := Decode(-5, codec.UInt16); !errors.Is(err, ErrNonPositive) {
		t.Fatalf("expected ErrNonPositive, got %v", err)
	}
	if _, err := Decode(70000, codec.UInt16); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestWritable(t *testing.T) {
	writable := map[int]bool{
		1:     true,
		10001: false,
		30001: false,
		40001: true,
		50000: false,
	}

	for addr, want := range writable {
		loc, err := Decode(addr, codec.UInt16)
		if err != nil {
			t.Fatalf("addr=%d: %v", addr, err)
		}
		if loc.Writable() != want {
			t.Fatalf("addr=%d: writable=%v want=%v", addr, loc.Writable(), want)
		}
		err = loc.CheckWritable()
		if want && err != nil {
			t.Fatalf("addr=%d: unexpected error %v", addr, err)
		}
		if !want && !errors.Is(err, ErrReadOnlyZone) {
			t.Fatalf("addr=%d: expected ErrReadOnlyZone, got %v", addr, err)
		}
	}
}
