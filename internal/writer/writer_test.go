// internal/writer/writer_test.go
package writer

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-acquire/internal/address"
	"github.com/tamzrod/modbus-acquire/internal/codec"
	cfg "github.com/tamzrod/modbus-acquire/internal/config"
)

// ---- fake transport writer ----

type writeCall struct {
	device uint8
	addr   uint16
	fc     uint8
	regs   []uint16
	on     bool
}

type fakeWriter struct {
	writes []writeCall
	fail   error
}

func (f *fakeWriter) WriteCoil(device uint8, addr uint16, on bool) error {
	f.writes = append(f.writes, writeCall{device: device, addr: addr, fc: 5, on: on})
	return f.fail
}

func (f *fakeWriter) WriteRegister(device uint8, addr uint16, v uint16) error {
	f.writes = append(f.writes, writeCall{device: device, addr: addr, fc: 6, regs: []uint16{v}})
	return f.fail
}

func (f *fakeWriter) WriteRegisters(device uint8, addr uint16, regs []uint16) error {
	cp := append([]uint16(nil), regs...)
	f.writes = append(f.writes, writeCall{device: device, addr: addr, fc: 16, regs: cp})
	return f.fail
}

func (f *fakeWriter) last() writeCall { return f.writes[len(f.writes)-1] }

// ---- tests ----

func TestWrite_ReadOnlyZonesFailFast(t *testing.T) {
	fake := &fakeWriter{}
	w := New(fake, codec.ABCD, zerolog.Nop())

	for _, addr := range []int{10001, 19999, 30001, 39999, 50000} {
		err := w.Write(1, addr, codec.UInt16, "", 1)
		if !errors.Is(err, address.ErrReadOnlyZone) {
			t.Fatalf("address %d: err=%v, want ErrReadOnlyZone", addr, err)
		}
	}
	if len(fake.writes) != 0 {
		t.Fatalf("transport called for read-only zones: %+v", fake.writes)
	}
}

func TestWrite_Zones(t *testing.T) {
	fake := &fakeWriter{}
	w := New(fake, codec.ABCD, zerolog.Nop())

	if err := w.Write(3, 17, codec.UInt16, "", 2); err != nil {
		t.Fatalf("coil write err=%v", err)
	}
	if c := fake.last(); c.fc != 5 || c.addr != 16 || !c.on || c.device != 3 {
		t.Fatalf("coil call = %+v", c)
	}

	if err := w.Write(3, 40010, codec.Int16, "", -2); err != nil {
		t.Fatalf("register write err=%v", err)
	}
	if c := fake.last(); c.fc != 6 || c.addr != 9 || c.regs[0] != 0xFFFE {
		t.Fatalf("register call = %+v", c)
	}

	if err := w.Write(3, 40001, codec.Float32, codec.BADC, 1.5); err != nil {
		t.Fatalf("float write err=%v", err)
	}
	c := fake.last()
	w0, w1 := codec.EncodeFloat32(1.5, codec.BADC)
	if c.fc != 16 || c.addr != 0 || len(c.regs) != 2 || c.regs[0] != w0 || c.regs[1] != w1 {
		t.Fatalf("float call = %+v", c)
	}
}

func TestWriteChannel_RemovesOffset(t *testing.T) {
	fake := &fakeWriter{}
	w := New(fake, codec.ABCD, zerolog.Nop())

	ch := cfg.ChannelConfig{Number: 4, Address: 40005, DataType: codec.UInt16, DeviceID: 2, Offset: 10}
	if err := w.WriteChannel(ch, 110); err != nil {
		t.Fatalf("WriteChannel err=%v", err)
	}
	if c := fake.last(); c.addr != 4 || c.regs[0] != 100 || c.device != 2 {
		t.Fatalf("call = %+v", c)
	}
}

func TestWrite_Errors(t *testing.T) {
	fake := &fakeWriter{fail: errors.New("link down")}
	w := New(fake, codec.ABCD, zerolog.Nop())

	if err := w.Write(1, 40001, codec.UInt16, "", 5); err == nil {
		t.Fatalf("expected transport error")
	}

	fake.fail = nil
	before := len(fake.writes)
	if err := w.Write(1, 40001, codec.UInt16, "", nan()); !errors.Is(err, ErrNaN) {
		t.Fatalf("err=%v, want ErrNaN", err)
	}
	if err := w.Write(1, 40001, "Int64", "", 1); err == nil {
		t.Fatalf("expected data type error")
	}
	if err := w.Write(1, 0, codec.UInt16, "", 1); !errors.Is(err, address.ErrNonPositive) {
		t.Fatalf("err=%v, want ErrNonPositive", err)
	}
	if len(fake.writes) != before {
		t.Fatalf("invalid writes reached the transport")
	}
}
