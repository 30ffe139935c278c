// internal/simulator/simulator.go
package simulator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/simonvetter/modbus"

	"github.com/tamzrod/modbus-acquire/internal/address"
	"github.com/tamzrod/modbus-acquire/internal/codec"
)

const space = 0x10000

// device is one unit id's memory map.
type device struct {
	coils    []bool
	discrete []bool
	input    []uint16
	holding  []uint16
}

func newDevice() *device {
	return &device{
		coils:    make([]bool, space),
		discrete: make([]bool, space),
		input:    make([]uint16, space),
		holding:  make([]uint16, space),
	}
}

// Server is an in-memory Modbus TCP device for bench runs and tests.
// Unit ids answer only after something has been stored for them or
// AddDevice was called; other ids get a gateway exception.
type Server struct {
	log zerolog.Logger

	mu      sync.RWMutex
	devices map[uint8]*device
	srv     *modbus.ModbusServer
	count   uint64
}

func New(log zerolog.Logger) *Server {
	return &Server{
		log:     log.With().Str("component", "simulator").Logger(),
		devices: make(map[uint8]*device),
	}
}

// Start listens on url, e.g. "tcp://127.0.0.1:1502".
// It returns as soon as the listener is up.
func (s *Server) Start(url string) error {
	srv, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        url,
		Timeout:    30 * time.Second,
		MaxClients: 8,
	}, s)
	if err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("simulator: start %s: %w", url, err)
	}

	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	s.log.Info().Str("url", url).Msg("simulator listening")
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Stop()
}

// Requests returns how many requests were served.
func (s *Server) Requests() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// AddDevice makes unit answer requests with zeroed memory.
func (s *Server) AddDevice(unit uint8) {
	s.mu.Lock()
	s.dev(unit)
	s.mu.Unlock()
}

// dev returns (creating) the device for unit. Caller holds mu for writing.
func (s *Server) dev(unit uint8) *device {
	d, ok := s.devices[unit]
	if !ok {
		d = newDevice()
		s.devices[unit] = d
	}
	return d
}

// ---- setters / getters ----

func (s *Server) SetCoil(unit uint8, addr uint16, on bool) {
	s.mu.Lock()
	s.dev(unit).coils[addr] = on
	s.mu.Unlock()
}

func (s *Server) SetDiscreteInput(unit uint8, addr uint16, on bool) {
	s.mu.Lock()
	s.dev(unit).discrete[addr] = on
	s.mu.Unlock()
}

func (s *Server) SetInputRegisters(unit uint8, addr uint16, regs ...uint16) {
	s.mu.Lock()
	copy(s.dev(unit).input[addr:], regs)
	s.mu.Unlock()
}

func (s *Server) SetHoldingRegisters(unit uint8, addr uint16, regs ...uint16) {
	s.mu.Lock()
	copy(s.dev(unit).holding[addr:], regs)
	s.mu.Unlock()
}

func (s *Server) Coil(unit uint8, addr uint16) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.devices[unit]; ok {
		return d.coils[addr]
	}
	return false
}

func (s *Server) HoldingRegisters(unit uint8, addr, qty uint16) []uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint16, qty)
	if d, ok := s.devices[unit]; ok {
		copy(out, d.holding[int(addr):])
	}
	return out
}

// Store encodes v at a configured channel address.
func (s *Server) Store(unit uint8, addr int, dt codec.DataType, order codec.WordOrder, v float64) error {
	loc, err := address.Decode(addr, dt)
	if err != nil {
		return err
	}

	switch loc.Zone {
	case address.Coils:
		s.SetCoil(unit, loc.Offset, v != 0)
		return nil
	case address.DiscreteInputs:
		s.SetDiscreteInput(unit, loc.Offset, v != 0)
		return nil
	}

	regs, err := codec.EncodeValue(v, dt, order)
	if err != nil {
		return err
	}
	if int(loc.Offset)+len(regs) > space {
		return address.ErrOutOfRange
	}

	if loc.Zone == address.InputRegisters {
		s.SetInputRegisters(unit, loc.Offset, regs...)
	} else {
		s.SetHoldingRegisters(unit, loc.Offset, regs...)
	}
	return nil
}

// ---- modbus.RequestHandler ----

var errUnknownUnit = modbus.ErrGWTargetFailedToRespond

func span(addr, qty uint16) error {
	if int(addr)+int(qty) > space {
		return modbus.ErrIllegalDataAddress
	}
	return nil
}

// lookup resolves the device and counts the request. Caller holds mu for writing.
func (s *Server) lookup(unit uint8, addr, qty uint16) (*device, error) {
	s.count++
	d, ok := s.devices[unit]
	if !ok {
		return nil, errUnknownUnit
	}
	return d, span(addr, qty)
}

func (s *Server) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(req.UnitId, req.Addr, req.Quantity)
	if err != nil {
		return nil, s.reject("coils", req.UnitId, req.Addr, err)
	}

	if req.IsWrite {
		copy(d.coils[req.Addr:], req.Args)
	}
	out := make([]bool, req.Quantity)
	copy(out, d.coils[req.Addr:])
	return out, nil
}

func (s *Server) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(req.UnitId, req.Addr, req.Quantity)
	if err != nil {
		return nil, s.reject("discrete-inputs", req.UnitId, req.Addr, err)
	}

	out := make([]bool, req.Quantity)
	copy(out, d.discrete[req.Addr:])
	return out, nil
}

func (s *Server) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(req.UnitId, req.Addr, req.Quantity)
	if err != nil {
		return nil, s.reject("holding-registers", req.UnitId, req.Addr, err)
	}

	if req.IsWrite {
		copy(d.holding[req.Addr:], req.Args)
	}
	out := make([]uint16, req.Quantity)
	copy(out, d.holding[req.Addr:])
	return out, nil
}

func (s *Server) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookup(req.UnitId, req.Addr, req.Quantity)
	if err != nil {
		return nil, s.reject("input-registers", req.UnitId, req.Addr, err)
	}

	out := make([]uint16, req.Quantity)
	copy(out, d.input[req.Addr:])
	return out, nil
}

func (s *Server) reject(zone string, unit uint8, addr uint16, err error) error {
	ev := s.log.Debug()
	if !errors.Is(err, errUnknownUnit) {
		ev = s.log.Warn()
	}
	ev.Str("zone", zone).Uint8("unit", unit).Uint16("addr", addr).Err(err).Msg("request rejected")
	return err
}
