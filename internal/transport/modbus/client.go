// internal/transport/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/modbus-acquire/internal/codec"
)

const (
	ModeTCP = "tcp"
	ModeRTU = "rtu"
)

type Config struct {
	Mode     string // tcp | rtu
	Endpoint string // host:port or serial device
	Timeout  time.Duration

	// serial line (rtu only)
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
}

// handler is the subset shared by the goburrow TCP and RTU handlers.
type handler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// Client is a single connection to one Modbus line or endpoint.
// It serializes requests because it mutates SlaveId per call,
// so polling and out-of-band writes never interleave on the wire.
type Client struct {
	mu       sync.Mutex
	handler  handler
	setSlave func(uint8)
	client   modbus.Client
}

// New builds a client. The connection is opened lazily on the first
// request and re-opened after a link failure.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("transport modbus: endpoint required")
	}

	switch strings.ToLower(cfg.Mode) {
	case "", ModeTCP:
		h := modbus.NewTCPClientHandler(cfg.Endpoint)
		h.Timeout = cfg.Timeout
		return &Client{
			handler:  h,
			setSlave: func(id uint8) { h.SlaveId = id },
			client:   modbus.NewClient(h),
		}, nil

	case ModeRTU:
		h := modbus.NewRTUClientHandler(cfg.Endpoint)
		h.Timeout = cfg.Timeout
		h.BaudRate = cfg.BaudRate
		h.DataBits = cfg.DataBits
		h.Parity = strings.ToUpper(cfg.Parity)
		h.StopBits = cfg.StopBits
		return &Client{
			handler:  h,
			setSlave: func(id uint8) { h.SlaveId = id },
			client:   modbus.NewClient(h),
		}, nil
	}

	return nil, fmt.Errorf("transport modbus: unknown mode %q", cfg.Mode)
}

// Connect opens the connection eagerly. Optional.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Connect()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ---- transport.Reader ----

func (c *Client) ReadCoils(device uint8, addr, qty uint16) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(device)
	data, err := c.client.ReadCoils(addr, qty)
	if err != nil {
		return nil, c.drop(err)
	}
	return unpackBits(data, int(qty))
}

func (c *Client) ReadDiscreteInputs(device uint8, addr, qty uint16) ([]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(device)
	data, err := c.client.ReadDiscreteInputs(addr, qty)
	if err != nil {
		return nil, c.drop(err)
	}
	return unpackBits(data, int(qty))
}

func (c *Client) ReadHoldingRegisters(device uint8, addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(device)
	data, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, c.drop(err)
	}
	return unpackRegisters(data, int(qty))
}

func (c *Client) ReadInputRegisters(device uint8, addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(device)
	data, err := c.client.ReadInputRegisters(addr, qty)
	if err != nil {
		return nil, c.drop(err)
	}
	return unpackRegisters(data, int(qty))
}

// ---- transport.Writer ----

func (c *Client) WriteCoil(device uint8, addr uint16, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(device)

	var v uint16
	if on {
		v = 0xFF00
	}
	_, err := c.client.WriteSingleCoil(addr, v)
	return c.drop(err)
}

func (c *Client) WriteRegister(device uint8, addr uint16, v uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(device)
	_, err := c.client.WriteSingleRegister(addr, v)
	return c.drop(err)
}

func (c *Client) WriteRegisters(device uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(device)

	qty := uint16(len(regs))
	payload := packRegisters(regs)

	_, err := c.client.WriteMultipleRegisters(addr, qty, payload)
	return c.drop(err)
}

// drop closes the connection after a link failure so the next request
// reconnects. Device exceptions keep the connection. Caller holds mu.
func (c *Client) drop(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := ExceptionCode(err); !ok {
		_ = c.handler.Close()
	}
	return err
}

// ---- helpers (pure geometry) ----

// unpackBits expands a packed bit payload. A payload holding fewer than
// count bits is a short response.
func unpackBits(data []byte, count int) ([]bool, error) {
	if len(data)*8 < count {
		return nil, fmt.Errorf("transport modbus: %d bytes for %d bits: %w", len(data), count, codec.ErrShortResponse)
	}
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		out[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return out, nil
}

func unpackRegisters(data []byte, count int) ([]uint16, error) {
	if len(data) < 2*count {
		return nil, fmt.Errorf("transport modbus: %d bytes for %d registers: %w", len(data), count, codec.ErrShortResponse)
	}
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out, nil
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

// ExceptionCode extracts the Modbus exception code from err, if any.
func ExceptionCode(err error) (byte, bool) {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return me.ExceptionCode, true
	}
	return 0, false
}
