// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/modbus-acquire/internal/address"
	"github.com/tamzrod/modbus-acquire/internal/codec"
	"github.com/tamzrod/modbus-acquire/internal/expr"
	"github.com/tamzrod/modbus-acquire/internal/status"
)

// ErrInvalid is the root of every ConfigError.
var ErrInvalid = errors.New("invalid configuration")

// ConfigError names the offending record and field.
type ConfigError struct {
	Record string // "channel 3", "math \"Total\"", "engine"
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("config: %s: %s: %s", e.Record, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalid
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalid }

func invalid(record, field, format string, args ...any) *ConfigError {
	return &ConfigError{Record: record, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return invalid("", "config", "missing")
	}
	if err := validateEngine(&cfg.Engine); err != nil {
		return err
	}
	return ValidateChannels(cfg.Channels, cfg.MathChannels)
}

func validateEngine(e *EngineConfig) error {
	const rec = "engine"

	if e.PollIntervalMs < 0 {
		return invalid(rec, "poll_interval_ms", "must not be negative")
	}
	if _, err := codec.ParseWordOrder(e.WordOrder); err != nil {
		return &ConfigError{Record: rec, Field: "word_order", Reason: err.Error(), Err: err}
	}

	// ------------------------------------------------------------
	// TRANSPORT
	// ------------------------------------------------------------

	t := e.Transport
	switch strings.ToLower(t.Mode) {
	case "", ModeTCP, ModeRTU:
	default:
		return invalid(rec, "transport.mode", "unknown mode %q", t.Mode)
	}
	if t.TimeoutMs < 0 {
		return invalid(rec, "transport.timeout_ms", "must not be negative")
	}
	if strings.EqualFold(t.Mode, ModeRTU) {
		if t.Endpoint == "" {
			return invalid(rec, "transport.endpoint", "serial device required for rtu")
		}
		switch strings.ToUpper(t.Parity) {
		case "", "N", "E", "O":
		default:
			return invalid(rec, "transport.parity", "must be N, E or O")
		}
	}

	// ------------------------------------------------------------
	// RECORDS
	// ------------------------------------------------------------

	switch e.Records.Kind {
	case "", RecordsYAML:
	case RecordsCSV, RecordsSQLite:
		if e.Records.Path == "" {
			return invalid(rec, "records.path", "required for kind %q", e.Records.Kind)
		}
	default:
		return invalid(rec, "records.kind", "unknown kind %q", e.Records.Kind)
	}

	// ------------------------------------------------------------
	// DEVICE STATUS BLOCK (OPT-IN)
	// ------------------------------------------------------------

	if s := e.Status; s != nil {
		loc, err := address.Decode(s.Address, codec.UInt16)
		if err != nil {
			return &ConfigError{Record: rec, Field: "status.address", Reason: err.Error(), Err: err}
		}
		if loc.Zone != address.HoldingRegisters {
			return invalid(rec, "status.address", "must be a holding register (4xxxx)")
		}
		if int(loc.Offset)+status.BlockSize-1 > 0xFFFF {
			return invalid(rec, "status.address", "block does not fit in the register space")
		}
		if len(s.Name) > status.DeviceNameMaxChars {
			return invalid(rec, "status.name", "longer than %d characters", status.DeviceNameMaxChars)
		}
	}

	if m := e.Sinks.MQTT; m != nil {
		if m.Broker == "" {
			return invalid(rec, "sinks.mqtt.broker", "required")
		}
		if m.QoS > 2 {
			return invalid(rec, "sinks.mqtt.qos", "must be 0, 1 or 2")
		}
	}
	if h := e.Sinks.History; h != nil && h.Path == "" {
		return invalid(rec, "sinks.history.path", "required")
	}

	return nil
}

// ValidateChannel checks a single channel record in isolation.
func ValidateChannel(ch ChannelConfig) error {
	rec := fmt.Sprintf("channel %d", ch.Number)

	if ch.Number <= 0 {
		return invalid(rec, "number", "must be positive")
	}
	dt, err := codec.ParseDataType(string(ch.DataType))
	if err != nil {
		return &ConfigError{Record: rec, Field: "data_type", Reason: err.Error(), Err: err}
	}
	if _, err := address.Decode(ch.Address, dt); err != nil {
		return &ConfigError{Record: rec, Field: "address", Reason: err.Error(), Err: err}
	}
	if _, err := codec.ParseWordOrder(string(ch.WordOrder)); err != nil {
		return &ConfigError{Record: rec, Field: "word_order", Reason: err.Error(), Err: err}
	}
	if !(ch.Low < ch.High) {
		return invalid(rec, "low/high", "low (%v) must be below high (%v)", ch.Low, ch.High)
	}
	if ch.Digits < 0 {
		return invalid(rec, "digits", "must not be negative")
	}
	if ch.Formula != "" {
		if _, err := expr.Compile(ch.Formula); err != nil {
			return &ConfigError{Record: rec, Field: "formula", Reason: err.Error(), Err: err}
		}
	}
	return nil
}

// ValidateMathChannel checks a single math channel record in isolation.
func ValidateMathChannel(m MathChannelConfig) error {
	rec := fmt.Sprintf("math %q", m.Name)

	if strings.TrimSpace(m.Name) == "" {
		return invalid(rec, "name", "required")
	}
	if strings.ContainsAny(m.Name, "[]") {
		return invalid(rec, "name", "must not contain brackets")
	}
	if m.Digits < 0 {
		return invalid(rec, "digits", "must not be negative")
	}
	if _, err := expr.Compile(m.Formula); err != nil {
		return &ConfigError{Record: rec, Field: "formula", Reason: err.Error(), Err: err}
	}
	return nil
}

// ValidateChannels checks a whole record set: every record on its own, then
// uniqueness of channel numbers and of names across both lists.
func ValidateChannels(chs []ChannelConfig, maths []MathChannelConfig) error {
	numbers := make(map[int]struct{}, len(chs))
	names := make(map[string]string, len(chs)+len(maths))

	for _, ch := range chs {
		if err := ValidateChannel(ch); err != nil {
			return err
		}
		rec := fmt.Sprintf("channel %d", ch.Number)

		if _, dup := numbers[ch.Number]; dup {
			return invalid(rec, "number", "duplicate channel number")
		}
		numbers[ch.Number] = struct{}{}

		if ch.Name == "" {
			continue
		}
		if prev, dup := names[ch.Name]; dup {
			return invalid(rec, "name", "%q already used by %s", ch.Name, prev)
		}
		names[ch.Name] = rec
	}

	for _, m := range maths {
		if err := ValidateMathChannel(m); err != nil {
			return err
		}
		rec := fmt.Sprintf("math %q", m.Name)
		if prev, dup := names[m.Name]; dup {
			return invalid(rec, "name", "%q already used by %s", m.Name, prev)
		}
		names[m.Name] = rec
	}

	return nil
}
