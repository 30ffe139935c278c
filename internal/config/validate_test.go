// internal/config/validate_test.go
package config

import (
	"errors"
	"testing"

	"github.com/tamzrod/modbus-acquire/internal/address"
	"github.com/tamzrod/modbus-acquire/internal/codec"
	"github.com/tamzrod/modbus-acquire/internal/expr"
)

// helper to build a channel quickly
func channel(number, addr int, dt codec.DataType, name string) ChannelConfig {
	return ChannelConfig{
		Number:   number,
		Address:  addr,
		DataType: dt,
		DeviceID: 1,
		Low:      0,
		High:     1000,
		Digits:   2,
		Name:     name,
	}
}

// ---- tests ----

func TestValidate_MinimalConfig(t *testing.T) {
	cfg := &Config{
		Channels: []ChannelConfig{
			channel(1, 40001, codec.Float32, "Temp"),
			channel(2, 30001, codec.Int16, "Flow"),
			channel(3, 1, codec.UInt16, "Pump"),
		},
		MathChannels: []MathChannelConfig{
			{Name: "Total", Formula: "CH1 + CH2", Enabled: true},
		},
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DuplicateChannelNumber(t *testing.T) {
	cfg := &Config{
		Channels: []ChannelConfig{
			channel(1, 40001, codec.Int16, "a"),
			channel(1, 40002, codec.Int16, "b"),
		},
	}

	err := Validate(cfg)
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "number" {
		t.Fatalf("expected number ConfigError, got %v", err)
	}
}

func TestValidate_DuplicateNameAcrossMath(t *testing.T) {
	cfg := &Config{
		Channels: []ChannelConfig{
			channel(1, 40001, codec.Int16, "Flow"),
		},
		MathChannels: []MathChannelConfig{
			{Name: "Flow", Formula: "1"},
		},
	}

	if err := Validate(cfg); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
}

func TestValidateChannel_Rejects(t *testing.T) {
	base := channel(1, 40001, codec.Int16, "a")

	cases := []struct {
		name  string
		mod   func(c *ChannelConfig)
		field string
	}{
		{"zero number", func(c *ChannelConfig) { c.Number = 0 }, "number"},
		{"bad type", func(c *ChannelConfig) { c.DataType = "Float64" }, "data_type"},
		{"zero address", func(c *ChannelConfig) { c.Address = 0 }, "address"},
		{"offset out of range", func(c *ChannelConfig) { c.Address = 70000 }, "address"},
		{"low equals high", func(c *ChannelConfig) { c.Low, c.High = 5, 5 }, "low/high"},
		{"low above high", func(c *ChannelConfig) { c.Low, c.High = 10, 1 }, "low/high"},
		{"negative digits", func(c *ChannelConfig) { c.Digits = -1 }, "digits"},
		{"bad word order", func(c *ChannelConfig) { c.WordOrder = "DCBA" }, "word_order"},
		{"malformed formula", func(c *ChannelConfig) { c.Formula = "x +" }, "formula"},
	}

	for _, tc := range cases {
		c := base
		tc.mod(&c)

		err := ValidateChannel(c)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected ConfigError, got %v", tc.name, err)
		}
		if ce.Field != tc.field {
			t.Fatalf("%s: field = %q, want %q", tc.name, ce.Field, tc.field)
		}
	}
}

func TestValidateChannel_WrapsCause(t *testing.T) {
	c := channel(1, 40001, codec.Int16, "a")
	c.Formula = "(x + 1"

	err := ValidateChannel(c)
	if !errors.Is(err, expr.ErrUnmatchedParenthesis) {
		t.Fatalf("expected wrapped parse error, got %v", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid classification, got %v", err)
	}

	c = channel(1, 0, codec.Int16, "a")
	if err := ValidateChannel(c); !errors.Is(err, address.ErrNonPositive) {
		t.Fatalf("expected address cause, got %v", err)
	}
}

func TestValidateMathChannel_Rejects(t *testing.T) {
	cases := []MathChannelConfig{
		{Name: "", Formula: "1"},
		{Name: "[x]", Formula: "1"},
		{Name: "ok", Formula: "1", Digits: -2},
		{Name: "ok", Formula: ""},
		{Name: "ok", Formula: "max(1,"},
	}
	for _, m := range cases {
		if err := ValidateMathChannel(m); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%+v: expected error, got %v", m, err)
		}
	}
}

func TestValidate_EngineSections(t *testing.T) {
	cases := []struct {
		name string
		e    EngineConfig
	}{
		{"negative interval", EngineConfig{PollIntervalMs: -1}},
		{"bad word order", EngineConfig{WordOrder: "XYZW"}},
		{"bad mode", EngineConfig{Transport: TransportConfig{Mode: "udp"}}},
		{"rtu without device", EngineConfig{Transport: TransportConfig{Mode: "rtu"}}},
		{"rtu bad parity", EngineConfig{Transport: TransportConfig{Mode: "rtu", Endpoint: "/dev/ttyUSB0", Parity: "X"}}},
		{"csv without path", EngineConfig{Records: RecordsConfig{Kind: RecordsCSV}}},
		{"unknown records", EngineConfig{Records: RecordsConfig{Kind: "json"}}},
		{"status in input registers", EngineConfig{Status: &StatusConfig{DeviceID: 1, Address: 30001}}},
		{"status past end", EngineConfig{Status: &StatusConfig{DeviceID: 1, Address: 105535}}},
		{"status name too long", EngineConfig{Status: &StatusConfig{DeviceID: 1, Address: 40001, Name: "a-name-of-seventeen"}}},
		{"mqtt without broker", EngineConfig{Sinks: SinksConfig{MQTT: &MQTTSinkConfig{}}}},
		{"history without path", EngineConfig{Sinks: SinksConfig{History: &HistorySinkConfig{}}}},
	}

	for _, tc := range cases {
		if err := Validate(&Config{Engine: tc.e}); err == nil {
			t.Fatalf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := &Config{
		Channels: []ChannelConfig{channel(1, 40001, "float32", "a")},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Channels[0].DataType != "float32" || cfg.Channels[0].Formula != "" {
		t.Fatalf("Validate mutated the channel: %+v", cfg.Channels[0])
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := &Config{
		Engine: EngineConfig{
			WordOrder: "badc",
			Sinks:     SinksConfig{MQTT: &MQTTSinkConfig{Broker: "tcp://localhost:1883"}},
		},
		Channels: []ChannelConfig{
			channel(1, 40001, "float32", "a"),
			func() ChannelConfig {
				c := channel(2, 40003, codec.Float32, "b")
				c.WordOrder = "abcd"
				c.Formula = "x * 2"
				return c
			}(),
		},
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	e := cfg.Engine
	if e.PollIntervalMs != DefaultPollIntervalMs || e.Transport.TimeoutMs != DefaultTimeoutMs {
		t.Fatalf("timing defaults not applied: %+v", e)
	}
	if e.Transport.Mode != ModeTCP || e.Records.Kind != RecordsYAML {
		t.Fatalf("mode/records defaults not applied: %+v", e)
	}
	if e.Sinks.MQTT.Topic != DefaultMQTTTopic {
		t.Fatalf("mqtt topic default not applied")
	}

	a, b := cfg.Channels[0], cfg.Channels[1]
	if a.DataType != codec.Float32 || a.Formula != DefaultFormula || a.WordOrder != codec.BADC {
		t.Fatalf("channel a not normalized: %+v", a)
	}
	if b.WordOrder != codec.ABCD || b.Formula != "x * 2" {
		t.Fatalf("channel b overridden: %+v", b)
	}
}

func TestParse_YAML(t *testing.T) {
	src := []byte(`
engine:
  poll_interval_ms: 250
  transport: {mode: tcp, endpoint: "127.0.0.1:1502"}
  status: {device_id: 9, address: 40100}
channels:
  - {number: 1, address: 40001, data_type: Float32, device_id: 1, low: 0, high: 100, digits: 2, name: Temp, color: {r: 255}}
math_channels:
  - {name: Double, formula: "CH1 * 2", digits: 1, enabled: true}
`)

	cfg, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Engine.PollIntervalMs != 250 || cfg.Engine.Status.Address != 40100 {
		t.Fatalf("engine not decoded: %+v", cfg.Engine)
	}
	if len(cfg.Channels) != 1 || cfg.Channels[0].Color.R != 255 || cfg.Channels[0].DataType != codec.Float32 {
		t.Fatalf("channels not decoded: %+v", cfg.Channels)
	}
	if len(cfg.MathChannels) != 1 || !cfg.MathChannels[0].Enabled {
		t.Fatalf("math channels not decoded: %+v", cfg.MathChannels)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if _, err := Parse([]byte("engine:\n  bogus: 1\n")); err == nil {
		t.Fatalf("expected unknown field error")
	}
}
