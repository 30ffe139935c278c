// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/modbus-acquire/internal/codec"
)

const (
	DefaultPollIntervalMs = 1000
	DefaultTimeoutMs      = 1000
	DefaultFormula        = "x"
	DefaultBaudRate       = 9600
	DefaultDataBits       = 8
	DefaultStopBits       = 1
	DefaultMQTTTopic      = "modbus-acquire/values"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	e := &cfg.Engine

	if e.PollIntervalMs == 0 {
		e.PollIntervalMs = DefaultPollIntervalMs
	}
	order, _ := codec.ParseWordOrder(e.WordOrder)
	e.WordOrder = string(order)

	// ------------------------------------------------------------
	// TRANSPORT
	// ------------------------------------------------------------

	t := &e.Transport
	t.Mode = strings.ToLower(t.Mode)
	if t.Mode == "" {
		t.Mode = ModeTCP
	}
	if t.TimeoutMs == 0 {
		t.TimeoutMs = DefaultTimeoutMs
	}
	if t.Mode == ModeRTU {
		if t.BaudRate == 0 {
			t.BaudRate = DefaultBaudRate
		}
		if t.DataBits == 0 {
			t.DataBits = DefaultDataBits
		}
		if t.StopBits == 0 {
			t.StopBits = DefaultStopBits
		}
		t.Parity = strings.ToUpper(t.Parity)
		if t.Parity == "" {
			t.Parity = "N"
		}
	}

	if e.Records.Kind == "" {
		e.Records.Kind = RecordsYAML
	}
	if m := e.Sinks.MQTT; m != nil && m.Topic == "" {
		m.Topic = DefaultMQTTTopic
	}

	// ------------------------------------------------------------
	// CHANNEL RECORDS
	// ------------------------------------------------------------

	for i := range cfg.Channels {
		NormalizeChannel(&cfg.Channels[i], order)
	}
}

// NormalizeChannel canonicalizes one record. Records stores call it on
// every load so runtime code never sees an empty formula.
func NormalizeChannel(ch *ChannelConfig, defaultOrder codec.WordOrder) {
	if dt, err := codec.ParseDataType(string(ch.DataType)); err == nil {
		ch.DataType = dt
	}
	if strings.TrimSpace(ch.Formula) == "" {
		ch.Formula = DefaultFormula
	}
	if ch.WordOrder == "" {
		// empty default keeps it empty; the poller resolves it per engine
		ch.WordOrder = defaultOrder
	} else if o, err := codec.ParseWordOrder(string(ch.WordOrder)); err == nil {
		ch.WordOrder = o
	}
}
