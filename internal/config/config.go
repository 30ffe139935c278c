// internal/config/config.go
package config

import (
	"github.com/tamzrod/modbus-acquire/internal/codec"
)

type Config struct {
	Engine       EngineConfig        `yaml:"engine"`
	Channels     []ChannelConfig     `yaml:"channels"`
	MathChannels []MathChannelConfig `yaml:"math_channels"`
}

// ---- ENGINE ----

type EngineConfig struct {
	PollIntervalMs int             `yaml:"poll_interval_ms"`
	WordOrder      string          `yaml:"word_order"` // default for channels without one
	Transport      TransportConfig `yaml:"transport"`
	Records        RecordsConfig   `yaml:"records"`
	Status         *StatusConfig   `yaml:"status"` // optional, opt-in
	Sinks          SinksConfig     `yaml:"sinks"`
	Metrics        MetricsConfig   `yaml:"metrics"`
}

// ---- TRANSPORT ----

const (
	ModeTCP = "tcp"
	ModeRTU = "rtu"
)

type TransportConfig struct {
	Mode      string `yaml:"mode"`     // tcp | rtu
	Endpoint  string `yaml:"endpoint"` // host:port or serial device
	TimeoutMs int    `yaml:"timeout_ms"`

	// serial line (rtu only)
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"` // N | E | O
	StopBits int    `yaml:"stop_bits"`
}

// ---- RECORDS ----

const (
	RecordsYAML   = "yaml"
	RecordsCSV    = "csv"
	RecordsSQLite = "sqlite"
)

// RecordsConfig selects where channel definitions are read from each cycle.
// For kind yaml the path defaults to the engine config file itself.
type RecordsConfig struct {
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`
	MathPath string `yaml:"math_path"` // csv only
}

// ---- DEVICE STATUS BLOCK ----

// StatusConfig places the engine health block in a device's holding registers.
type StatusConfig struct {
	DeviceID uint8  `yaml:"device_id"`
	Address  int    `yaml:"address"` // 40001-based start of the block
	Name     string `yaml:"name"`    // optional, up to 16 ASCII characters
}

// ---- SINKS ----

type SinksConfig struct {
	Log     LogSinkConfig      `yaml:"log"`
	MQTT    *MQTTSinkConfig    `yaml:"mqtt"`
	History *HistorySinkConfig `yaml:"history"`
}

type LogSinkConfig struct {
	Enabled bool `yaml:"enabled"`
}

type MQTTSinkConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
}

type HistorySinkConfig struct {
	Path string `yaml:"path"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the HTTP endpoint
}

// ---- CHANNEL RECORDS ----

// Color is the display color carried through for collaborators.
type Color struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// ChannelConfig is one device-backed channel.
type ChannelConfig struct {
	Number    int             `yaml:"number"`
	Address   int             `yaml:"address"`
	DataType  codec.DataType  `yaml:"data_type"`
	DeviceID  uint8           `yaml:"device_id"`
	Value     float64         `yaml:"value"` // last value, persisted by flat stores only
	Low       float64         `yaml:"low"`
	High      float64         `yaml:"high"`
	Offset    float64         `yaml:"offset"`
	Digits    int             `yaml:"digits"`
	Color     Color           `yaml:"color"`
	Formula   string          `yaml:"formula"` // "x" when empty
	Unit      string          `yaml:"unit"`
	Name      string          `yaml:"name"`
	WordOrder codec.WordOrder `yaml:"word_order"`
}

// MathChannelConfig is a named value computed purely from a formula.
type MathChannelConfig struct {
	Name    string `yaml:"name"`
	Formula string `yaml:"formula"`
	Unit    string `yaml:"unit"`
	Digits  int    `yaml:"digits"`
	Enabled bool   `yaml:"enabled"`
}
