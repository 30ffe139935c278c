// internal/poller/builder.go
package poller

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-acquire/internal/codec"
	cfg "github.com/tamzrod/modbus-acquire/internal/config"
	"github.com/tamzrod/modbus-acquire/internal/expr"
	"github.com/tamzrod/modbus-acquire/internal/published"
	"github.com/tamzrod/modbus-acquire/internal/records"
	"github.com/tamzrod/modbus-acquire/internal/transport"
	tmodbus "github.com/tamzrod/modbus-acquire/internal/transport/modbus"
)

// BuildTransport creates the shared device connection. It does not dial;
// the first request connects and a dead link is re-dialed on a later tick.
func BuildTransport(t cfg.TransportConfig) (*tmodbus.Client, error) {
	return tmodbus.New(tmodbus.Config{
		Mode:     t.Mode,
		Endpoint: t.Endpoint,
		Timeout:  time.Duration(t.TimeoutMs) * time.Millisecond,
		BaudRate: t.BaudRate,
		DataBits: t.DataBits,
		Parity:   t.Parity,
		StopBits: t.StopBits,
	})
}

// BuildSource opens the configured records source. For kind yaml without
// a path, the engine config file itself is re-read every cycle.
func BuildSource(r cfg.RecordsConfig, cfgPath string) (records.Source, func() error, error) {
	noop := func() error { return nil }

	switch r.Kind {
	case "", cfg.RecordsYAML:
		path := r.Path
		if path == "" {
			path = cfgPath
		}
		return &records.YAMLSource{Path: path}, noop, nil

	case cfg.RecordsCSV:
		return records.NewCSVStore(r.Path, r.MathPath), noop, nil

	case cfg.RecordsSQLite:
		s, err := records.OpenSQLite(r.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("poller: unknown records kind %q", r.Kind)
}

// Build constructs a Poller from a validated, normalized engine config.
func Build(
	e cfg.EngineConfig,
	source records.Source,
	reader transport.Reader,
	registry *expr.Registry,
	store *published.Store,
	log zerolog.Logger,
	opts ...Option,
) (*Poller, error) {
	order, err := codec.ParseWordOrder(e.WordOrder)
	if err != nil {
		return nil, err
	}

	return New(
		Config{
			Interval:  time.Duration(e.PollIntervalMs) * time.Millisecond,
			WordOrder: order,
		},
		source,
		reader,
		registry,
		store,
		log,
		opts...,
	)
}
