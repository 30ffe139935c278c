// internal/sink/log.go
package sink

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-acquire/internal/published"
)

// Log writes one structured event per cycle.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("component", "sink.log").Logger()}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Consume(_ context.Context, snap *published.Snapshot) error {
	if snap == nil {
		return nil
	}

	values := zerolog.Dict()
	for _, s := range Samples(snap) {
		if math.IsNaN(s.Value) {
			values.Str(s.label(), "NaN")
			continue
		}
		values.Float64(s.label(), s.Value)
	}

	lvl := zerolog.InfoLevel
	if len(snap.Errors) > 0 {
		lvl = zerolog.WarnLevel
	}
	l.log.WithLevel(lvl).
		Uint64("cycle", snap.Cycle).
		Dur("took", snap.Duration).
		Int("errors", len(snap.Errors)).
		Dict("values", values).
		Msg("values")
	return nil
}

func (l *Log) Close() error { return nil }
