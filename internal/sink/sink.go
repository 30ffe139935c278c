// internal/sink/sink.go
package sink

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-acquire/internal/published"
)

// Sink consumes published snapshots.
type Sink interface {
	Name() string
	Consume(ctx context.Context, snap *published.Snapshot) error
	Close() error
}

// Listen attaches s as a synchronous publish listener. It runs on the poll
// goroutine, so it is meant for sinks that do not block.
func Listen(store *published.Store, s Sink, log zerolog.Logger) {
	store.OnPublish(func() {
		if err := s.Consume(context.Background(), store.Snapshot()); err != nil {
			log.Warn().Str("sink", s.Name()).Err(err).Msg("sink failed")
		}
	})
}

// Pump feeds s from a store subscription on its own goroutine until ctx is
// done. A slow sink skips cycles rather than delaying the poller.
func Pump(ctx context.Context, store *published.Store, s Sink, log zerolog.Logger) {
	ch, cancel := store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			if err := s.Consume(ctx, snap); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Str("sink", s.Name()).Uint64("cycle", snap.Cycle).Err(err).Msg("sink failed")
			}
		}
	}
}

// ------------------------------------------------------------
// Flattened view shared by the sinks
// ------------------------------------------------------------

// Kind tells channel samples from math samples.
type Kind string

const (
	KindChannel Kind = "channel"
	KindMath    Kind = "math"
)

// Sample is one published value.
type Sample struct {
	Kind  Kind
	Key   string // channel number or math name
	Name  string
	Unit  string
	Raw   float64 // NaN for math channels
	Value float64
}

// Samples flattens a snapshot: channels by number, then math by name.
func Samples(snap *published.Snapshot) []Sample {
	if snap == nil {
		return nil
	}

	out := make([]Sample, 0, len(snap.Channels)+len(snap.Math))
	for _, n := range snap.Numbers() {
		ch := snap.Channels[n]
		out = append(out, Sample{
			Kind:  KindChannel,
			Key:   strconv.Itoa(n),
			Name:  ch.Name,
			Unit:  ch.Unit,
			Raw:   ch.Raw,
			Value: ch.Value,
		})
	}

	names := make([]string, 0, len(snap.Math))
	for n := range snap.Math {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		out = append(out, Sample{
			Kind:  KindMath,
			Key:   n,
			Name:  n,
			Raw:   math.NaN(),
			Value: snap.Math[n],
		})
	}
	return out
}

// label is the human name of a sample: its name, else CH<n>.
func (s Sample) label() string {
	if s.Name != "" {
		return s.Name
	}
	return "CH" + s.Key
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
