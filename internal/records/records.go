// internal/records/records.go
package records

import (
	"context"
	"errors"

	"github.com/tamzrod/modbus-acquire/internal/config"
)

// ErrNotFound is returned by edit operations on a missing record.
var ErrNotFound = errors.New("records: not found")

// Set is the full channel definition, loaded wholesale once per cycle.
type Set struct {
	Channels []config.ChannelConfig
	Math     []config.MathChannelConfig
}

// Source is read by the poller at the start of every cycle.
type Source interface {
	Load(ctx context.Context) (Set, error)
}

// Editor persists single-record edits after validating the resulting set.
type Editor interface {
	PutChannel(ctx context.Context, ch config.ChannelConfig) error
	DeleteChannel(ctx context.Context, number int) error
	PutMath(ctx context.Context, m config.MathChannelConfig) error
	DeleteMath(ctx context.Context, name string) error
}

// Static serves a fixed set. Useful for tests and for `acquire eval`.
type Static Set

func (s Static) Load(context.Context) (Set, error) {
	return finish(Set(s)), nil
}

// finish normalizes a freshly loaded set in place.
func finish(set Set) Set {
	chs := make([]config.ChannelConfig, len(set.Channels))
	copy(chs, set.Channels)
	for i := range chs {
		config.NormalizeChannel(&chs[i], "")
	}
	set.Channels = chs
	return set
}

// checkEdit validates set as it would look after an edit.
func checkEdit(set Set) error {
	return config.ValidateChannels(set.Channels, set.Math)
}

// putChannel replaces the record with the same number or appends it.
func putChannel(set Set, ch config.ChannelConfig) Set {
	out := make([]config.ChannelConfig, 0, len(set.Channels)+1)
	replaced := false
	for _, c := range set.Channels {
		if c.Number == ch.Number {
			out = append(out, ch)
			replaced = true
			continue
		}
		out = append(out, c)
	}
	if !replaced {
		out = append(out, ch)
	}
	set.Channels = out
	return set
}

func deleteChannel(set Set, number int) (Set, error) {
	out := make([]config.ChannelConfig, 0, len(set.Channels))
	for _, c := range set.Channels {
		if c.Number != number {
			out = append(out, c)
		}
	}
	if len(out) == len(set.Channels) {
		return set, ErrNotFound
	}
	set.Channels = out
	return set, nil
}

func putMath(set Set, m config.MathChannelConfig) Set {
	out := make([]config.MathChannelConfig, 0, len(set.Math)+1)
	replaced := false
	for _, c := range set.Math {
		if c.Name == m.Name {
			out = append(out, m)
			replaced = true
			continue
		}
		out = append(out, c)
	}
	if !replaced {
		out = append(out, m)
	}
	set.Math = out
	return set
}

func deleteMath(set Set, name string) (Set, error) {
	out := make([]config.MathChannelConfig, 0, len(set.Math))
	for _, c := range set.Math {
		if c.Name != name {
			out = append(out, c)
		}
	}
	if len(out) == len(set.Math) {
		return set, ErrNotFound
	}
	set.Math = out
	return set, nil
}
