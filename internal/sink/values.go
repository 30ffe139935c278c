// internal/sink/values.go
package sink

import (
	"context"

	"github.com/tamzrod/modbus-acquire/internal/published"
)

// ValueUpdater stores the last value of each channel back into its record.
// records.CSVStore and records.SQLiteStore implement it.
type ValueUpdater interface {
	UpdateValues(ctx context.Context, values map[int]float64) error
}

// Values writes every cycle's computed channel values into the records source.
type Values struct {
	u ValueUpdater
}

func NewValues(u ValueUpdater) *Values {
	return &Values{u: u}
}

func (v *Values) Name() string { return "values" }

func (v *Values) Consume(ctx context.Context, snap *published.Snapshot) error {
	if snap == nil || len(snap.Channels) == 0 {
		return nil
	}
	values := make(map[int]float64, len(snap.Channels))
	for n, ch := range snap.Channels {
		values[n] = ch.Value
	}
	return v.u.UpdateValues(ctx, values)
}

func (v *Values) Close() error { return nil }
