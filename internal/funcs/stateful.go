// internal/funcs/stateful.go
package funcs

import (
	"math"

	"github.com/tamzrod/modbus-acquire/internal/expr"
	"github.com/tamzrod/modbus-acquire/internal/state"
)

func idArg(args []expr.Value) string {
	if len(args) == 0 {
		return state.DefaultID
	}
	return args[0].Key()
}

// withID registers a function taking an optional id.
func withID(fn func(id string) float64) expr.Func {
	return expr.Func{
		MinArgs: 0,
		MaxArgs: 1,
		Call: func(args []expr.Value) (float64, error) {
			return fn(idArg(args)), nil
		},
	}
}

func registerCounters(r *expr.Registry, st *state.Store) {
	r.Register("counter", withID(func(id string) float64 {
		return float64(st.Counter(id))
	}))
	r.Register("counter_inc", withID(func(id string) float64 {
		return float64(st.Inc(id))
	}))
	r.Register("counter_dec", withID(func(id string) float64 {
		return float64(st.Dec(id))
	}))
	r.Register("counter_reset", withID(func(id string) float64 {
		st.ResetCounter(id)
		return 0
	}))
	r.Register("counter_set", expr.Func{
		MinArgs: 2,
		MaxArgs: 2,
		Call: func(args []expr.Value) (float64, error) {
			v, err := args[1].Number()
			if err != nil {
				return 0, err
			}
			return float64(st.SetCounter(args[0].Key(), toCount(v))), nil
		},
	})
}

// toCount rounds v to a counter value, saturating at the int64 range.
// NaN counts as zero.
func toCount(v float64) int64 {
	r := math.Round(v)
	switch {
	case math.IsNaN(r):
		return 0
	case r >= math.MaxInt64: // 2^63, one past the largest int64
		return math.MaxInt64
	case r <= math.MinInt64:
		return math.MinInt64
	}
	return int64(r)
}

func registerTimers(r *expr.Registry, st *state.Store) {
	r.Register("timer", withID(st.Elapsed))
	r.Register("timer_start", withID(func(id string) float64 {
		st.StartTimer(id)
		return 0
	}))
	r.Register("timer_stop", withID(func(id string) float64 {
		st.StopTimer(id)
		return 0
	}))
	r.Register("timer_reset", withID(func(id string) float64 {
		st.ResetTimer(id)
		return 0
	}))
	r.Register("timer_running", withID(func(id string) float64 {
		return b2f(st.TimerRunning(id))
	}))
}
