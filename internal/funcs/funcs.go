// internal/funcs/funcs.go
package funcs

import (
	"math"

	"github.com/tamzrod/modbus-acquire/internal/expr"
	"github.com/tamzrod/modbus-acquire/internal/pipeline"
	"github.com/tamzrod/modbus-acquire/internal/state"
)

// New builds the built-in function registry bound to one state store.
func New(st *state.Store) *expr.Registry {
	r := expr.NewRegistry()
	registerMath(r)
	registerLogic(r)
	registerCounters(r, st)
	registerTimers(r, st)
	return r
}

func unary(fn func(float64) float64) expr.Func {
	return expr.Func{
		MinArgs: 1,
		MaxArgs: 1,
		Call: func(args []expr.Value) (float64, error) {
			x, err := args[0].Number()
			if err != nil {
				return 0, err
			}
			return fn(x), nil
		},
	}
}

func binary(fn func(a, b float64) float64) expr.Func {
	return expr.Func{
		MinArgs: 2,
		MaxArgs: 2,
		Call: func(args []expr.Value) (float64, error) {
			a, err := args[0].Number()
			if err != nil {
				return 0, err
			}
			b, err := args[1].Number()
			if err != nil {
				return 0, err
			}
			return fn(a, b), nil
		},
	}
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func registerMath(r *expr.Registry) {
	for name, fn := range map[string]func(float64) float64{
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"asin":  math.Asin,
		"acos":  math.Acos,
		"atan":  math.Atan,
		"sqrt":  math.Sqrt,
		"abs":   math.Abs,
		"log":   math.Log,
		"log10": math.Log10,
		"exp":   math.Exp,
		"ceil":  math.Ceil,
		"floor": math.Floor,
	} {
		r.Register(name, unary(fn))
	}

	r.Register("pow", binary(math.Pow))
	r.Register("min", binary(math.Min))
	r.Register("max", binary(math.Max))

	// round(x) or round(x, digits), half away from zero
	r.Register("round", expr.Func{
		MinArgs: 1,
		MaxArgs: 2,
		Call: func(args []expr.Value) (float64, error) {
			x, err := args[0].Number()
			if err != nil {
				return 0, err
			}
			digits := 0.0
			if len(args) == 2 {
				if digits, err = args[1].Number(); err != nil {
					return 0, err
				}
			}
			return pipeline.Round(x, int(digits)), nil
		},
	})
}

func registerLogic(r *expr.Registry) {
	r.Register("and", binary(func(a, b float64) float64 { return b2f(a != 0 && b != 0) }))
	r.Register("or", binary(func(a, b float64) float64 { return b2f(a != 0 || b != 0) }))
	r.Register("eq", binary(func(a, b float64) float64 { return b2f(a == b) }))
	r.Register("ne", binary(func(a, b float64) float64 { return b2f(a != b) }))
	r.Register("gt", binary(func(a, b float64) float64 { return b2f(a > b) }))
	r.Register("ge", binary(func(a, b float64) float64 { return b2f(a >= b) }))
	r.Register("lt", binary(func(a, b float64) float64 { return b2f(a < b) }))
	r.Register("le", binary(func(a, b float64) float64 { return b2f(a <= b) }))
	r.Register("not", unary(func(x float64) float64 { return b2f(x == 0) }))

	// if evaluates the condition and then only the selected branch, so
	// stateful calls in the other branch do not run.
	r.Register("if", expr.Func{
		MinArgs: 3,
		MaxArgs: 3,
		Lazy: func(args []expr.Thunk) (float64, error) {
			c, err := args[0]()
			if err != nil {
				return 0, err
			}
			cond, err := c.Number()
			if err != nil {
				return 0, err
			}
			branch := args[2]
			if cond != 0 {
				branch = args[1]
			}
			v, err := branch()
			if err != nil {
				return 0, err
			}
			return v.Number()
		},
	})
}
