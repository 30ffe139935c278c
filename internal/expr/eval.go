// internal/expr/eval.go
package expr

import (
	"math"
	"strings"
)

// Env resolves variable names to values.
type Env interface {
	Lookup(name string) (float64, bool)
}

// AddressEnv is implemented by environments that can resolve five-digit
// register address tokens to the value of the owning channel.
type AddressEnv interface {
	Env
	LookupAddress(addr int) (float64, bool)
}

// MapEnv is the simplest Env.
type MapEnv map[string]float64

func (m MapEnv) Lookup(name string) (float64, bool) {
	v, ok := m[name]
	return v, ok
}

func constant(name string) (float64, bool) {
	switch strings.ToLower(name) {
	case "pi":
		return math.Pi, true
	case "e":
		return math.E, true
	}
	return 0, false
}

func bool2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

type evaluator struct {
	env Env
	reg *Registry
}

func (ev *evaluator) number(n node) (float64, error) {
	v, err := ev.eval(n)
	if err != nil {
		return 0, err
	}
	if v.IsString {
		return 0, errAt(ErrType, n.position(), "string %q used as a number", v.Str)
	}
	return v.Num, nil
}

func (ev *evaluator) eval(n node) (Value, error) {
	switch t := n.(type) {
	case *numberLit:
		return Value{Num: t.val}, nil

	case *stringLit:
		return Value{Str: t.val, IsString: true}, nil

	case *addressRef:
		if ae, ok := ev.env.(AddressEnv); ok {
			if v, ok := ae.LookupAddress(t.addr); ok {
				return Value{Num: v}, nil
			}
		}
		return Value{Num: t.val}, nil

	case *varRef:
		if ev.env != nil {
			if v, ok := ev.env.Lookup(t.name); ok {
				return Value{Num: v}, nil
			}
		}
		if v, ok := constant(t.name); ok {
			return Value{Num: v}, nil
		}
		return Value{}, errAt(ErrUnknownIdentifier, t.pos, "%q", t.name)

	case *unaryExpr:
		x, err := ev.number(t.x)
		if err != nil {
			return Value{}, err
		}
		switch t.op {
		case "-":
			return Value{Num: -x}, nil
		case "+":
			return Value{Num: x}, nil
		case "!":
			return Value{Num: bool2f(x == 0)}, nil
		}
		return Value{}, errAt(ErrMalformedExpression, t.pos, "unknown operator %q", t.op)

	case *binaryExpr:
		return ev.binary(t)

	case *callExpr:
		return ev.call(t)
	}

	return Value{}, errAt(ErrMalformedExpression, n.position(), "unsupported node")
}

func (ev *evaluator) binary(t *binaryExpr) (Value, error) {
	x, err := ev.number(t.x)
	if err != nil {
		return Value{}, err
	}

	// && and || only look at the right side when it can change the result
	switch t.op {
	case "&&":
		if x == 0 {
			return Value{Num: 0}, nil
		}
		y, err := ev.number(t.y)
		if err != nil {
			return Value{}, err
		}
		return Value{Num: bool2f(y != 0)}, nil
	case "||":
		if x != 0 {
			return Value{Num: 1}, nil
		}
		y, err := ev.number(t.y)
		if err != nil {
			return Value{}, err
		}
		return Value{Num: bool2f(y != 0)}, nil
	}

	y, err := ev.number(t.y)
	if err != nil {
		return Value{}, err
	}

	var r float64
	switch t.op {
	case "+":
		r = x + y
	case "-":
		r = x - y
	case "*":
		r = x * y
	case "/":
		if y == 0 {
			r = math.NaN()
		} else {
			r = x / y
		}
	case "^":
		r = math.Pow(x, y)
	case "==":
		r = bool2f(x == y)
	case "!=":
		r = bool2f(x != y)
	case "<":
		r = bool2f(x < y)
	case ">":
		r = bool2f(x > y)
	case "<=":
		r = bool2f(x <= y)
	case ">=":
		r = bool2f(x >= y)
	default:
		return Value{}, errAt(ErrMalformedExpression, t.pos, "unknown operator %q", t.op)
	}
	return Value{Num: r}, nil
}

func (ev *evaluator) call(t *callExpr) (Value, error) {
	f, ok := ev.reg.Lookup(t.name)
	if !ok {
		return Value{}, errAt(ErrUnknownFunction, t.pos, "%s()", t.name)
	}
	if len(t.args) < f.MinArgs || len(t.args) > f.MaxArgs {
		if f.MinArgs == f.MaxArgs {
			return Value{}, errAt(ErrArity, t.pos, "%s() takes %d, got %d", t.name, f.MinArgs, len(t.args))
		}
		return Value{}, errAt(ErrArity, t.pos, "%s() takes %d to %d, got %d", t.name, f.MinArgs, f.MaxArgs, len(t.args))
	}

	var (
		r   float64
		err error
	)
	if f.Lazy != nil {
		thunks := make([]Thunk, len(t.args))
		for i, a := range t.args {
			a := a
			thunks[i] = func() (Value, error) { return ev.eval(a) }
		}
		r, err = f.Lazy(thunks)
	} else {
		args := make([]Value, len(t.args))
		for i, a := range t.args {
			if args[i], err = ev.eval(a); err != nil {
				return Value{}, err
			}
		}
		r, err = f.Call(args)
	}
	if err != nil {
		return Value{}, wrapCallErr(t, err)
	}
	return Value{Num: r}, nil
}

// wrapCallErr keeps evaluation errors classifiable and tags foreign ones.
func wrapCallErr(t *callExpr, err error) error {
	if isEvalErr(err) {
		return err
	}
	return errAt(ErrMalformedExpression, t.pos, "%s(): %v", t.name, err)
}
