// internal/expr/registry.go
package expr

import (
	"sort"
	"strconv"
	"strings"
)

// Value is a function argument. Formulas compute numbers only; strings
// exist so stateful functions can name their counter or timer.
type Value struct {
	Num      float64
	Str      string
	IsString bool
}

// Number returns the numeric value or ErrType for a string.
func (v Value) Number() (float64, error) {
	if v.IsString {
		return 0, errAt(ErrType, -1, "expected number, got string %q", v.Str)
	}
	return v.Num, nil
}

// Key renders the value as an identifier: strings as-is, numbers in their
// shortest decimal form.
func (v Value) Key() string {
	if v.IsString {
		return v.Str
	}
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

// Thunk evaluates one argument on demand.
type Thunk func() (Value, error)

// Func is one registered function. Exactly one of Call or Lazy is set:
// Call receives arguments evaluated left to right, Lazy receives thunks and
// decides which arguments to evaluate at all.
type Func struct {
	MinArgs int
	MaxArgs int
	Call    func(args []Value) (float64, error)
	Lazy    func(args []Thunk) (float64, error)
}

// Registry maps lower-case function names to implementations.
// It is filled once at construction and read concurrently afterwards.
type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, f Func) {
	r.funcs[strings.ToLower(name)] = f
}

func (r *Registry) Lookup(name string) (Func, bool) {
	if r == nil {
		return Func{}, false
	}
	f, ok := r.funcs[strings.ToLower(name)]
	return f, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
