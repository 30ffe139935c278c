// internal/expr/expr.go
package expr

import (
	"errors"
	"sync"
)

// Expr is a compiled formula. It is immutable and safe for concurrent use.
type Expr struct {
	src  string
	root node
}

// Compile parses a formula without evaluating it.
func Compile(src string) (*Expr, error) {
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Expr{src: src, root: root}, nil
}

func (e *Expr) String() string { return e.src }

// Eval evaluates the formula. env may be nil.
func (e *Expr) Eval(env Env, reg *Registry) (float64, error) {
	ev := &evaluator{env: env, reg: reg}
	v, err := ev.eval(e.root)
	if err != nil {
		return 0, err
	}
	if v.IsString {
		return 0, errAt(ErrType, 0, "formula yields string %q", v.Str)
	}
	return v.Num, nil
}

// Variables lists the variable names referenced by the formula, in order of
// first appearance, without duplicates.
func (e *Expr) Variables() []string {
	seen := make(map[string]bool)
	var out []string
	walk(e.root, func(n node) {
		if v, ok := n.(*varRef); ok && !seen[v.name] {
			seen[v.name] = true
			out = append(out, v.name)
		}
	})
	return out
}

// Addresses lists the five-digit address tokens referenced by the formula.
func (e *Expr) Addresses() []int {
	seen := make(map[int]bool)
	var out []int
	walk(e.root, func(n node) {
		if a, ok := n.(*addressRef); ok && !seen[a.addr] {
			seen[a.addr] = true
			out = append(out, a.addr)
		}
	})
	return out
}

// Evaluate compiles and evaluates in one step.
func Evaluate(src string, env Env, reg *Registry) (float64, error) {
	e, err := Compile(src)
	if err != nil {
		return 0, err
	}
	return e.Eval(env, reg)
}

func isEvalErr(err error) bool { return errors.Is(err, ErrEvaluation) }

// ---- compile cache ----

const maxCacheEntries = 4096

type cacheEntry struct {
	expr *Expr
	err  error
}

// Cache memoizes Compile by formula text, including failures.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func (c *Cache) Compile(src string) (*Expr, error) {
	c.mu.RLock()
	ent, ok := c.entries[src]
	c.mu.RUnlock()
	if ok {
		return ent.expr, ent.err
	}

	e, err := Compile(src)

	c.mu.Lock()
	if len(c.entries) >= maxCacheEntries {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[src] = cacheEntry{expr: e, err: err}
	c.mu.Unlock()

	return e, err
}
