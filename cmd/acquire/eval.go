// cmd/acquire/eval.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tamzrod/modbus-acquire/internal/expr"
	"github.com/tamzrod/modbus-acquire/internal/funcs"
	"github.com/tamzrod/modbus-acquire/internal/state"
)

type EvalCommand struct {
	Vars      []string `short:"v" long:"var" value-name:"NAME=VALUE" description:"Bind a variable (repeatable), e.g. -v x=12.5 -v CH3=1"`
	Functions bool     `short:"l" long:"functions" description:"List the formula functions and exit"`

	Args struct {
		Formula string `positional-arg-name:"formula" description:"Formula to evaluate"`
	} `positional-args:"yes"`

	out io.Writer
}

func (c *EvalCommand) Execute([]string) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	registry := funcs.New(state.New(nil))

	if c.Functions {
		for _, name := range registry.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	}
	if strings.TrimSpace(c.Args.Formula) == "" {
		return errors.New("eval: formula required")
	}

	env, err := parseVars(c.Vars)
	if err != nil {
		return err
	}

	v, err := expr.Evaluate(c.Args.Formula, env, registry)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strconv.FormatFloat(v, 'g', -1, 64))
	return nil
}

func parseVars(vars []string) (expr.MapEnv, error) {
	env := expr.MapEnv{}
	for _, kv := range vars {
		name, raw, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("eval: bad variable %q, want NAME=VALUE", kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("eval: variable %s: %w", name, err)
		}
		env[name] = v
	}
	return env, nil
}
