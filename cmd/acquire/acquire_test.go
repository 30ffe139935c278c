// cmd/acquire/acquire_test.go
package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-acquire/internal/poller"
	"github.com/tamzrod/modbus-acquire/internal/status"
)

type fakeStatusWriter struct {
	mu     sync.Mutex
	writes []status.Snapshot
}

func (f *fakeStatusWriter) WriteStatus(s status.Snapshot) error {
	f.mu.Lock()
	f.writes = append(f.writes, s)
	f.mu.Unlock()
	return nil
}

func (f *fakeStatusWriter) snapshot() []status.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]status.Snapshot(nil), f.writes...)
}

func TestOrchestrate_WritesOnChangeOnly(t *testing.T) {
	sw := &fakeStatusWriter{}
	cycles := make(chan poller.Cycle)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		orchestrate(ctx, cycles, status.NewTracker(), sw, true, zerolog.Nop())
		close(done)
	}()

	failed := poller.Cycle{Published: true, Reads: 1, ReadFailures: 1, Errors: []*poller.ChannelError{
		{Channel: 1, Stage: poller.StageTransport, Err: errors.New("timeout")},
	}}
	cycles <- poller.Cycle{Published: true, Reads: 1}
	cycles <- poller.Cycle{Published: true, Reads: 1} // unchanged, no write
	cycles <- poller.Cycle{Reads: 1, ReadFailures: 1} // interrupted, ignored
	cycles <- failed
	cycles <- poller.Cycle{Published: true, Reads: 1}

	cancel()
	<-done

	got := sw.snapshot()
	// start, OK, error, recovery; a seconds tick may add one more while in error
	if len(got) < 4 || len(got) > 5 {
		t.Fatalf("writes = %+v", got)
	}
	if got[0].Health != status.HealthUnknown || got[1].Health != status.HealthOK {
		t.Fatalf("first writes = %+v", got[:2])
	}
	if got[2].Health != status.HealthError || got[2].LastErrorCode != 1 {
		t.Fatalf("error write = %+v", got[2])
	}
	if last := got[len(got)-1]; last != (status.Snapshot{Health: status.HealthOK}) {
		t.Fatalf("recovery write = %+v", last)
	}
}

func TestOrchestrate_DisabledNeverWrites(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cycles := make(chan poller.Cycle)
	orchestrate(ctx, cycles, status.NewTracker(), nil, false, zerolog.Nop())
}

func TestParseVars(t *testing.T) {
	env, err := parseVars([]string{"x=12.5", " CH3 = 1 "})
	if err != nil {
		t.Fatalf("parseVars err=%v", err)
	}
	if env["x"] != 12.5 || env["CH3"] != 1 {
		t.Fatalf("env = %v", env)
	}

	for _, bad := range []string{"x", "=1", "x=abc"} {
		if _, err := parseVars([]string{bad}); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestEvalCommand(t *testing.T) {
	c := &EvalCommand{Vars: []string{"x=4"}}
	c.Args.Formula = "if(x > 3, sqrt(x), 0)"
	if err := c.Execute(nil); err != nil {
		t.Fatalf("Execute err=%v", err)
	}

	c.Args.Formula = "nosuch(x)"
	if err := c.Execute(nil); err == nil {
		t.Fatalf("expected unknown function error")
	}

	c.Args.Formula = ""
	if err := c.Execute(nil); err == nil {
		t.Fatalf("expected missing formula error")
	}
}

func TestEvalCommand_ListsFunctions(t *testing.T) {
	var buf bytes.Buffer
	c := &EvalCommand{Functions: true, out: &buf}
	if err := c.Execute(nil); err != nil {
		t.Fatalf("Execute err=%v", err)
	}

	names := strings.Fields(buf.String())
	if !sort.StringsAreSorted(names) {
		t.Fatalf("names not sorted: %v", names)
	}
	for _, want := range []string{"counter_inc", "if", "round", "timer"} {
		if !slices.Contains(names, want) {
			t.Fatalf("%s missing from %v", want, names)
		}
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	raw := `
engine:
  transport: {endpoint: "127.0.0.1:5020"}
channels:
  - {number: 1, address: 40001, data_type: float32, device_id: 1, low: 0, high: 100, digits: 2}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig err=%v", err)
	}
	if cfg.Engine.PollIntervalMs != 1000 || cfg.Channels[0].Formula != "x" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	if err := os.WriteFile(path, []byte("engine: {poll_interval_ms: -1}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatalf("expected validation error")
	}
}
