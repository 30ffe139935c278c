// internal/sink/sink_test.go
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/modbus-acquire/internal/config"
	"github.com/tamzrod/modbus-acquire/internal/published"
)

func testSnapshot(cycle uint64) *published.Snapshot {
	return &published.Snapshot{
		Cycle:    cycle,
		At:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration: 15 * time.Millisecond,
		Channels: map[int]published.ChannelValue{
			2: {Number: 2, Name: "Flow", Unit: "m3/h", Raw: 12.5, Value: 12.5},
			1: {Number: 1, Raw: math.NaN(), Value: math.NaN()},
		},
		Math:   map[string]float64{"Total": 25, "Avg": 12.5},
		Errors: []error{errors.New("channel 1: transport: timeout")},
	}
}

// ---- recording sink ----

type recordingSink struct {
	mu     sync.Mutex
	cycles []uint64
	got    chan struct{}
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Consume(_ context.Context, snap *published.Snapshot) error {
	r.mu.Lock()
	r.cycles = append(r.cycles, snap.Cycle)
	r.mu.Unlock()
	r.got <- struct{}{}
	return nil
}

func (r *recordingSink) Close() error { return nil }

// ---- tests ----

func TestSamples_Order(t *testing.T) {
	got := Samples(testSnapshot(1))

	keys := make([]string, len(got))
	for i, s := range got {
		keys[i] = string(s.Kind) + ":" + s.Key
	}
	want := "channel:1 channel:2 math:Avg math:Total"
	if strings.Join(keys, " ") != want {
		t.Fatalf("samples = %v, want %s", keys, want)
	}
	if got[0].label() != "CH1" || got[1].label() != "Flow" {
		t.Fatalf("labels = %q %q", got[0].label(), got[1].label())
	}
	if Samples(nil) != nil {
		t.Fatalf("nil snapshot must have no samples")
	}
}

func TestLog_Consume(t *testing.T) {
	var buf bytes.Buffer
	s := NewLog(zerolog.New(&buf))

	if err := s.Consume(context.Background(), testSnapshot(7)); err != nil {
		t.Fatalf("Consume err=%v", err)
	}

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("log line not JSON: %v\n%s", err, buf.String())
	}
	if ev["level"] != "warn" || ev["cycle"] != float64(7) || ev["errors"] != float64(1) {
		t.Fatalf("event = %v", ev)
	}
	values, ok := ev["values"].(map[string]any)
	if !ok {
		t.Fatalf("values missing: %v", ev)
	}
	if values["Flow"] != 12.5 || values["CH1"] != "NaN" || values["Total"] != float64(25) {
		t.Fatalf("values = %v", values)
	}
}

func TestEncode_JSON(t *testing.T) {
	b, err := Encode(testSnapshot(3))
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}

	var p snapshotPayload
	if err := json.Unmarshal(b, &p); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if p.Cycle != 3 || p.TS != "2024-03-01T12:00:00Z" || p.TookMs != 15 {
		t.Fatalf("header = %+v", p)
	}
	if len(p.Channels) != 2 || len(p.Math) != 2 || len(p.Errors) != 1 {
		t.Fatalf("payload = %s", b)
	}
	if p.Channels[0].Value != nil || p.Channels[0].Raw != nil {
		t.Fatalf("NaN must encode as null: %s", b)
	}
	if p.Channels[1].Name != "Flow" || *p.Channels[1].Value != 12.5 {
		t.Fatalf("channel 2 = %+v", p.Channels[1])
	}
	if p.Math[1].Key != "Total" || *p.Math[1].Value != 25 {
		t.Fatalf("math = %+v", p.Math)
	}
}

func TestHistory_ConsumeAndSeries(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory err=%v", err)
	}
	defer h.Close()

	ctx := context.Background()
	for c := uint64(1); c <= 4; c++ {
		snap := testSnapshot(c)
		snap.Math["Total"] = float64(c * 10)
		if err := h.Consume(ctx, snap); err != nil {
			t.Fatalf("Consume(%d) err=%v", c, err)
		}
	}

	pts, err := h.Series(ctx, KindMath, "Total", 3)
	if err != nil {
		t.Fatalf("Series err=%v", err)
	}
	if len(pts) != 3 || pts[0].Cycle != 2 || pts[2].Value != 40 {
		t.Fatalf("series = %+v", pts)
	}

	pts, err = h.Series(ctx, KindChannel, "1", 10)
	if err != nil {
		t.Fatalf("Series err=%v", err)
	}
	if len(pts) != 4 || !math.IsNaN(pts[0].Value) {
		t.Fatalf("NaN channel series = %+v", pts)
	}
}

func TestListen_RunsAfterPublish(t *testing.T) {
	store := published.NewStore()
	rec := &recordingSink{got: make(chan struct{}, 4)}
	Listen(store, rec, zerolog.Nop())

	store.Publish(testSnapshot(1))
	store.Publish(testSnapshot(2))

	if len(rec.cycles) != 2 || rec.cycles[1] != 2 {
		t.Fatalf("cycles = %v", rec.cycles)
	}
}

func TestPump_DeliversUntilCancelled(t *testing.T) {
	store := published.NewStore()
	rec := &recordingSink{got: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	started := make(chan struct{})
	go func() {
		close(started)
		Pump(ctx, store, rec, zerolog.Nop())
		close(done)
	}()
	<-started

	// the subscription may not exist yet; keep publishing until one arrives
	deadline := time.After(2 * time.Second)
	for delivered := false; !delivered; {
		store.Publish(testSnapshot(9))
		select {
		case <-rec.got:
			delivered = true
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("no snapshot delivered")
		}
	}

	cancel()
	select {
	case <-done:
	case <-rec.got:
		<-done
	case <-time.After(2 * time.Second):
		t.Fatalf("Pump did not stop")
	}
}

func TestBuild_LogOnly(t *testing.T) {
	sinks, err := Build(cfgSinks(true), zerolog.Nop())
	if err != nil {
		t.Fatalf("Build err=%v", err)
	}
	if len(sinks) != 1 || sinks[0].Name() != "log" {
		t.Fatalf("sinks = %v", sinks)
	}
}

func cfgSinks(logEnabled bool) cfg.SinksConfig {
	return cfg.SinksConfig{Log: cfg.LogSinkConfig{Enabled: logEnabled}}
}

type fakeUpdater struct{ got map[int]float64 }

func (f *fakeUpdater) UpdateValues(_ context.Context, v map[int]float64) error {
	f.got = v
	return nil
}

func TestValues_StoresComputedValues(t *testing.T) {
	u := &fakeUpdater{}
	if err := NewValues(u).Consume(context.Background(), testSnapshot(1)); err != nil {
		t.Fatalf("Consume err=%v", err)
	}
	if len(u.got) != 2 || u.got[2] != 12.5 || !math.IsNaN(u.got[1]) {
		t.Fatalf("values = %v", u.got)
	}
}
