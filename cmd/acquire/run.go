// cmd/acquire/run.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-acquire/internal/config"
	"github.com/tamzrod/modbus-acquire/internal/funcs"
	"github.com/tamzrod/modbus-acquire/internal/metrics"
	"github.com/tamzrod/modbus-acquire/internal/poller"
	"github.com/tamzrod/modbus-acquire/internal/published"
	"github.com/tamzrod/modbus-acquire/internal/sink"
	"github.com/tamzrod/modbus-acquire/internal/state"
	"github.com/tamzrod/modbus-acquire/internal/status"
	"github.com/tamzrod/modbus-acquire/internal/writer"
)

type RunCommand struct {
	Args struct {
		Config string `positional-arg-name:"config" description:"Engine YAML file"`
	} `positional-args:"yes" required:"yes"`
}

func (c *RunCommand) Execute([]string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, c.Args.Config, newLogger())
}

// loadConfig is Load, Validate, Normalize.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func run(ctx context.Context, cfgPath string, log zerolog.Logger) error {

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	e := cfg.Engine

	// --------------------
	// Transport + records
	// --------------------

	client, err := poller.BuildTransport(e.Transport)
	if err != nil {
		return fmt.Errorf("transport build failed: %w", err)
	}
	defer client.Close()

	source, closeSource, err := poller.BuildSource(e.Records, cfgPath)
	if err != nil {
		return fmt.Errorf("records source failed: %w", err)
	}
	defer closeSource()

	// --------------------
	// Engine
	// --------------------

	store := published.NewStore()
	registry := funcs.New(state.New(nil))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("metrics setup failed: %w", err)
	}

	p, err := poller.Build(e, source, client, registry, store, log, poller.WithObserver(collector))
	if err != nil {
		return fmt.Errorf("poller build failed: %w", err)
	}

	// --------------------
	// Sinks
	// --------------------

	sinks, err := sink.Build(e.Sinks, log)
	if err != nil {
		return fmt.Errorf("sinks failed: %w", err)
	}
	defer func() {
		for _, s := range sinks {
			s.Close()
		}
	}()

	var wg sync.WaitGroup
	pump := func(s sink.Sink) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Pump(ctx, store, s, log)
		}()
	}

	sink.Listen(store, collector, log)
	for _, s := range sinks {
		if _, ok := s.(*sink.Log); ok {
			sink.Listen(store, s, log)
			continue
		}
		pump(s)
	}
	if u, ok := source.(sink.ValueUpdater); ok {
		pump(sink.NewValues(u))
	}

	if e.Metrics.Listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.Serve(ctx, e.Metrics.Listen, metrics.Handler(reg), log); err != nil {
				log.Error().Err(err).Msg("metrics endpoint failed")
			}
		}()
	}

	// --------------------
	// Status block (optional)
	// --------------------

	plan, err := writer.BuildStatusPlan(e.Status)
	if err != nil {
		return fmt.Errorf("status plan failed: %w", err)
	}
	statusWriter, statusEnabled := writer.NewDeviceStatusWriter(plan, client)

	// --------------------
	// Poll loop + orchestrator
	// --------------------

	out := make(chan poller.Cycle)
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx, out)
	}()

	orchestrate(ctx, out, status.NewTracker(), statusWriter, statusEnabled, log)

	wg.Wait()
	return nil
}

// orchestrate owns the health tracker: cycle outcomes move it and a 1 Hz
// ticker counts seconds in error. Status is written only on change.
func orchestrate(
	ctx context.Context,
	cycles <-chan poller.Cycle,
	tracker *status.Tracker,
	sw writer.StatusWriter,
	enabled bool,
	log zerolog.Logger,
) {
	write := func(s status.Snapshot, when string) {
		if !enabled {
			return
		}
		if err := sw.WriteStatus(s); err != nil {
			log.Warn().Str("when", when).Err(err).Msg("status write failed")
		}
	}

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert) if enabled.
	write(tracker.Snapshot(), "on start")

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-cycles:
			if !c.Published {
				continue
			}
			if s, changed := tracker.Observe(c.Outcome()); changed {
				log.Info().Uint16("health", s.Health).Uint16("error_code", s.LastErrorCode).Msg("health changed")
				write(s, "on cycle")
			}

		case <-secTicker.C:
			if s, changed := tracker.Tick(); changed {
				write(s, "on seconds tick")
			}
		}
	}
}
