// cmd/acquire/simulate.go
package main

import (
	"context"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/tamzrod/modbus-acquire/internal/codec"
	"github.com/tamzrod/modbus-acquire/internal/poller"
	"github.com/tamzrod/modbus-acquire/internal/simulator"
)

type SimulateCommand struct {
	Listen string  `long:"listen" default:"tcp://127.0.0.1:5020" description:"Server URL"`
	Units  []uint8 `long:"unit" default:"1" description:"Unit id to answer for (repeatable)"`
	Config string  `long:"config" description:"Preload each channel's stored value from this engine file"`
}

func (c *SimulateCommand) Execute([]string) error {
	log := newLogger()

	sim := simulator.New(log)
	for _, u := range c.Units {
		sim.AddDevice(u)
	}

	if c.Config != "" {
		cfg, err := loadConfig(c.Config)
		if err != nil {
			return err
		}
		source, closeSource, err := poller.BuildSource(cfg.Engine.Records, c.Config)
		if err != nil {
			return err
		}
		set, err := source.Load(context.Background())
		closeSource()
		if err != nil {
			return err
		}

		order := codec.WordOrder(cfg.Engine.WordOrder)
		for _, ch := range set.Channels {
			sim.AddDevice(ch.DeviceID)
			if math.IsNaN(ch.Value) {
				continue
			}
			chOrder := ch.WordOrder
			if chOrder == "" {
				chOrder = order
			}
			if err := sim.Store(ch.DeviceID, ch.Address, ch.DataType, chOrder, ch.Value-ch.Offset); err != nil {
				log.Warn().Int("channel", ch.Number).Err(err).Msg("preload skipped")
			}
		}
	}

	if err := sim.Start(c.Listen); err != nil {
		return err
	}
	defer sim.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("listen", c.Listen).Msg("simulator running, Ctrl-C to stop")
	<-ctx.Done()
	log.Info().Uint64("requests", sim.Requests()).Msg("simulator stopped")
	return nil
}
