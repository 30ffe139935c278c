// cmd/acquire/write.go
package main

import (
	"context"
	"fmt"

	"github.com/tamzrod/modbus-acquire/internal/codec"
	"github.com/tamzrod/modbus-acquire/internal/poller"
	"github.com/tamzrod/modbus-acquire/internal/writer"
)

type WriteCommand struct {
	Args struct {
		Config  string  `positional-arg-name:"config" description:"Engine YAML file"`
		Channel int     `positional-arg-name:"channel" description:"Channel number"`
		Value   float64 `positional-arg-name:"value" description:"Engineering value (offset is removed before writing)"`
	} `positional-args:"yes" required:"yes"`
}

func (c *WriteCommand) Execute([]string) error {
	log := newLogger()
	ctx := context.Background()

	cfg, err := loadConfig(c.Args.Config)
	if err != nil {
		return err
	}

	source, closeSource, err := poller.BuildSource(cfg.Engine.Records, c.Args.Config)
	if err != nil {
		return err
	}
	defer closeSource()

	set, err := source.Load(ctx)
	if err != nil {
		return err
	}

	for _, ch := range set.Channels {
		if ch.Number != c.Args.Channel {
			continue
		}

		client, err := poller.BuildTransport(cfg.Engine.Transport)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Connect(); err != nil {
			return fmt.Errorf("write: connect %s: %w", cfg.Engine.Transport.Endpoint, err)
		}

		w := writer.New(client, codec.WordOrder(cfg.Engine.WordOrder), log)
		if err := w.WriteChannel(ch, c.Args.Value); err != nil {
			return err
		}
		log.Info().Int("channel", ch.Number).Float64("value", c.Args.Value).Msg("written")
		return nil
	}
	return fmt.Errorf("write: channel %d is not configured", c.Args.Channel)
}
