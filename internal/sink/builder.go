// internal/sink/builder.go
package sink

import (
	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/modbus-acquire/internal/config"
)

// Build opens every configured sink. On error, sinks opened so far are closed.
func Build(c cfg.SinksConfig, log zerolog.Logger) ([]Sink, error) {
	var out []Sink
	fail := func(err error) ([]Sink, error) {
		for _, s := range out {
			s.Close()
		}
		return nil, err
	}

	if c.Log.Enabled {
		out = append(out, NewLog(log))
	}
	if c.MQTT != nil {
		m, err := NewMQTT(*c.MQTT, log)
		if err != nil {
			return fail(err)
		}
		out = append(out, m)
	}
	if c.History != nil {
		h, err := OpenHistory(c.History.Path)
		if err != nil {
			return fail(err)
		}
		out = append(out, h)
	}
	return out, nil
}
