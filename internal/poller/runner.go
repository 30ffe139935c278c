// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run polls once immediately, then on every tick until ctx is cancelled.
// Cycles never overlap; a slow cycle delays at most one queued tick.
// out may be nil; when set, every cycle is delivered unless ctx ends first.
func (p *Poller) Run(ctx context.Context, out chan<- Cycle) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.log.Info().Dur("interval", p.cfg.Interval).Msg("poller started")
	defer p.log.Info().Msg("poller stopped")

	for {
		c := p.PollOnce(ctx)
		if out != nil {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
