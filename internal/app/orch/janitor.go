package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartJanitor runs the registry idle sweep until ctx is canceled. Sessions
// ended by the sweep have no participants, but any straggler channels are
// torn down anyway.
func (o *Orchestrator) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Str("module", "app.orch").Msg("janitor stopped")
				return
			case now := <-ticker.C:
				for _, sid := range o.Registry.SweepIdle(now) {
					o.Hub.CloseSession(sid)
				}
			}
		}
	}()
}
