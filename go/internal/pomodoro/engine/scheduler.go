package engine

import (
	"context"

	"github.com/rs/zerolog/log"
)

// RunScheduler advances every running session once per tick interval until ctx
// is cancelled.
func (e *Engine) RunScheduler(ctx context.Context) error {
	ticker := e.clock.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", e.cfg.TickInterval).Msg("tick scheduler started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("tick scheduler shutting down")
			return nil
		case <-ticker.Chan():
			e.Tick()
		}
	}
}

// Tick advances every running, non-empty session by one second and broadcasts
// each one that changed. Sessions are locked one at a time and never wait on
// each other. It returns the number of sessions advanced.
func (e *Engine) Tick() int {
	e.metrics.ticks.Inc()

	advanced := 0
	for _, s := range e.registry.All() {
		s.Lock()
		if !s.Removed() && s.Tick() {
			e.publish(s)
			advanced++
		}
		s.Unlock()
	}

	if advanced > 0 {
		log.Debug().Int("sessions", advanced).Msg("tick advanced sessions")
	}
	return advanced
}
