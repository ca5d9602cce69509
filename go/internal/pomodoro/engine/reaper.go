package engine

import (
	"context"

	"github.com/mcdev12/bananadoro/go/internal/pomodoro/events"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/session"
	"github.com/rs/zerolog/log"
)

// scheduleReap arms a deferred removal of s after the grace period. The caller
// holds the session lock and has just seen the last member leave.
func (e *Engine) scheduleReap(s *session.Session) {
	s.ArmReap(func(gen uint64) session.Stopper {
		return e.clock.AfterFunc(e.cfg.ReapGracePeriod, func() {
			e.reap(s, gen)
		})
	})

	log.Debug().
		Str("session_code", s.Code()).
		Dur("grace_period", e.cfg.ReapGracePeriod).
		Msg("scheduled removal of empty session")
}

// reap removes s if the task of generation gen is still current and the
// session is still empty. Stale or cancelled tasks do nothing.
func (e *Engine) reap(s *session.Session, gen uint64) {
	s.Lock()
	if !s.ReapDue(gen) {
		s.Unlock()
		log.Debug().Str("session_code", s.Code()).Msg("skipping stale session removal")
		return
	}
	e.registry.Remove(s.Code())
	s.MarkRemoved()
	s.Unlock()

	e.metrics.sessionsReaped.Inc()
	e.refreshGauges()

	log.Info().
		Str("session_code", s.Code()).
		Dur("grace_period", e.cfg.ReapGracePeriod).
		Msg("removed empty session")

	e.emit(context.Background(), events.EventTypeSessionReaped, s.Code(), events.SessionReapedPayload{
		SessionCode: s.Code(),
		ReapedAt:    e.clock.Now(),
		GracePeriod: e.cfg.ReapGracePeriod.String(),
	})
}
