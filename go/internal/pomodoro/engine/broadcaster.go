package engine

import (
	"encoding/json"

	"github.com/mcdev12/bananadoro/go/internal/pomodoro/session"
	"github.com/rs/zerolog/log"
)

// publish sends the session's current state to every member. The caller holds
// the session lock, so broadcasts of one session go out in mutation order.
// Sends only enqueue; a member whose buffer is full misses this update.
func (e *Engine) publish(s *session.Session) {
	snap := s.Snapshot()

	// Marshal the message once
	data, err := json.Marshal(newTickMessage(snap))
	if err != nil {
		log.Error().Err(err).Str("session_code", snap.Code).Msg("failed to marshal tick for broadcast")
		return
	}

	for _, m := range s.Members() {
		if !m.Send(data) {
			e.metrics.droppedSends.Inc()
			log.Warn().
				Str("session_code", snap.Code).
				Str("connection_id", m.ID()).
				Msg("member send buffer full, dropping tick")
		}
	}
	e.metrics.broadcasts.Inc()

	log.Debug().
		Str("session_code", snap.Code).
		Int("time", snap.Remaining).
		Str("mode", string(snap.Mode)).
		Int("members", snap.UserCount).
		Msg("session state broadcasted")
}

// sendTo delivers a direct reply to one connection.
func (e *Engine) sendTo(conn Conn, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID()).Msg("failed to marshal reply")
		return
	}
	if !conn.Send(data) {
		e.metrics.droppedSends.Inc()
		log.Warn().Str("connection_id", conn.ID()).Msg("connection send buffer full, dropping reply")
	}
}
