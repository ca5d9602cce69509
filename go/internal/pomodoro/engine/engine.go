package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/events"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Conn is one live participant connection as seen by the engine.
type Conn interface {
	session.Member
	// Identity is an already-validated display label, empty for anonymous participants.
	Identity() string
}

// DefaultsProvider supplies the initial durations for a session created by identity.
type DefaultsProvider interface {
	Defaults(ctx context.Context, identity string) (session.Durations, error)
}

// Config holds the engine's tunables.
type Config struct {
	Defaults        session.Durations
	TickInterval    time.Duration
	ReapGracePeriod time.Duration
}

// DefaultConfig returns 25/5 minute sessions, one-second ticks and a
// thirty-minute grace period before an empty session is removed.
func DefaultConfig() Config {
	return Config{
		Defaults:        session.DefaultDurations(),
		TickInterval:    time.Second,
		ReapGracePeriod: 30 * time.Minute,
	}
}

// Engine is the process-scoped state shared by every connection handler:
// the session registry, the connection tracker and the background scheduler.
type Engine struct {
	cfg       Config
	registry  *session.Registry
	tracker   *Tracker
	clock     clockwork.Clock
	defaults  DefaultsProvider
	publisher events.Publisher
	metrics   *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the real clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRegistry replaces the session registry.
func WithRegistry(r *session.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithDefaultsProvider looks up per-creator durations when a session is created.
func WithDefaultsProvider(p DefaultsProvider) Option {
	return func(e *Engine) {
		e.defaults = p
	}
}

// WithPublisher sends session lifecycle events to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithMetrics records engine metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine. Zero fields in cfg take their DefaultConfig value.
func New(cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.Defaults.Validate() != nil {
		cfg.Defaults = def.Defaults
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.ReapGracePeriod <= 0 {
		cfg.ReapGracePeriod = def.ReapGracePeriod
	}

	e := &Engine{
		cfg:       cfg,
		registry:  session.NewRegistry(),
		tracker:   NewTracker(),
		clock:     clockwork.NewRealClock(),
		publisher: events.LogPublisher{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return e
}

// HandleMessage decodes one inbound payload from conn and applies it.
// Malformed and unknown messages are logged and dropped.
func (e *Engine) HandleMessage(ctx context.Context, conn Conn, data []byte) {
	msg, err := ParseClientMessage(data)
	if err != nil {
		e.metrics.malformedMessages.Inc()
		log.Debug().
			Err(err).
			Str("connection_id", conn.ID()).
			Msg("dropping client message")
		return
	}
	e.metrics.controlMessages.WithLabelValues(string(msg.Type)).Inc()

	switch msg.Type {
	case MessageCreate:
		_, _ = e.Create(ctx, conn)
	case MessageJoin:
		_ = e.Join(conn, msg.SessionCode)
	case MessageSettings:
		e.UpdateSettings(conn, msg.Durations)
	case MessageStart:
		e.Start(conn)
	case MessageStop:
		e.Stop(conn)
	case MessageReset:
		e.Reset(conn)
	case MessageToggleMode:
		e.ToggleMode(conn)
	}
}

// Create allocates a new session, makes conn its first member and replies
// with the session code. A connection already in a session leaves it first.
func (e *Engine) Create(ctx context.Context, conn Conn) (string, error) {
	e.Leave(conn)

	durations := e.resolveDefaults(ctx, conn.Identity())
	s, err := e.registry.Create(durations)
	if err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID()).Msg("failed to create session")
		return "", fmt.Errorf("create session: %w", err)
	}

	s.Lock()
	s.AddMember(conn)
	e.tracker.Bind(conn.ID(), s.Code())
	e.sendTo(conn, CreatedMessage{Type: MessageCreated, SessionCode: s.Code()})
	e.publish(s)
	s.Unlock()

	e.metrics.sessionsCreated.Inc()
	e.refreshGauges()

	log.Info().
		Str("session_code", s.Code()).
		Str("connection_id", conn.ID()).
		Str("user", conn.Identity()).
		Int("work_duration_sec", durations.Work).
		Int("break_duration_sec", durations.Break).
		Msg("session created")

	e.emit(ctx, events.EventTypeSessionCreated, s.Code(), events.SessionCreatedPayload{
		SessionCode:      s.Code(),
		WorkDurationSec:  durations.Work,
		BreakDurationSec: durations.Break,
		CreatedBy:        conn.Identity(),
		CreatedAt:        e.clock.Now(),
	})
	return s.Code(), nil
}

// Join adds conn to the session named by code. An unknown code is reported to
// conn alone and changes nothing. Joining cancels a pending removal and keeps
// the session's timer state as it was.
func (e *Engine) Join(conn Conn, code string) error {
	s := e.registry.Get(code)
	if s == nil {
		return e.rejectJoin(conn, code)
	}

	if current, ok := e.tracker.Lookup(conn.ID()); ok && current != code {
		e.Leave(conn)
	}

	s.Lock()
	defer s.Unlock()

	if s.Removed() {
		return e.rejectJoin(conn, code)
	}

	s.AddMember(conn)
	e.tracker.Bind(conn.ID(), code)
	if s.CancelReap() {
		e.metrics.reapsCancelled.Inc()
		log.Info().Str("session_code", code).Msg("pending session removal cancelled by rejoin")
	}
	e.publish(s)
	e.refreshGauges()

	log.Info().
		Str("session_code", code).
		Str("connection_id", conn.ID()).
		Str("user", conn.Identity()).
		Int("members", s.MemberCount()).
		Msg("joined session")
	return nil
}

func (e *Engine) rejectJoin(conn Conn, code string) error {
	e.sendTo(conn, ErrorMessage{Type: MessageError, Message: sessionNotFoundMessage})
	log.Debug().
		Str("session_code", code).
		Str("connection_id", conn.ID()).
		Msg("join for unknown session")
	return fmt.Errorf("join %s: %w", code, session.ErrSessionNotFound)
}

// Leave removes conn from its session, if any. The remaining members see the
// new head count; a session left empty is scheduled for removal.
func (e *Engine) Leave(conn Conn) {
	code, ok := e.tracker.Lookup(conn.ID())
	if !ok {
		return
	}

	s := e.registry.Get(code)
	if s == nil {
		e.tracker.Unbind(conn.ID(), code)
		e.refreshGauges()
		return
	}

	s.Lock()
	defer s.Unlock()

	removed := s.RemoveMember(conn.ID())
	e.tracker.Unbind(conn.ID(), code)
	e.refreshGauges()
	if !removed || s.Removed() {
		return
	}

	if s.MemberCount() == 0 {
		e.scheduleReap(s)
	}
	e.publish(s)

	log.Info().
		Str("session_code", code).
		Str("connection_id", conn.ID()).
		Int("members", s.MemberCount()).
		Msg("left session")
}

// Start resumes the countdown of conn's session.
func (e *Engine) Start(conn Conn) bool {
	return e.control(conn, MessageStart, func(s *session.Session) error {
		s.Start()
		return nil
	})
}

// Stop pauses the countdown of conn's session.
func (e *Engine) Stop(conn Conn) bool {
	return e.control(conn, MessageStop, func(s *session.Session) error {
		s.Stop()
		return nil
	})
}

// Reset rewinds and pauses conn's session.
func (e *Engine) Reset(conn Conn) bool {
	return e.control(conn, MessageReset, func(s *session.Session) error {
		s.Reset()
		return nil
	})
}

// ToggleMode switches conn's session between work and break and pauses it.
func (e *Engine) ToggleMode(conn Conn) bool {
	return e.control(conn, MessageToggleMode, func(s *session.Session) error {
		s.ToggleMode()
		return nil
	})
}

// UpdateSettings replaces the durations of conn's session.
func (e *Engine) UpdateSettings(conn Conn, d session.Durations) bool {
	return e.control(conn, MessageSettings, func(s *session.Session) error {
		return s.UpdateDurations(d)
	})
}

// control applies a transition to the session conn is bound to and broadcasts
// the result. Connections without a session are ignored.
func (e *Engine) control(conn Conn, kind MessageType, apply func(*session.Session) error) bool {
	code, ok := e.tracker.Lookup(conn.ID())
	if !ok {
		return false
	}
	s := e.registry.Get(code)
	if s == nil {
		return false
	}

	s.Lock()
	defer s.Unlock()

	if s.Removed() || !s.HasMember(conn.ID()) {
		return false
	}
	if err := apply(s); err != nil {
		log.Debug().
			Err(err).
			Str("session_code", code).
			Str("type", string(kind)).
			Msg("control message rejected")
		return false
	}
	e.publish(s)
	return true
}

// Snapshot returns the current state of the session named by code.
func (e *Engine) Snapshot(code string) (session.Snapshot, error) {
	s := e.registry.Get(code)
	if s == nil {
		return session.Snapshot{}, session.ErrSessionNotFound
	}
	s.Lock()
	defer s.Unlock()
	if s.Removed() {
		return session.Snapshot{}, session.ErrSessionNotFound
	}
	return s.Snapshot(), nil
}

// SessionCode returns the code of the session conn is bound to.
func (e *Engine) SessionCode(conn Conn) (string, bool) {
	return e.tracker.Lookup(conn.ID())
}

// SessionCount returns the number of live sessions.
func (e *Engine) SessionCount() int {
	return e.registry.Len()
}

// ConnectionCount returns the number of connections bound to a session.
func (e *Engine) ConnectionCount() int {
	return e.tracker.Len()
}

func (e *Engine) resolveDefaults(ctx context.Context, identity string) session.Durations {
	if e.defaults == nil {
		return e.cfg.Defaults
	}
	d, err := e.defaults.Defaults(ctx, identity)
	if err != nil {
		log.Warn().Err(err).Str("user", identity).Msg("falling back to default durations")
		return e.cfg.Defaults
	}
	if err := d.Validate(); err != nil {
		log.Warn().Err(err).Str("user", identity).Msg("ignoring invalid saved durations")
		return e.cfg.Defaults
	}
	return d
}

func (e *Engine) emit(ctx context.Context, eventType events.EventType, code string, payload any) {
	event, err := events.NewEvent(eventType, code, payload, e.clock.Now())
	if err == nil {
		err = e.publisher.Publish(ctx, event)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().
			Err(err).
			Str("event_type", string(eventType)).
			Str("session_code", code).
			Msg("failed to publish session event")
	}
}

func (e *Engine) refreshGauges() {
	e.metrics.activeSessions.Set(float64(e.registry.Len()))
	e.metrics.boundConnections.Set(float64(e.tracker.Len()))
}
