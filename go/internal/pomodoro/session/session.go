package session

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrSessionNotFound is returned when a code does not name a live session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidDuration is returned for a non-positive work or break duration.
	ErrInvalidDuration = errors.New("duration must be positive")
)

// Mode selects which duration the countdown runs against.
type Mode string

const (
	ModeWork  Mode = "work"
	ModeBreak Mode = "break"
)

// Other returns the opposite mode.
func (m Mode) Other() Mode {
	if m == ModeWork {
		return ModeBreak
	}
	return ModeWork
}

// Durations are the work and break lengths of a session, in seconds.
type Durations struct {
	Work  int `json:"work_duration_sec" yaml:"work_duration_sec"`
	Break int `json:"break_duration_sec" yaml:"break_duration_sec"`
}

// DefaultDurations returns the classic 25/5 minute split.
func DefaultDurations() Durations {
	return Durations{Work: 25 * 60, Break: 5 * 60}
}

// FromMinutes builds Durations from whole or fractional minutes.
func FromMinutes(work, brk float64) (Durations, error) {
	d := Durations{Work: int(work*60 + 0.5), Break: int(brk*60 + 0.5)}
	if err := d.Validate(); err != nil {
		return Durations{}, err
	}
	return d, nil
}

// Validate checks both durations are positive.
func (d Durations) Validate() error {
	if d.Work <= 0 || d.Break <= 0 {
		return fmt.Errorf("work=%ds break=%ds: %w", d.Work, d.Break, ErrInvalidDuration)
	}
	return nil
}

// Of returns the duration that applies to mode.
func (d Durations) Of(m Mode) int {
	if m == ModeBreak {
		return d.Break
	}
	return d.Work
}

// Member is a lightweight reference to one connected participant. The session
// never owns the underlying connection.
type Member interface {
	ID() string
	// Send queues msg for delivery without blocking and reports whether it was accepted.
	Send(msg []byte) bool
}

// Stopper cancels a scheduled task.
type Stopper interface {
	Stop() bool
}

// Snapshot is the observable state of a session at one instant.
type Snapshot struct {
	Code      string
	Mode      Mode
	Remaining int
	Running   bool
	UserCount int
	Durations Durations
}

// Session is one shared timer room.
//
// Session is not safe for concurrent use on its own: every method except Code
// must be called with the session locked via Lock. Operations on different
// sessions never share a lock.
type Session struct {
	mu sync.Mutex

	code      string
	mode      Mode
	durations Durations
	remaining int
	running   bool
	members   map[string]Member

	pendingReap Stopper
	reapGen     uint64
	removed     bool
}

func newSession(code string, d Durations) *Session {
	return &Session{
		code:      code,
		mode:      ModeWork,
		durations: d,
		remaining: d.Work,
		members:   make(map[string]Member),
	}
}

// Lock acquires the session's mutex.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// Code returns the session's immutable code.
func (s *Session) Code() string { return s.code }

func (s *Session) Mode() Mode           { return s.mode }
func (s *Session) Remaining() int       { return s.remaining }
func (s *Session) Running() bool        { return s.running }
func (s *Session) Durations() Durations { return s.durations }

// Snapshot captures the current observable state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Code:      s.code,
		Mode:      s.mode,
		Remaining: s.remaining,
		Running:   s.running,
		UserCount: len(s.members),
		Durations: s.durations,
	}
}

// Start resumes the countdown. Mode and remaining time are untouched.
func (s *Session) Start() { s.running = true }

// Stop pauses the countdown. Remaining time is untouched.
func (s *Session) Stop() { s.running = false }

// Reset pauses and rewinds the countdown to the full duration of the current mode.
func (s *Session) Reset() {
	s.running = false
	s.remaining = s.durations.Of(s.mode)
}

// ToggleMode pauses and switches to the other mode with its full duration.
func (s *Session) ToggleMode() {
	s.running = false
	s.mode = s.mode.Other()
	s.remaining = s.durations.Of(s.mode)
}

// UpdateDurations replaces both durations. A paused countdown is rewound to the
// new duration of the current mode; a running one keeps counting from where it
// is until the next reset, toggle or expiry.
func (s *Session) UpdateDurations(d Durations) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.durations = d
	if !s.running {
		s.remaining = s.durations.Of(s.mode)
	}
	return nil
}

// Tick advances a running session by one second and reports whether its state
// changed. Sessions with no members are frozen in place. When a running
// countdown is already at zero the mode flips and the new countdown keeps running.
func (s *Session) Tick() bool {
	if !s.running || len(s.members) == 0 {
		return false
	}
	if s.remaining > 0 {
		s.remaining--
		return true
	}
	s.mode = s.mode.Other()
	s.remaining = s.durations.Of(s.mode)
	return true
}

// AddMember adds m to the session. Adding the same member twice is a no-op.
func (s *Session) AddMember(m Member) {
	s.members[m.ID()] = m
}

// RemoveMember drops the member with the given id and reports whether it was present.
func (s *Session) RemoveMember(id string) bool {
	if _, ok := s.members[id]; !ok {
		return false
	}
	delete(s.members, id)
	return true
}

// HasMember reports whether id is a member.
func (s *Session) HasMember(id string) bool {
	_, ok := s.members[id]
	return ok
}

// MemberCount returns the number of members.
func (s *Session) MemberCount() int { return len(s.members) }

// Members returns the current members in no particular order.
func (s *Session) Members() []Member {
	out := make([]Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	return out
}

// ArmReap records a deferred removal. schedule receives the generation the
// task must present to ReapDue when it fires. Any removal already pending is
// cancelled first.
func (s *Session) ArmReap(schedule func(gen uint64) Stopper) {
	s.CancelReap()
	s.reapGen++
	s.pendingReap = schedule(s.reapGen)
}

// CancelReap cancels a pending removal and reports whether one was pending.
// A task that already fired but has not yet taken the lock becomes stale.
func (s *Session) CancelReap() bool {
	if s.pendingReap == nil {
		return false
	}
	s.pendingReap.Stop()
	s.pendingReap = nil
	s.reapGen++
	return true
}

// ReapPending reports whether a removal is scheduled.
func (s *Session) ReapPending() bool { return s.pendingReap != nil }

// ReapDue reports whether the removal task of generation gen may still remove
// the session: it was not cancelled or superseded and nobody has joined since.
func (s *Session) ReapDue(gen uint64) bool {
	return !s.removed && s.pendingReap != nil && gen == s.reapGen && len(s.members) == 0
}

// MarkRemoved flags the session as gone from the registry. Lookups that raced
// with the removal must treat a removed session as not found.
func (s *Session) MarkRemoved() {
	s.removed = true
	s.pendingReap = nil
}

// Removed reports whether the session has been reaped.
func (s *Session) Removed() bool { return s.removed }
