package session

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// maxCodeDraws bounds the collision retry loop so a broken CodeSource cannot
// spin forever. With 31^6 codes a real source never gets near it.
const maxCodeDraws = 1000

// Registry owns the mapping of code to Session and therefore every session's lifetime.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	source   CodeSource
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCodeSource replaces the random code generator.
func WithCodeSource(src CodeSource) RegistryOption {
	return func(r *Registry) {
		r.source = src
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		source:   GenerateCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a session under a fresh code. The session starts paused in
// work mode with the full work duration remaining and no members.
func (r *Registry) Create(d Durations) (*Session, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 1; attempt <= maxCodeDraws; attempt++ {
		code, err := r.source()
		if err != nil {
			return nil, fmt.Errorf("generate session code: %w", err)
		}
		if _, taken := r.sessions[code]; taken {
			log.Debug().
				Str("session_code", code).
				Int("attempt", attempt).
				Msg("session code collision, drawing again")
			continue
		}
		s := newSession(code, d)
		r.sessions[code] = s
		return s, nil
	}
	return nil, fmt.Errorf("no free session code after %d draws", maxCodeDraws)
}

// Get returns the session for code, or nil if there is none.
func (r *Registry) Get(code string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[code]
}

// Remove deletes the session for code. Removing an unknown code is a no-op.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, code)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns a snapshot of every live session. The caller locks each session
// individually; the registry lock is not held while it does.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
