package engine

import "sync"

// Tracker records which session each live connection belongs to. It is the
// single source of truth for that binding; sessions only hold member references.
type Tracker struct {
	mu       sync.Mutex
	bindings map[string]string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		bindings: make(map[string]string),
	}
}

// Bind records that connID is a member of code, replacing any earlier binding.
func (t *Tracker) Bind(connID, code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindings[connID] = code
}

// Unbind drops the binding for connID if it still points at code.
func (t *Tracker) Unbind(connID, code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bindings[connID] == code {
		delete(t.bindings, connID)
	}
}

// Lookup returns the session code connID is bound to.
func (t *Tracker) Lookup(connID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	code, ok := t.bindings[connID]
	return code, ok
}

// Len returns the number of bound connections.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.bindings)
}
