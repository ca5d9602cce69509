package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/events"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/session"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const testGrace = 10 * time.Minute

type fakeConn struct {
	id       string
	identity string

	mu     sync.Mutex
	frames [][]byte
	refuse bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string       { return c.id }
func (c *fakeConn) Identity() string { return c.identity }

func (c *fakeConn) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refuse {
		return false
	}
	c.frames = append(c.frames, append([]byte(nil), msg...))
	return true
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

type envelope struct {
	Type        MessageType `json:"type"`
	Time        int         `json:"time"`
	Mode        string      `json:"mode"`
	UserCount   int         `json:"userCount"`
	SessionCode string      `json:"sessionCode"`
	Message     string      `json:"message"`
}

func (c *fakeConn) messages(t *testing.T) []envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env envelope
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("unmarshal frame %s: %v", f, err)
		}
		out = append(out, env)
	}
	return out
}

func (c *fakeConn) lastTick(t *testing.T) envelope {
	t.Helper()
	msgs := c.messages(t)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == MessageTick {
			return msgs[i]
		}
	}
	t.Fatalf("connection %s received no tick", c.id)
	return envelope{}
}

func (c *fakeConn) ticks(t *testing.T) int {
	t.Helper()
	n := 0
	for _, m := range c.messages(t) {
		if m.Type == MessageTick {
			n++
		}
	}
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	cfg := DefaultConfig()
	cfg.ReapGracePeriod = testGrace
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(cfg, opts...), clock
}

func mustCreate(t *testing.T, e *Engine, conn *fakeConn) string {
	t.Helper()
	code, err := e.Create(context.Background(), conn)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return code
}

func mustSnapshot(t *testing.T, e *Engine, code string) session.Snapshot {
	t.Helper()
	snap, err := e.Snapshot(code)
	if err != nil {
		t.Fatalf("Snapshot(%q) error: %v", code, err)
	}
	return snap
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}
