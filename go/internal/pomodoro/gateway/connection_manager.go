package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/engine"
	"github.com/rs/zerolog/log"
)

// ConnectionManager upgrades HTTP requests to WebSocket connections and feeds
// their messages into the engine.
type ConnectionManager struct {
	engine *engine.Engine

	// ctx outlives individual upgrade requests and is cancelled on shutdown
	ctx context.Context

	connections map[*Connection]struct{}
	mu          sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig
}

// Connection represents a WebSocket connection to a participant
type Connection struct {
	id       string
	identity string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	manager  *ConnectionManager

	closeOnce sync.Once

	// Connection metadata
	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // 1KB max message size
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// Participants join from the web app and the mobile shell alike
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(e *engine.Engine, config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		engine:      e,
		connections: make(map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		ctx:    context.Background(),
	}
}

// Start serves connections with ctx until it is cancelled, then closes them all.
func (cm *ConnectionManager) Start(ctx context.Context) {
	cm.mu.Lock()
	cm.ctx = ctx
	cm.mu.Unlock()

	log.Info().Msg("connection manager started")
	<-ctx.Done()

	log.Info().Msg("connection manager shutting down")
	cm.CloseAll()
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts its
// pumps. identity is the optional, already-validated label of the participant.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, identity string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		id:          uuid.New().String(),
		identity:    identity,
		conn:        conn,
		send:        make(chan []byte, cm.config.SendBufferSize),
		done:        make(chan struct{}),
		manager:     cm,
		ConnectedAt: time.Now(),
	}

	ctx := cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump(ctx)

	log.Info().
		Str("connection_id", connection.id).
		Str("user", identity).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the manager and returns the context
// its messages are handled under.
func (cm *ConnectionManager) registerConnection(conn *Connection) context.Context {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[conn] = struct{}{}

	log.Debug().
		Str("connection_id", conn.id).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
	return cm.ctx
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.connections[conn]; exists {
		delete(cm.connections, conn)
		log.Info().
			Str("connection_id", conn.id).
			Str("user", conn.identity).
			Msg("connection unregistered")
	}
}

// ConnectionStats is a point-in-time view of the gateway's load.
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
	BoundConnections int `json:"bound_connections"`
	ActiveSessions   int `json:"active_sessions"`
}

// Stats returns statistics about active connections
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	total := len(cm.connections)
	cm.mu.RUnlock()

	return ConnectionStats{
		TotalConnections: total,
		BoundConnections: cm.engine.ConnectionCount(),
		ActiveSessions:   cm.engine.SessionCount(),
	}
}

// CloseAll closes every open connection; their read pumps then leave their sessions.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

// ID returns the connection's unique id.
func (c *Connection) ID() string { return c.id }

// Identity returns the participant label supplied at upgrade time.
func (c *Connection) Identity() string { return c.identity }

// Send queues msg for the write pump without blocking. A connection whose
// buffer is full is too slow to keep up and gets closed.
func (c *Connection) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		log.Warn().
			Str("connection_id", c.id).
			Str("user", c.identity).
			Msg("connection send buffer full, closing connection")
		c.Close()
		return false
	}
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump feeds inbound messages to the engine in arrival order. When the
// socket closes the connection leaves its session.
func (c *Connection) readPump(ctx context.Context) {
	defer func() {
		c.manager.engine.Leave(c)
		c.manager.unregisterConnection(c)
		c.Close()
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.manager.engine.HandleMessage(ctx, c, message)
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
