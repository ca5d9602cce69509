package gateway

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/engine"
	"github.com/rs/zerolog/log"
)

// Service is the session gateway: it owns the WebSocket connections and drives
// the engine's tick scheduler.
type Service struct {
	engine            *engine.Engine
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// Config holds configuration for the session gateway
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the session gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new session gateway service
func NewService(config Config, e *engine.Engine) *Service {
	connectionManager := NewConnectionManager(e, config.ConnectionConfig)

	return &Service{
		engine:            e,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(e),
	}
}

// Start runs the gateway until ctx is cancelled, then closes every connection.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting session gateway service")

	go s.connectionManager.Start(ctx)

	err := s.engine.RunScheduler(ctx)
	if err != nil {
		log.Error().Err(err).Msg("tick scheduler failed")
	}

	log.Info().Msg("session gateway service shutting down")
	s.Stop()
	return err
}

// Stop closes all open connections. Their read pumps leave their sessions.
func (s *Service) Stop() {
	s.connectionManager.CloseAll()
	log.Info().Msg("session gateway service stopped")
}

// RegisterRoutes registers the WebSocket and state HTTP routes
func (s *Service) RegisterRoutes(r chi.Router) {
	s.wsHandler.RegisterRoutes(r)
	s.stateHandler.RegisterStateRoutes(r)
	log.Info().Msg("session gateway routes registered")
}

// Stats returns statistics about the gateway service
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
