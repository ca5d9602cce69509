// Package settings resolves the initial timer durations for a new session from
// the creator's saved preferences.
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/bananadoro/go/internal/dbconfig"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/session"
)

// Store returns the durations a session created by identity should start with.
// An empty identity means an anonymous creator.
type Store interface {
	Defaults(ctx context.Context, identity string) (session.Durations, error)
}

// StaticStore hands every creator the same durations.
type StaticStore struct {
	Durations session.Durations
}

func (s StaticStore) Defaults(ctx context.Context, identity string) (session.Durations, error) {
	return s.Durations, nil
}

// Querier is the part of a pgx pool the store needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const defaultsQuery = `SELECT work_duration, break_duration FROM user_settings WHERE user_id = $1`

// PostgresStore reads per-user durations, stored in minutes, from user_settings.
type PostgresStore struct {
	queries  Querier
	fallback session.Durations
}

// NewPostgresStore creates a store that answers with fallback for anonymous
// creators, unknown users and unset columns.
func NewPostgresStore(q Querier, fallback session.Durations) *PostgresStore {
	return &PostgresStore{
		queries:  q,
		fallback: fallback,
	}
}

func (s *PostgresStore) Defaults(ctx context.Context, identity string) (session.Durations, error) {
	if identity == "" {
		return s.fallback, nil
	}

	var work, brk *int32
	err := s.queries.QueryRow(ctx, defaultsQuery, identity).Scan(&work, &brk)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.fallback, nil
	}
	if err != nil {
		return s.fallback, fmt.Errorf("query user settings: %w", err)
	}

	d := s.fallback
	if work != nil && *work > 0 {
		d.Work = int(*work) * 60
	}
	if brk != nil && *brk > 0 {
		d.Break = int(*brk) * 60
	}
	return d, nil
}

// OpenPool connects a pgx pool using the DB_* environment configuration.
func OpenPool(ctx context.Context, cfg dbconfig.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
