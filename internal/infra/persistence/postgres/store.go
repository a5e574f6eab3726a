package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coachpo/borderless/internal/infra/config"
)

// Store exposes PostgreSQL-backed repositories sharing one pool.
type Store struct {
	pool   *pgxpool.Pool
	quotes *QuoteStore
}

// New constructs a PostgreSQL persistence store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, quotes: NewQuoteStore(pool)}
}

// Pool returns the underlying pool, which may be nil in tests.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Quotes returns the quote history repository.
func (s *Store) Quotes() *QuoteStore {
	return s.quotes
}

// Open builds a pgx pool from cfg, verifies connectivity and registers pool metrics.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	ObservePoolMetrics(pool, "primary")
	return pool, nil
}
