package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPool backs the relational appointment store.
var PostgresPool *pgxpool.Pool

// InitPostgres opens and pings a connection pool.
func InitPostgres(ctx context.Context, databaseURL string) error {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("invalid postgres url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	PostgresPool = pool
	return nil
}

// PostgresReadyCheck pings the global pool.
func PostgresReadyCheck(ctx context.Context) error {
	if PostgresPool == nil {
		return fmt.Errorf("postgres not configured")
	}
	return PostgresPool.Ping(ctx)
}
