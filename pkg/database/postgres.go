package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorpool/pkg/config"
)

// connectTimeout bounds the initial ping
const connectTimeout = 5 * time.Second

// DB wraps the pgxpool.Pool used by the bar store
// ⭐ SSOT: DB connections are created in this package only
type DB struct {
	Pool *pgxpool.Pool
}

// New connects to the bar store and verifies the connection
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// EnsureBarTable creates the bar table and its lookup index when missing.
// Bars are unique per (market, symbol, ts).
func (db *DB) EnsureBarTable(ctx context.Context, table string) error {
	ident := pgx.Identifier{table}.Sanitize()
	index := pgx.Identifier{table + "_market_ts_idx"}.Sanitize()

	ddl := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				market TEXT             NOT NULL,
				symbol TEXT             NOT NULL,
				ts     TIMESTAMPTZ      NOT NULL,
				open   DOUBLE PRECISION NOT NULL,
				high   DOUBLE PRECISION NOT NULL,
				low    DOUBLE PRECISION NOT NULL,
				close  DOUBLE PRECISION NOT NULL,
				volume DOUBLE PRECISION NOT NULL,
				PRIMARY KEY (market, symbol, ts)
			)`, ident),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (market, ts)`, index, ident),
	}

	for _, stmt := range ddl {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure bar table %s: %w", table, err)
		}
	}
	return nil
}
