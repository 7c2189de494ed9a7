package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"rstamp/config"
)

const createBlobsTable = `
CREATE TABLE IF NOT EXISTS registry_blobs (
    key        TEXT PRIMARY KEY,
    blob       BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore is a pgx-backed Store keeping one blob per key.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgresStore connects a pool sized per dbCfg and ensures the blobs
// table exists.
func NewPostgresStore(ctx context.Context, dbCfg *config.DatabaseConfig, logger *log.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dbCfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}
	if dbCfg.MinConnections > 0 {
		cfg.MinConns = int32(dbCfg.MinConnections)
	}
	if dbCfg.MaxConnections > 0 {
		cfg.MaxConns = int32(dbCfg.MaxConnections)
	}
	cfg.MaxConnIdleTime = dbCfg.MaxIdleDuration()
	cfg.MaxConnLifetime = dbCfg.MaxLifetimeDuration()

	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, createBlobsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure registry_blobs table: %w", err)
	}

	logger.Println("Postgres blob store initialized.")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Load returns the blob stored under key, or ErrNotFound.
func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := s.pool.QueryRow(ctx, `SELECT blob FROM registry_blobs WHERE key = $1`, key).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blob '%s': %w", key, err)
	}
	return blob, nil
}

// Save upserts blob under key.
func (s *PostgresStore) Save(ctx context.Context, key string, blob []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO registry_blobs (key, blob, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()`,
		key, blob)
	if err != nil {
		return fmt.Errorf("failed to save blob '%s': %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.logger.Println("Closing Postgres blob store...")
	s.pool.Close()
}

var _ Store = (*PostgresStore)(nil) // Compile-time interface check
