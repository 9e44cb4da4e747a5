// Package pgstore persists the fact store, change log and user list in
// PostgreSQL through a pgx connection pool.
//
// Table layout matches sqlitestore so data can be migrated between the two.
package pgstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/factlog/internal/history"
	"github.com/roach88/factlog/internal/users"
)

var (
	_ history.Log    = (*Client)(nil)
	_ users.Registry = (*Client)(nil)
)

// Client is a PostgreSQL-backed store.
type Client struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New connects to dsn, verifies the connection and ensures the schema exists.
func New(ctx context.Context, dsn string, opts ...Option) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	c := &Client{
		pool:   pool,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the pool.
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// EnsureSchema creates the tables if they do not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS attributes (
    name        TEXT PRIMARY KEY,
    position    INTEGER NOT NULL,
    cardinality TEXT NOT NULL CHECK (cardinality IN ('one', 'many'))
);

CREATE TABLE IF NOT EXISTS facts (
    seq       BIGINT PRIMARY KEY,
    entity    TEXT NOT NULL,
    attribute TEXT NOT NULL,
    value     TEXT NOT NULL,
    live      BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS changes (
    seq         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    id          TEXT NOT NULL,
    action      TEXT NOT NULL CHECK (action IN ('insertion', 'deletion')),
    entity      TEXT NOT NULL,
    attribute   TEXT NOT NULL,
    value       TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    username TEXT PRIMARY KEY,
    password TEXT NOT NULL,
    role     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_facts_entity ON facts (entity, seq);
CREATE INDEX IF NOT EXISTS idx_changes_entity ON changes (entity, seq);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
