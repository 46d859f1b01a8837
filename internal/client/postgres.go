package client

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOptions tunes the connection pool.
type PostgresOptions struct {
	MaxConns       int32
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
}

// PostgresClient holds the pool backing the sentence catalogue.
type PostgresClient struct {
	Pool *pgxpool.Pool
}

// NewPostgresClient opens a pool for dsn and verifies it within
// opts.ConnectTimeout. Zero options keep pgx defaults.
func NewPostgresClient(ctx context.Context, dsn string, opts PostgresOptions) (*PostgresClient, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	if opts.MaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = opts.MaxIdleTime
	}

	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	return &PostgresClient{Pool: pool}, nil
}

// Ping checks database connectivity.
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}

// Close releases every pooled connection.
func (c *PostgresClient) Close() {
	c.Pool.Close()
}
