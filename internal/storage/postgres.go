package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tally/internal/store"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
    key        TEXT PRIMARY KEY,
    body       TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresKV keeps documents in a postgres table with the same shape as the
// sqlite one.
type PostgresKV struct {
	pool *pgxpool.Pool
}

var _ store.KV = (*PostgresKV)(nil)

// NewPostgresKV connects to url and makes sure the documents table exists.
func NewPostgresKV(ctx context.Context, url string) (*PostgresKV, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &PostgresKV{pool: pool}, nil
}

func (p *PostgresKV) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body string
	err := p.pool.QueryRow(ctx, `SELECT body FROM documents WHERE key = $1`, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select document: %w", err)
	}
	return []byte(body), true, nil
}

func (p *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO documents (key, body, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}
