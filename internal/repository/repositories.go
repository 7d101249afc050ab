package repository

import (
	"context"

	"github.com/deppfellow/magnetite/internal/sqlerr"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an open pool. The pool is owned by the caller;
// Close is a no-op so the pool can be shut down once, by its owner.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return sqlerr.HandleError(s.pool.Ping(ctx))
}

func (s *PostgresStore) Close() error {
	return nil
}
