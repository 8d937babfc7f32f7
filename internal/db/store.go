package db

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed implementation of the sync engine's storage
// boundary. Each reconciliation run works through its own Store value, but
// the underlying pool is shared.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
