// Package repository implements the service storage interfaces on PostgreSQL with pgx.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// *pgxpool.Pool satisfies it; tests use mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// scanner is the Scan half shared by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier returns q, or pool when the caller is not inside a transaction.
func querier(pool PoolInterface, q database.TxQuerier) database.TxQuerier {
	if q == nil {
		return pool
	}
	return q
}

// collect drains rows with scan, returning an empty slice (not nil) when there are none.
func collect[T any](rows pgx.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
