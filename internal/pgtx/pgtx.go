// Package pgtx is the single unit-of-work helper. Every multi-step mutation
// in the repository layer runs through InTx so rollback on any error path is
// guaranteed.
package pgtx

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Beginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InTx runs fn inside a transaction. The transaction commits only if fn
// returns nil; any error (or panic unwinding) rolls everything back.
func InTx(ctx context.Context, db Beginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
