package catalogue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Tx is the subset of pgx.Tx the repository methods need, letting
// callers thread one transaction through several Store calls (the row
// lock in receive_chunk, the per-row upsert in the Import Engine).
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// WithTransaction runs fn inside a single pgx transaction, committing
// on success and rolling back on error or panic.
func (s *pgxStore) WithTransaction(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
