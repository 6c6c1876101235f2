package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// migrationLockKey serialises schema setup between replicas starting together.
const migrationLockKey int64 = 0x6b68_6164 // "khad"

// Migrate applies idempotent schema statements in a single transaction while
// holding a transaction-scoped advisory lock.
func Migrate(ctx context.Context, db Beginner, statements ...string) error {
	return WithTx(ctx, db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
			return fmt.Errorf("platform/db: migration lock: %w", err)
		}
		for i, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("platform/db: migrate statement %d: %w", i, err)
			}
		}
		return nil
	})
}
