package postgres

import (
	"context"
	"fmt"

	"medseq/pkg/logger"
)

// schemaStatements create the counter table. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ` + TableCounters + ` (
		name       TEXT PRIMARY KEY,
		value      BIGINT NOT NULL DEFAULT 0 CHECK (value >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`COMMENT ON TABLE ` + TableCounters + ` IS 'Named counters backing sequential identifiers'`,
}

// Migrate applies the counter schema in a single transaction.
func Migrate(ctx context.Context, txm *TxManager) error {
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		querier := txm.GetQuerier(ctx)
		for i, stmt := range schemaStatements {
			if _, err := querier.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}
		logger.Info(ctx, "counter schema applied", "table", TableCounters)
		return nil
	})
}
