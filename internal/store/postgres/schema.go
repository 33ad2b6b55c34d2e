// Package postgres provides the PostgreSQL-backed [store.UnitStore]
// implementation. All operations share a single [pgxpool.Pool]; [Migrate]
// creates the schema idempotently on every start.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlPracticeUnits = `
CREATE TABLE IF NOT EXISTS practice_units (
    id             TEXT          PRIMARY KEY,
    position       INTEGER       NOT NULL DEFAULT 0,
    title          TEXT          NOT NULL DEFAULT '',
    sentences      JSONB         NOT NULL DEFAULT '[]',
    mastered       BOOLEAN       NOT NULL DEFAULT false,
    mastered_at    TIMESTAMPTZ,
    recall_session INTEGER       NOT NULL DEFAULT 0,
    last_recall_at TIMESTAMPTZ,
    recall_times   TIMESTAMPTZ[] NOT NULL DEFAULT '{}',
    next_recall_at TIMESTAMPTZ,
    deadline       TIMESTAMPTZ,
    checkpoint     JSONB         NOT NULL DEFAULT '{}',
    updated_at     TIMESTAMPTZ   NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_practice_units_updated
    ON practice_units (updated_at DESC);

CREATE INDEX IF NOT EXISTS idx_practice_units_due
    ON practice_units (next_recall_at)
    WHERE mastered AND next_recall_at IS NOT NULL;
`

// Migrate creates or ensures all required tables and indexes exist. It is
// idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlPracticeUnits); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
