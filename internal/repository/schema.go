package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the transfer history table and its lookup index.
const Schema = `
CREATE TABLE IF NOT EXISTS transfer_runs (
	id          TEXT PRIMARY KEY,
	competition TEXT NOT NULL,
	filename    TEXT NOT NULL,
	folder_id   TEXT NOT NULL DEFAULT '',
	size_bytes  BIGINT NOT NULL DEFAULT 0,
	stage       TEXT NOT NULL,
	file_id     TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transfer_runs_competition_started
	ON transfer_runs (competition, started_at DESC);
`

// Migrate applies Schema. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
