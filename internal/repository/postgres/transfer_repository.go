package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/andresuchdata/dataset-relay/internal/repository"
)

const defaultRunLimit = 20

type transferRepository struct {
	db *DB
}

func NewTransferRepository(db *DB) *transferRepository {
	return &transferRepository{db: db}
}

var _ repository.TransferRepository = (*transferRepository)(nil)

func (r *transferRepository) SaveRun(ctx context.Context, run *domain.TransferRun) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO transfer_runs (
				id, competition, filename, folder_id, size_bytes,
				stage, file_id, error, started_at, finished_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id)
			DO UPDATE SET
				stage = EXCLUDED.stage,
				file_id = EXCLUDED.file_id,
				error = EXCLUDED.error,
				size_bytes = EXCLUDED.size_bytes,
				finished_at = EXCLUDED.finished_at
		`
		_, err := tx.ExecContext(ctx, query,
			run.ID,
			run.Competition,
			run.Filename,
			run.FolderID,
			run.SizeBytes,
			run.Stage,
			run.FileID,
			run.Error,
			run.StartedAt,
			run.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save transfer run: %w", err)
		}
		return nil
	})
}

func (r *transferRepository) GetLatestRun(ctx context.Context, competition string) (*domain.TransferRun, error) {
	var run domain.TransferRun
	err := r.db.GetContext(ctx, &run, `
		SELECT id, competition, filename, folder_id, size_bytes, stage, file_id, error, started_at, finished_at
		FROM transfer_runs
		WHERE competition = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, competition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest transfer run: %w", err)
	}
	return &run, nil
}

func (r *transferRepository) ListRuns(ctx context.Context, filter repository.RunFilter) ([]*domain.TransferRun, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}

	runs := make([]*domain.TransferRun, 0)
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, competition, filename, folder_id, size_bytes, stage, file_id, error, started_at, finished_at
		FROM transfer_runs
		WHERE ($1::text = '' OR stage = $1::text)
		ORDER BY started_at DESC
		LIMIT $2
	`, string(filter.Stage), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfer runs: %w", err)
	}
	return runs, nil
}

// Record satisfies relay.Recorder.
func (r *transferRepository) Record(ctx context.Context, outcome domain.Outcome) error {
	return r.SaveRun(ctx, domain.NewTransferRun(outcome))
}
