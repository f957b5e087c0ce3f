// internal/repository/transfer_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/dataset-relay/internal/domain"
)

// RunFilter narrows ListRuns. A zero Stage matches every stage.
type RunFilter struct {
	Stage domain.Stage
	Limit int
}

type TransferRepository interface {
	SaveRun(ctx context.Context, run *domain.TransferRun) error
	GetLatestRun(ctx context.Context, competition string) (*domain.TransferRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*domain.TransferRun, error)
}
