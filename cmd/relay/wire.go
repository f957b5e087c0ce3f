package main

import (
	"context"
	"fmt"
	"io"

	"github.com/andresuchdata/dataset-relay/internal/cache"
	"github.com/andresuchdata/dataset-relay/internal/config"
	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/andresuchdata/dataset-relay/internal/drive"
	"github.com/andresuchdata/dataset-relay/internal/kaggle"
	"github.com/andresuchdata/dataset-relay/internal/relay"
	"github.com/andresuchdata/dataset-relay/internal/repository"
	"github.com/andresuchdata/dataset-relay/internal/repository/postgres"
	"github.com/andresuchdata/dataset-relay/internal/storage"
	"github.com/andresuchdata/dataset-relay/pkg/logger"
)

// components holds everything a command needs, plus what must be closed.
type components struct {
	driver  *relay.Driver
	drive   *drive.Uploader
	history repository.TransferRepository
	cache   cache.TransferCache
	closers []io.Closer
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to close resource")
		}
	}
}

func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	comp := &components{cache: cache.NewNoopTransferCache()}

	uploader, folderID, err := buildUploader(ctx, cfg, comp)
	if err != nil {
		return nil, err
	}

	var recorders relay.MultiRecorder

	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("transfer history disabled: database unavailable")
		} else {
			repo := postgres.NewTransferRepository(db)
			comp.history = repo
			comp.closers = append(comp.closers, db)
			recorders = append(recorders, repo)
		}
	}

	if cfg.Cache.Enabled {
		tc, err := cache.NewTransferCache(ctx, cfg.Cache)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("transfer cache disabled: redis unavailable")
		} else {
			comp.cache = tc
			comp.closers = append(comp.closers, tc)
			recorders = append(recorders, tc)
		}
	}

	fetcher := kaggle.NewClient(cfg.Kaggle, nil)
	comp.driver = relay.NewDriver(fetcher, uploader, domain.TransferRequest{
		Competition: cfg.Kaggle.Competition,
		FolderID:    folderID,
	}, relay.WithRecorder(recorders))

	return comp, nil
}

// buildUploader picks the upload target and resolves its default folder.
func buildUploader(ctx context.Context, cfg *config.Config, comp *components) (relay.Uploader, string, error) {
	switch cfg.Upload.Target {
	case config.TargetS3:
		client, err := storage.NewMinioClient(cfg.S3)
		if err != nil {
			return nil, "", err
		}
		return storage.NewUploader(client, cfg.S3.Prefix), cfg.Drive.FolderID, nil
	default:
		uploader := drive.NewUploader(cfg.Drive)
		comp.drive = uploader

		folderID := cfg.Drive.FolderID
		if folderID == "" && cfg.Drive.FolderPath != "" {
			srv, err := uploader.Connect(ctx)
			if err != nil {
				return nil, "", err
			}
			folderID, err = srv.FindFolderByPath(ctx, cfg.Drive.FolderPath)
			if err != nil {
				return nil, "", fmt.Errorf("resolve drive folder %q: %w", cfg.Drive.FolderPath, err)
			}
		}
		return uploader, folderID, nil
	}
}
