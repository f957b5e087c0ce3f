package drive

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andresuchdata/dataset-relay/internal/config"
	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Uploader pushes dataset archives into a Drive folder. Credentials are read
// on every Upload, so a bad key surfaces as an upload failure.
type Uploader struct {
	credentialsFile string
	opts            []option.ClientOption
}

// NewUploader builds an Uploader from the Drive section of the configuration.
func NewUploader(cfg config.DriveConfig, opts ...option.ClientOption) *Uploader {
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	return &Uploader{
		credentialsFile: cfg.CredentialsFile,
		opts:            opts,
	}
}

// Connect loads the credential file and returns an authenticated Service.
func (u *Uploader) Connect(ctx context.Context) (*Service, error) {
	creds, err := os.ReadFile(u.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account credentials: %w", err)
	}
	return NewService(ctx, creds, u.opts...)
}

// Upload creates payload as a new file in folderID.
func (u *Uploader) Upload(ctx context.Context, payload *domain.DatasetPayload, folderID string) (*domain.UploadResult, error) {
	if strings.TrimSpace(folderID) == "" {
		return nil, domain.ErrMissingFolder
	}

	log := zerolog.Ctx(ctx).With().
		Str("file", payload.Filename).
		Str("folder_id", folderID).
		Logger()
	log.Info().Int64("bytes", payload.Size()).Msg("Uploading to Google Drive...")

	srv, err := u.Connect(ctx)
	if err != nil {
		return nil, err
	}

	id, err := srv.CreateFile(ctx, payload.Filename, folderID, payload.Data)
	if err != nil {
		return nil, err
	}

	log.Info().Str("file_id", id).Msgf("Uploaded to Drive! File ID: %s", id)
	return &domain.UploadResult{ID: id}, nil
}
