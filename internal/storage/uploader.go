package storage

import (
	"context"
	"path"
	"strings"

	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/rs/zerolog"
)

// Uploader writes dataset archives into a bucket. The folder argument of
// Upload is used as the key prefix, falling back to the configured prefix.
// Uploading the same archive twice overwrites the same key.
type Uploader struct {
	store  ObjectStorage
	prefix string
}

func NewUploader(store ObjectStorage, prefix string) *Uploader {
	return &Uploader{store: store, prefix: prefix}
}

func (u *Uploader) Upload(ctx context.Context, payload *domain.DatasetPayload, folder string) (*domain.UploadResult, error) {
	key := ObjectKey(firstNonEmpty(folder, u.prefix), payload.Filename)

	log := zerolog.Ctx(ctx).With().Str("key", key).Logger()
	log.Info().Int64("bytes", payload.Size()).Msg("Uploading to object storage...")

	info, err := u.store.UploadObject(ctx, key, payload.Data, domain.ArchiveMimeType)
	if err != nil {
		return nil, err
	}

	id := info.Key
	if id == "" {
		id = key
	}

	log.Info().Str("etag", info.ETag).Msgf("Uploaded to object storage! Key: %s", id)
	return &domain.UploadResult{ID: id}, nil
}

// ObjectKey joins prefix and name into a bucket key without a leading slash.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
