// Package relay sequences a dataset download and its upload into storage.
package relay

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	errNoPayload = errors.New("fetcher returned no payload")
	errNoResult  = errors.New("uploader returned no result")
)

// Fetcher downloads a competition archive into memory.
type Fetcher interface {
	Download(ctx context.Context, competition string) (*domain.DatasetPayload, error)
}

// Uploader stores a payload inside a target folder and returns its identifier.
type Uploader interface {
	Upload(ctx context.Context, payload *domain.DatasetPayload, folderID string) (*domain.UploadResult, error)
}

// Recorder receives every finished Outcome. Recording errors never change
// the Outcome.
type Recorder interface {
	Record(ctx context.Context, outcome domain.Outcome) error
}

// Driver runs the fetch → upload state machine. It keeps no state between
// runs and is safe for concurrent use when its collaborators are.
type Driver struct {
	fetcher  Fetcher
	uploader Uploader
	recorder Recorder
	defaults domain.TransferRequest
	newRunID func() string
	now      func() time.Time
}

type Option func(*Driver)

// WithRecorder attaches a Recorder notified after each run.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(d *Driver) { d.newRunID = next }
}

// NewDriver builds a Driver. defaults fills in fields a request leaves empty.
func NewDriver(fetcher Fetcher, uploader Uploader, defaults domain.TransferRequest, opts ...Option) *Driver {
	d := &Driver{
		fetcher:  fetcher,
		uploader: uploader,
		recorder: NopRecorder{},
		defaults: defaults,
		newRunID: func() string { return uuid.NewString() },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Defaults returns the request values used when a run leaves fields empty.
func (d *Driver) Defaults() domain.TransferRequest {
	return d.defaults
}

// Run executes one transfer. Failures are reported in the Outcome, never panicked.
func (d *Driver) Run(ctx context.Context, req domain.TransferRequest) domain.Outcome {
	req = d.resolve(req)

	out := domain.Outcome{
		RunID:       d.newRunID(),
		Competition: req.Competition,
		Filename:    domain.ArchiveName(req.Competition),
		FolderID:    req.FolderID,
		Stage:       domain.StageStart,
		StartedAt:   d.now(),
	}

	log := zerolog.Ctx(ctx).With().Str("run_id", out.RunID).Logger()
	ctx = log.WithContext(ctx)

	payload, err := d.fetcher.Download(ctx, req.Competition)
	if err == nil && payload == nil {
		err = errNoPayload
	}
	if err != nil {
		return d.fail(ctx, out, domain.StepFetch, err)
	}
	if payload.Filename == "" {
		payload.Filename = out.Filename
	}
	out.Stage = domain.StageFetched
	out.Filename = payload.Filename
	out.Size = payload.Size()

	result, err := d.uploader.Upload(ctx, payload, req.FolderID)
	if err == nil && result == nil {
		err = errNoResult
	}
	if err != nil {
		return d.fail(ctx, out, domain.StepUpload, err)
	}
	out.Stage = domain.StageDone
	out.FileID = result.ID
	out.FinishedAt = d.now()

	log.Info().
		Str("file_id", out.FileID).
		Dur("elapsed", out.FinishedAt.Sub(out.StartedAt)).
		Msgf("Done! %s is now in storage (file id %s)", out.Filename, out.FileID)

	d.record(ctx, out)
	return out
}

func (d *Driver) resolve(req domain.TransferRequest) domain.TransferRequest {
	req.Competition = strings.TrimSpace(req.Competition)
	req.FolderID = strings.TrimSpace(req.FolderID)
	if req.Competition == "" {
		req.Competition = d.defaults.Competition
	}
	if req.FolderID == "" {
		req.FolderID = d.defaults.FolderID
	}
	return req
}

func (d *Driver) fail(ctx context.Context, out domain.Outcome, step domain.Step, err error) domain.Outcome {
	out.Stage = domain.StageFailed
	out.Err = &domain.StepError{Step: step, Err: err}
	out.FinishedAt = d.now()

	zerolog.Ctx(ctx).Error().
		Str("step", string(step)).
		Msg(out.Err.Error())

	d.record(ctx, out)
	return out
}

func (d *Driver) record(ctx context.Context, out domain.Outcome) {
	if err := d.recorder.Record(ctx, out); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to record transfer outcome")
	}
}
