package relay

import (
	"context"
	"errors"

	"github.com/andresuchdata/dataset-relay/internal/domain"
)

// NopRecorder discards outcomes.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, domain.Outcome) error { return nil }

// MultiRecorder fans an outcome out to every recorder and joins their errors.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, outcome domain.Outcome) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
