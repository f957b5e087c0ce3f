package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCompetition is returned when no competition identifier is given.
	ErrMissingCompetition = errors.New("competition identifier is required")
	// ErrMissingFolder is returned when the upload target folder is unknown.
	ErrMissingFolder = errors.New("target folder is required")
	// ErrNotFound is returned when a stored run does not exist.
	ErrNotFound = errors.New("not found")
)

// RemoteFetchError is a non-200 response from the dataset host.
type RemoteFetchError struct {
	StatusCode int
	Body       string
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("kaggle api error %d: %s", e.StatusCode, e.Body)
}

// Step names the pipeline call that produced an error.
type Step string

const (
	StepFetch  Step = "fetch"
	StepUpload Step = "upload"
)

// StepError records which step of a transfer failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Step)
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the step carried by err, if any.
func FailedStep(err error) (Step, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}
