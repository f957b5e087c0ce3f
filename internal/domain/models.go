// internal/domain/models.go
package domain

import (
	"fmt"
	"time"
)

// ArchiveMimeType is the content type used for every uploaded dataset archive.
const ArchiveMimeType = "application/zip"

// DatasetPayload is an in-memory dataset archive produced by a fetch.
type DatasetPayload struct {
	Filename string
	Data     []byte
}

// Size returns the payload length in bytes.
func (p *DatasetPayload) Size() int64 {
	if p == nil {
		return 0
	}
	return int64(len(p.Data))
}

// ArchiveName returns the filename used for a competition archive.
func ArchiveName(competition string) string {
	return fmt.Sprintf("%s.zip", competition)
}

// UploadResult identifies the remote object created by an upload.
type UploadResult struct {
	ID string `json:"id"`
}

// TransferRequest describes a single fetch-then-upload run.
type TransferRequest struct {
	Competition string `json:"competition"`
	FolderID    string `json:"folder_id"`
}

// Outcome is the result of one transfer run.
type Outcome struct {
	RunID       string    `json:"run_id"`
	Competition string    `json:"competition"`
	Filename    string    `json:"filename"`
	FolderID    string    `json:"folder_id,omitempty"`
	Size        int64     `json:"size"`
	Stage       Stage     `json:"stage"`
	FileID      string    `json:"file_id,omitempty"`
	Err         error     `json:"-"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Succeeded reports whether the run reached the done stage without error.
func (o Outcome) Succeeded() bool {
	return o.Stage == StageDone && o.Err == nil
}

// ErrorMessage returns the failure text, or an empty string on success.
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// TransferRun is the persisted form of an Outcome.
type TransferRun struct {
	ID          string    `json:"id" db:"id"`
	Competition string    `json:"competition" db:"competition"`
	Filename    string    `json:"filename" db:"filename"`
	FolderID    string    `json:"folder_id" db:"folder_id"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	Stage       string    `json:"stage" db:"stage"`
	FileID      string    `json:"file_id" db:"file_id"`
	Error       string    `json:"error,omitempty" db:"error"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	FinishedAt  time.Time `json:"finished_at" db:"finished_at"`
}

// NewTransferRun converts an Outcome into its persisted form.
func NewTransferRun(o Outcome) *TransferRun {
	return &TransferRun{
		ID:          o.RunID,
		Competition: o.Competition,
		Filename:    o.Filename,
		FolderID:    o.FolderID,
		SizeBytes:   o.Size,
		Stage:       string(o.Stage),
		FileID:      o.FileID,
		Error:       o.ErrorMessage(),
		StartedAt:   o.StartedAt,
		FinishedAt:  o.FinishedAt,
	}
}
