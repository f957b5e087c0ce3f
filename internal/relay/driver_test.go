package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/dataset-relay/internal/domain"
	"github.com/andresuchdata/dataset-relay/pkg/logger"
	"github.com/rs/zerolog"
)

type stubFetcher struct {
	data  []byte
	err   error
	calls []string
}

func (f *stubFetcher) Download(_ context.Context, competition string) (*domain.DatasetPayload, error) {
	f.calls = append(f.calls, competition)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DatasetPayload{Filename: domain.ArchiveName(competition), Data: f.data}, nil
}

type uploadCall struct {
	filename string
	data     []byte
	folderID string
}

type stubUploader struct {
	ids   []string
	err   error
	calls []uploadCall
}

func (u *stubUploader) Upload(_ context.Context, payload *domain.DatasetPayload, folderID string) (*domain.UploadResult, error) {
	u.calls = append(u.calls, uploadCall{filename: payload.Filename, data: payload.Data, folderID: folderID})
	if u.err != nil {
		return nil, u.err
	}
	id := fmt.Sprintf("generated-%d", len(u.calls))
	if len(u.calls) <= len(u.ids) {
		id = u.ids[len(u.calls)-1]
	}
	return &domain.UploadResult{ID: id}, nil
}

type memoryRecorder struct {
	outcomes []domain.Outcome
	err      error
}

func (r *memoryRecorder) Record(_ context.Context, o domain.Outcome) error {
	r.outcomes = append(r.outcomes, o)
	return r.err
}

func loggedContext(buf *bytes.Buffer) context.Context {
	log := logger.NewJSON(buf, zerolog.InfoLevel)
	return log.WithContext(context.Background())
}

func TestRunEndToEnd(t *testing.T) {
	data := []byte("PKzipdata ")
	if len(data) != 10 {
		t.Fatalf("fixture must be 10 bytes, got %d", len(data))
	}

	fetcher := &stubFetcher{data: data}
	uploader := &stubUploader{ids: []string{"file123"}}
	recorder := &memoryRecorder{}
	driver := NewDriver(fetcher, uploader, domain.TransferRequest{
		Competition: "m5-forecasting-accuracy",
		FolderID:    "folder-1",
	}, WithRecorder(recorder), WithRunIDs(func() string { return "run-1" }))

	var buf bytes.Buffer
	out := driver.Run(loggedContext(&buf), domain.TransferRequest{})

	if !out.Succeeded() {
		t.Fatalf("expected success, got stage %s err %v", out.Stage, out.Err)
	}
	if len(uploader.calls) != 1 {
		t.Fatalf("expected one upload, got %d", len(uploader.calls))
	}
	call := uploader.calls[0]
	if call.filename != "m5-forecasting-accuracy.zip" {
		t.Fatalf("unexpected filename %q", call.filename)
	}
	if !bytes.Equal(call.data, data) {
		t.Fatalf("expected exact fetched bytes, got %q", call.data)
	}
	if call.folderID != "folder-1" {
		t.Fatalf("unexpected folder %q", call.folderID)
	}
	if out.FileID != "file123" || out.Size != 10 || out.RunID != "run-1" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !strings.Contains(buf.String(), "file123") {
		t.Fatalf("expected success message with file id, got %s", buf.String())
	}
	if len(recorder.outcomes) != 1 || recorder.outcomes[0].Stage != domain.StageDone {
		t.Fatalf("expected recorded done outcome, got %+v", recorder.outcomes)
	}
}

func TestRunRequestOverridesDefaults(t *testing.T) {
	fetcher := &stubFetcher{data: []byte("x")}
	uploader := &stubUploader{}
	driver := NewDriver(fetcher, uploader, domain.TransferRequest{Competition: "default", FolderID: "f-default"})

	out := driver.Run(context.Background(), domain.TransferRequest{Competition: " titanic ", FolderID: "f-other"})

	if !out.Succeeded() {
		t.Fatalf("expected success, got %v", out.Err)
	}
	if fetcher.calls[0] != "titanic" {
		t.Fatalf("expected trimmed competition, got %q", fetcher.calls[0])
	}
	if uploader.calls[0].folderID != "f-other" || out.Filename != "titanic.zip" {
		t.Fatalf("unexpected upload %+v / outcome %+v", uploader.calls[0], out)
	}
}

func TestRunFetchFailureSkipsUpload(t *testing.T) {
	fetchErr := &domain.RemoteFetchError{StatusCode: 403, Body: "rules not accepted"}
	uploader := &stubUploader{}
	driver := NewDriver(&stubFetcher{err: fetchErr}, uploader, domain.TransferRequest{Competition: "c", FolderID: "f"})

	var buf bytes.Buffer
	out := driver.Run(loggedContext(&buf), domain.TransferRequest{})

	if out.Succeeded() || out.Stage != domain.StageFailed {
		t.Fatalf("expected failed outcome, got %+v", out)
	}
	if len(uploader.calls) != 0 {
		t.Fatalf("expected no upload after fetch failure")
	}
	step, ok := domain.FailedStep(out.Err)
	if !ok || step != domain.StepFetch {
		t.Fatalf("expected fetch step, got %q", step)
	}
	var remote *domain.RemoteFetchError
	if !errors.As(out.Err, &remote) || remote.StatusCode != 403 {
		t.Fatalf("expected wrapped RemoteFetchError, got %v", out.Err)
	}
	if !strings.Contains(buf.String(), "rules not accepted") {
		t.Fatalf("expected error to be logged, got %s", buf.String())
	}
}

func TestRunUploadAuthFailureIsReported(t *testing.T) {
	authErr := errors.New("oauth2: cannot fetch token: 401 Unauthorized")
	recorder := &memoryRecorder{}
	driver := NewDriver(&stubFetcher{data: []byte("zip")}, &stubUploader{err: authErr},
		domain.TransferRequest{Competition: "c", FolderID: "f"}, WithRecorder(recorder))

	var buf bytes.Buffer
	out := driver.Run(loggedContext(&buf), domain.TransferRequest{})

	if out.Succeeded() {
		t.Fatalf("expected failure")
	}
	if !errors.Is(out.Err, authErr) {
		t.Fatalf("expected upload error to be reachable, got %v", out.Err)
	}
	step, _ := domain.FailedStep(out.Err)
	if step != domain.StepUpload {
		t.Fatalf("expected upload step, got %q", step)
	}
	if out.Size != 3 {
		t.Fatalf("expected fetched size to be kept, got %d", out.Size)
	}
	logged := buf.String()
	if !strings.Contains(logged, "cannot fetch token") {
		t.Fatalf("expected auth error in output, got %s", logged)
	}
	if strings.Contains(logged, "goroutine") || strings.Contains(logged, "panic") {
		t.Fatalf("expected no stack trace in output, got %s", logged)
	}
	if len(recorder.outcomes) != 1 || recorder.outcomes[0].Stage != domain.StageFailed {
		t.Fatalf("expected failed outcome recorded, got %+v", recorder.outcomes)
	}
}

func TestRunTwiceCreatesTwoObjects(t *testing.T) {
	uploader := &stubUploader{ids: []string{"id-a", "id-b"}}
	driver := NewDriver(&stubFetcher{data: []byte("same")}, uploader, domain.TransferRequest{Competition: "c", FolderID: "f"})

	first := driver.Run(context.Background(), domain.TransferRequest{})
	second := driver.Run(context.Background(), domain.TransferRequest{})

	if len(uploader.calls) != 2 {
		t.Fatalf("expected two create calls, got %d", len(uploader.calls))
	}
	if first.FileID == second.FileID {
		t.Fatalf("expected distinct ids, got %q twice", first.FileID)
	}
	if first.RunID == second.RunID {
		t.Fatalf("expected distinct run ids")
	}
}

func TestRecorderErrorDoesNotChangeOutcome(t *testing.T) {
	recorder := &memoryRecorder{err: errors.New("db down")}
	driver := NewDriver(&stubFetcher{data: []byte("x")}, &stubUploader{}, domain.TransferRequest{Competition: "c", FolderID: "f"},
		WithRecorder(recorder))

	var buf bytes.Buffer
	out := driver.Run(loggedContext(&buf), domain.TransferRequest{})
	if !out.Succeeded() {
		t.Fatalf("expected success despite recorder error, got %v", out.Err)
	}
	if !strings.Contains(buf.String(), "db down") {
		t.Fatalf("expected recorder error to be logged")
	}
}

func TestRunTimestamps(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ticks := []time.Time{start, start.Add(2 * time.Second)}
	clock := func() time.Time {
		now := ticks[0]
		ticks = ticks[1:]
		return now
	}
	driver := NewDriver(&stubFetcher{data: []byte("x")}, &stubUploader{}, domain.TransferRequest{Competition: "c", FolderID: "f"},
		WithClock(clock))

	out := driver.Run(context.Background(), domain.TransferRequest{})
	if !out.StartedAt.Equal(start) || out.FinishedAt.Sub(out.StartedAt) != 2*time.Second {
		t.Fatalf("unexpected timestamps %s .. %s", out.StartedAt, out.FinishedAt)
	}
}

func TestMultiRecorderJoinsErrors(t *testing.T) {
	ok := &memoryRecorder{}
	bad := &memoryRecorder{err: errors.New("cache down")}

	err := MultiRecorder{ok, nil, bad}.Record(context.Background(), domain.Outcome{RunID: "r"})
	if err == nil || !strings.Contains(err.Error(), "cache down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.outcomes) != 1 || len(bad.outcomes) != 1 {
		t.Fatalf("expected every recorder to be called")
	}
}

type nilFetcher struct{}

func (nilFetcher) Download(context.Context, string) (*domain.DatasetPayload, error) { return nil, nil }

type nilUploader struct{ calls int }

func (u *nilUploader) Upload(context.Context, *domain.DatasetPayload, string) (*domain.UploadResult, error) {
	u.calls++
	return nil, nil
}

func TestRunTreatsMissingPayloadAsFetchFailure(t *testing.T) {
	uploader := &stubUploader{}
	d := NewDriver(nilFetcher{}, uploader, domain.TransferRequest{Competition: "m5", FolderID: "f"})

	out := d.Run(context.Background(), domain.TransferRequest{})

	if step, ok := domain.FailedStep(out.Err); out.Stage != domain.StageFailed || !ok || step != domain.StepFetch {
		t.Fatalf("expected fetch failure, got stage %s err %v", out.Stage, out.Err)
	}
	if len(uploader.calls) != 0 {
		t.Fatalf("expected upload to be skipped")
	}
}

func TestRunTreatsMissingUploadResultAsUploadFailure(t *testing.T) {
	uploader := &nilUploader{}
	d := NewDriver(&stubFetcher{data: []byte("PK")}, uploader, domain.TransferRequest{Competition: "m5", FolderID: "f"})

	out := d.Run(context.Background(), domain.TransferRequest{})

	if step, ok := domain.FailedStep(out.Err); out.Stage != domain.StageFailed || !ok || step != domain.StepUpload {
		t.Fatalf("expected upload failure, got stage %s err %v", out.Stage, out.Err)
	}
	if uploader.calls != 1 || out.FileID != "" {
		t.Fatalf("unexpected upload state: calls=%d file=%q", uploader.calls, out.FileID)
	}
}
