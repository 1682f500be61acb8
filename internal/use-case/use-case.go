// Package use_case orchestrates the admission and dispatch core:
// upload sessions, job creation with backend fan-out, and the
// aggregated status view workers report into.
package use_case

import (
	"context"
	"fmt"
	"log"
	"mime"
	"path/filepath"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/trunov/converthub/internal/apperr"
	"github.com/trunov/converthub/internal/dispatch"
	"github.com/trunov/converthub/internal/entities"
	"github.com/trunov/converthub/internal/queue"
)

type Storage interface {
	InsertSession(ctx context.Context, session *entities.UploadSession) error
	GetSession(ctx context.Context, id string) (entities.UploadSession, error)
	UpdateSessionStatus(ctx context.Context, id string, status entities.SessionStatus) error
	InsertJob(ctx context.Context, job *entities.Job) error
	GetJob(ctx context.Context, id string) (entities.Job, error)
	AdvanceJobStatus(ctx context.Context, id string, from, to entities.JobStatus) error
	InsertResult(ctx context.Context, result *entities.Result) error
	InsertLogEntry(ctx context.Context, entry *entities.LogEntry) error
	ListResults(ctx context.Context, jobID string) ([]entities.Result, error)
	ListLogs(ctx context.Context, jobID string) ([]entities.LogEntry, error)
}

type BlobStorage interface {
	Put(ctx context.Context, key string, payload []byte, contentType string) error
	Head(ctx context.Context, key string) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, backend string, msg queue.TaskMessage) error
}

type useCase struct {
	storage     Storage
	blobStorage BlobStorage
	publisher   Publisher
	maxSize     int64
}

func New(storage Storage, blobStorage BlobStorage, publisher Publisher, maxUploadSize int64) *useCase {
	return &useCase{
		storage:     storage,
		blobStorage: blobStorage,
		publisher:   publisher,
		maxSize:     maxUploadSize,
	}
}

// CreateSession registers a fresh upload session and pre-creates an
// empty placeholder object at the derived key, so the later existence
// check is well-defined. The blob write happens before the row insert:
// a failure leaves no half-written session.
func (c *useCase) CreateSession(ctx context.Context, filename string, declaredSize int64) (entities.UploadSession, error) {
	var session entities.UploadSession

	if filename == "" {
		return session, fmt.Errorf("%w: filename required", apperr.ErrValidation)
	}
	if declaredSize > c.maxSize {
		return session, fmt.Errorf("%w: declared size %d exceeds cap %d", apperr.ErrPayloadTooLarge, declaredSize, c.maxSize)
	}

	id := uuid.NewString()
	key := fmt.Sprintf("uploads/%s/%s", id, filename)

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := c.blobStorage.Put(ctx, key, []byte{}, contentType); err != nil {
		return session, fmt.Errorf("failed to pre-create placeholder: %w", err)
	}

	session = entities.UploadSession{
		ID:           id,
		ObjectKey:    key,
		DeclaredSize: declaredSize,
		Status:       entities.SessionCreated,
	}
	if err := c.storage.InsertSession(ctx, &session); err != nil {
		return entities.UploadSession{}, err
	}
	return session, nil
}

// CompleteSession verifies the client actually uploaded bytes to the
// recorded key and marks the session uploaded. Safe to repeat: once
// uploaded the transition is monotonic, a second call re-checks the
// object and re-confirms.
func (c *useCase) CompleteSession(ctx context.Context, id string) (entities.UploadSession, error) {
	session, err := c.storage.GetSession(ctx, id)
	if err != nil {
		return session, err
	}

	exists, err := c.blobStorage.Head(ctx, session.ObjectKey)
	if err != nil {
		return session, err
	}
	if !exists {
		return session, fmt.Errorf("%w: key %s", apperr.ErrUploadMissing, session.ObjectKey)
	}

	if session.Status != entities.SessionUploaded {
		if err := c.storage.UpdateSessionStatus(ctx, id, entities.SessionUploaded); err != nil {
			return session, err
		}
		session.Status = entities.SessionUploaded
	}
	return session, nil
}

// CreateJob persists a queued job for the session and fans work out to
// the planned backends. The session does not have to be uploaded yet —
// dispatch may race ahead of upload completion, workers handle a
// not-yet-present source object. A failed publish to one backend never
// rolls the job back and never blocks the other backends; the failure
// is reported and recorded as a job log entry so a later sweep can find
// partially dispatched jobs.
func (c *useCase) CreateJob(ctx context.Context, sessionID string, outputs []entities.Output) (entities.Job, error) {
	var job entities.Job

	if sessionID == "" {
		return job, fmt.Errorf("%w: sessionId required", apperr.ErrValidation)
	}
	if len(outputs) == 0 {
		return job, fmt.Errorf("%w: at least one output required", apperr.ErrValidation)
	}
	for _, o := range outputs {
		if !dispatch.Recognized(o.Format) {
			return job, fmt.Errorf("%w: unrecognized format %q", apperr.ErrValidation, o.Format)
		}
	}

	session, err := c.storage.GetSession(ctx, sessionID)
	if err != nil {
		return job, err
	}

	job = entities.Job{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Outputs:   outputs,
		Status:    entities.JobQueued,
	}
	if err := c.storage.InsertJob(ctx, &job); err != nil {
		return entities.Job{}, err
	}

	c.fanOut(ctx, job, session.ObjectKey)

	return job, nil
}

// fanOut publishes one message per planned backend, concurrently and
// independently. At-least-attempted: errors are swallowed here after
// being reported, the job stays created.
func (c *useCase) fanOut(ctx context.Context, job entities.Job, objectKey string) {
	targets := dispatch.Plan(job.Outputs)

	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t dispatch.Target) {
			defer wg.Done()
			errs[i] = c.publisher.Publish(ctx, t.Backend, queue.TaskMessage{
				JobID:     job.ID,
				ObjectKey: objectKey,
				Outputs:   t.Outputs,
			})
		}(i, t)
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		backend := targets[i].Backend
		log.Printf("dispatch: publish to %s failed for job %s: %v", backend, job.ID, err)
		sentry.CaptureException(err)

		entry := entities.LogEntry{
			JobID:    job.ID,
			Backend:  backend,
			Severity: "error",
			Message:  fmt.Sprintf("dispatch to %s failed: %v", backend, err),
		}
		if logErr := c.storage.InsertLogEntry(ctx, &entry); logErr != nil {
			log.Printf("dispatch: failed to record dispatch failure for job %s: %v", job.ID, logErr)
		}
	}
}

// GetStatus joins the job with everything workers have reported so far.
// No snapshot across the three reads: a job may show as processing with
// zero or partial results, that is expected.
func (c *useCase) GetStatus(ctx context.Context, jobID string) (entities.JobStatusView, error) {
	var view entities.JobStatusView

	job, err := c.storage.GetJob(ctx, jobID)
	if err != nil {
		return view, err
	}
	results, err := c.storage.ListResults(ctx, jobID)
	if err != nil {
		return view, err
	}
	logs, err := c.storage.ListLogs(ctx, jobID)
	if err != nil {
		return view, err
	}

	view = entities.JobStatusView{Job: job, Results: results, Logs: logs}
	return view, nil
}

// RecordResult appends a produced artifact reported by a backend.
func (c *useCase) RecordResult(ctx context.Context, jobID, backend, format, objectKey string) (entities.Result, error) {
	var result entities.Result

	if backend == "" || format == "" || objectKey == "" {
		return result, fmt.Errorf("%w: backend, format and key are required", apperr.ErrValidation)
	}
	if _, err := c.storage.GetJob(ctx, jobID); err != nil {
		return result, err
	}

	result = entities.Result{
		JobID:     jobID,
		Backend:   backend,
		Format:    format,
		ObjectKey: objectKey,
	}
	if err := c.storage.InsertResult(ctx, &result); err != nil {
		return entities.Result{}, err
	}
	return result, nil
}

// AppendLog appends a worker log line to the job. Append-only.
func (c *useCase) AppendLog(ctx context.Context, jobID, backend, severity, message string) (entities.LogEntry, error) {
	var entry entities.LogEntry

	if backend == "" || message == "" {
		return entry, fmt.Errorf("%w: backend and message are required", apperr.ErrValidation)
	}
	if severity == "" {
		severity = "info"
	}
	if _, err := c.storage.GetJob(ctx, jobID); err != nil {
		return entry, err
	}

	entry = entities.LogEntry{
		JobID:    jobID,
		Backend:  backend,
		Severity: severity,
		Message:  message,
	}
	if err := c.storage.InsertLogEntry(ctx, &entry); err != nil {
		return entities.LogEntry{}, err
	}
	return entry, nil
}

// AdvanceStatus moves the job forward along the lattice
// queued -> processing -> (completed|failed). Anything else is rejected
// with ErrInvalidTransition, never silently applied. The store enforces
// the same guard atomically, so two racing workers cannot both win.
func (c *useCase) AdvanceStatus(ctx context.Context, jobID string, newStatus entities.JobStatus) (entities.Job, error) {
	var job entities.Job

	if !newStatus.Valid() {
		return job, fmt.Errorf("%w: unknown status %q", apperr.ErrValidation, newStatus)
	}

	job, err := c.storage.GetJob(ctx, jobID)
	if err != nil {
		return job, err
	}
	if !job.Status.CanTransitionTo(newStatus) {
		return job, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, job.Status, newStatus)
	}

	if err := c.storage.AdvanceJobStatus(ctx, jobID, job.Status, newStatus); err != nil {
		return job, err
	}
	return c.storage.GetJob(ctx, jobID)
}
