package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trunov/converthub/internal/apperr"
	"github.com/trunov/converthub/internal/entities"
	"github.com/trunov/converthub/internal/transport/handler"
	"github.com/trunov/converthub/internal/transport/router"
)

type stubUseCase struct {
	createSession   func(filename string, size int64) (entities.UploadSession, error)
	completeSession func(id string) (entities.UploadSession, error)
	createJob       func(sessionID string, outputs []entities.Output) (entities.Job, error)
	getStatus       func(jobID string) (entities.JobStatusView, error)
	recordResult    func(jobID, backend, format, key string) (entities.Result, error)
	appendLog       func(jobID, backend, severity, message string) (entities.LogEntry, error)
	advanceStatus   func(jobID string, status entities.JobStatus) (entities.Job, error)
}

func (s *stubUseCase) CreateSession(_ context.Context, filename string, size int64) (entities.UploadSession, error) {
	return s.createSession(filename, size)
}

func (s *stubUseCase) CompleteSession(_ context.Context, id string) (entities.UploadSession, error) {
	return s.completeSession(id)
}

func (s *stubUseCase) CreateJob(_ context.Context, sessionID string, outputs []entities.Output) (entities.Job, error) {
	return s.createJob(sessionID, outputs)
}

func (s *stubUseCase) GetStatus(_ context.Context, jobID string) (entities.JobStatusView, error) {
	return s.getStatus(jobID)
}

func (s *stubUseCase) RecordResult(_ context.Context, jobID, backend, format, key string) (entities.Result, error) {
	return s.recordResult(jobID, backend, format, key)
}

func (s *stubUseCase) AppendLog(_ context.Context, jobID, backend, severity, message string) (entities.LogEntry, error) {
	return s.appendLog(jobID, backend, severity, message)
}

func (s *stubUseCase) AdvanceStatus(_ context.Context, jobID string, status entities.JobStatus) (entities.Job, error) {
	return s.advanceStatus(jobID, status)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func serve(t *testing.T, uc handler.UseCase, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := handler.New(uc, stubPinger{})
	r := router.NewRouter(h)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateSessionCreated(t *testing.T) {
	uc := &stubUseCase{
		createSession: func(filename string, size int64) (entities.UploadSession, error) {
			assert.Equal(t, "report.pdf", filename)
			assert.Equal(t, int64(1000), size)
			return entities.UploadSession{
				ID:        "s-1",
				ObjectKey: "uploads/s-1/report.pdf",
				Status:    entities.SessionCreated,
			}, nil
		},
	}

	rec := serve(t, uc, http.MethodPost, "/api/v1/uploads/sessions", `{"filename":"report.pdf","size":1000}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp handler.CreateSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Equal(t, "uploads/s-1/report.pdf", resp.Key)
}

func TestCreateSessionMissingFilename(t *testing.T) {
	uc := &stubUseCase{
		createSession: func(string, int64) (entities.UploadSession, error) {
			t.Fatal("use case must not be reached on validation failure")
			return entities.UploadSession{}, nil
		},
	}

	rec := serve(t, uc, http.MethodPost, "/api/v1/uploads/sessions", `{"size":1000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSessionPayloadTooLarge(t *testing.T) {
	uc := &stubUseCase{
		createSession: func(string, int64) (entities.UploadSession, error) {
			return entities.UploadSession{}, apperr.ErrPayloadTooLarge
		},
	}

	rec := serve(t, uc, http.MethodPost, "/api/v1/uploads/sessions", `{"filename":"huge.bin","size":9999999999}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCompleteSessionStatuses(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"ok", nil, http.StatusOK},
		{"unknown id", apperr.ErrNotFound, http.StatusNotFound},
		{"object missing", apperr.ErrUploadMissing, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &stubUseCase{
				completeSession: func(id string) (entities.UploadSession, error) {
					assert.Equal(t, "s-1", id)
					if tt.err != nil {
						return entities.UploadSession{}, tt.err
					}
					return entities.UploadSession{ID: id, Status: entities.SessionUploaded}, nil
				},
			}

			rec := serve(t, uc, http.MethodPut, "/api/v1/uploads/sessions/s-1/complete", "")
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestCreateJobAccepted(t *testing.T) {
	uc := &stubUseCase{
		createJob: func(sessionID string, outputs []entities.Output) (entities.Job, error) {
			assert.Equal(t, "s-1", sessionID)
			require.Len(t, outputs, 1)
			assert.Equal(t, "pptx", outputs[0].Format)
			return entities.Job{ID: "j-1", SessionID: sessionID, Status: entities.JobQueued}, nil
		},
	}

	rec := serve(t, uc, http.MethodPost, "/api/v1/jobs", `{"sessionId":"s-1","outputs":[{"format":"pptx"}]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "/api/v1/jobs/j-1", rec.Header().Get("Location"))

	var resp handler.CreateJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "j-1", resp.JobID)
	assert.Equal(t, "/api/v1/jobs/j-1", resp.Location)
}

func TestCreateJobMissingSessionID(t *testing.T) {
	uc := &stubUseCase{
		createJob: func(string, []entities.Output) (entities.Job, error) {
			t.Fatal("use case must not be reached on validation failure")
			return entities.Job{}, nil
		},
	}

	rec := serve(t, uc, http.MethodPost, "/api/v1/jobs", `{"outputs":[{"format":"pptx"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateJobUnknownSession(t *testing.T) {
	uc := &stubUseCase{
		createJob: func(string, []entities.Output) (entities.Job, error) {
			return entities.Job{}, fmt.Errorf("%w: session", apperr.ErrNotFound)
		},
	}

	rec := serve(t, uc, http.MethodPost, "/api/v1/jobs", `{"sessionId":"ghost","outputs":[{"format":"docx"}]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobStatus(t *testing.T) {
	uc := &stubUseCase{
		getStatus: func(jobID string) (entities.JobStatusView, error) {
			if jobID != "j-1" {
				return entities.JobStatusView{}, apperr.ErrNotFound
			}
			return entities.JobStatusView{
				Job:     entities.Job{ID: jobID, Status: entities.JobProcessing},
				Results: []entities.Result{},
				Logs:    []entities.LogEntry{},
			}, nil
		},
	}

	rec := serve(t, uc, http.MethodGet, "/api/v1/jobs/j-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view entities.JobStatusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, entities.JobProcessing, view.Job.Status)
	assert.NotNil(t, view.Results)
	assert.Empty(t, view.Results)

	rec = serve(t, uc, http.MethodGet, "/api/v1/jobs/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordResult(t *testing.T) {
	uc := &stubUseCase{
		recordResult: func(jobID, backend, format, key string) (entities.Result, error) {
			assert.Equal(t, "j-1", jobID)
			return entities.Result{ID: 1, JobID: jobID, Backend: backend, Format: format, ObjectKey: key}, nil
		},
	}

	rec := serve(t, uc, http.MethodPost, "/api/v1/jobs/j-1/results",
		`{"backend":"extraction","format":"text","key":"results/j-1/out.txt"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAppendLogValidation(t *testing.T) {
	uc := &stubUseCase{
		appendLog: func(jobID, backend, severity, message string) (entities.LogEntry, error) {
			return entities.LogEntry{ID: 1, JobID: jobID}, nil
		},
	}

	rec := serve(t, uc, http.MethodPost, "/api/v1/jobs/j-1/logs",
		`{"backend":"extraction","severity":"info","message":"started"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// unknown severity rejected by validation
	rec = serve(t, uc, http.MethodPost, "/api/v1/jobs/j-1/logs",
		`{"backend":"extraction","severity":"loud","message":"started"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdvanceStatusConflict(t *testing.T) {
	uc := &stubUseCase{
		advanceStatus: func(jobID string, status entities.JobStatus) (entities.Job, error) {
			return entities.Job{}, fmt.Errorf("%w: completed -> processing", apperr.ErrInvalidTransition)
		},
	}

	rec := serve(t, uc, http.MethodPut, "/api/v1/jobs/j-1/status", `{"status":"processing"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPing(t *testing.T) {
	h := handler.New(&stubUseCase{}, stubPinger{})
	r := router.NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
