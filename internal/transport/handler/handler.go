package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/trunov/converthub/internal/entities"
)

type UseCase interface {
	CreateSession(ctx context.Context, filename string, declaredSize int64) (entities.UploadSession, error)
	CompleteSession(ctx context.Context, id string) (entities.UploadSession, error)
	CreateJob(ctx context.Context, sessionID string, outputs []entities.Output) (entities.Job, error)
	GetStatus(ctx context.Context, jobID string) (entities.JobStatusView, error)
	RecordResult(ctx context.Context, jobID, backend, format, objectKey string) (entities.Result, error)
	AppendLog(ctx context.Context, jobID, backend, severity, message string) (entities.LogEntry, error)
	AdvanceStatus(ctx context.Context, jobID string, newStatus entities.JobStatus) (entities.Job, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	useCase   UseCase
	pinger    Pinger
	validator *validator.Validate
}

func New(useCase UseCase, pinger Pinger) *Handler {
	return &Handler{
		useCase:   useCase,
		pinger:    pinger,
		validator: validator.New(),
	}
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, validationErrorsToMap(err))
		return false
	}
	return true
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.useCase.CreateSession(r.Context(), req.Filename, req.Size)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID: session.ID,
		Key:       session.ObjectKey,
	})
}

func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := h.useCase.CompleteSession(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CompleteSessionResponse{SessionID: session.ID})
}

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	outputs := make([]entities.Output, 0, len(req.Outputs))
	for _, o := range req.Outputs {
		outputs = append(outputs, entities.Output{Format: o.Format, Options: o.Options})
	}

	job, err := h.useCase.CreateJob(r.Context(), req.SessionID, outputs)
	if err != nil {
		writeAppError(w, err)
		return
	}

	location := fmt.Sprintf("/api/v1/jobs/%s", job.ID)
	w.Header().Set("Location", location)
	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		JobID:    job.ID,
		Location: location,
	})
}

func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	view, err := h.useCase.GetStatus(r.Context(), jobID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) RecordResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	var req RecordResultRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.useCase.RecordResult(r.Context(), jobID, req.Backend, req.Format, req.Key)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) AppendLog(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	var req AppendLogRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := h.useCase.AppendLog(r.Context(), jobID, req.Backend, req.Severity, req.Message)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	var req AdvanceStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	job, err := h.useCase.AdvanceStatus(r.Context(), jobID, entities.JobStatus(req.Status))
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		writeJSONError(w, "database unreachable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
