package handler

type CreateSessionRequest struct {
	Filename string `json:"filename" validate:"required"`
	Size     int64  `json:"size" validate:"gte=0"`
}

type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
	Key       string `json:"key"`
}

type CompleteSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type OutputSpec struct {
	Format  string         `json:"format" validate:"required"`
	Options map[string]any `json:"options,omitempty"`
}

type CreateJobRequest struct {
	SessionID string       `json:"sessionId" validate:"required"`
	Outputs   []OutputSpec `json:"outputs" validate:"required,min=1,dive"`
}

type CreateJobResponse struct {
	JobID    string `json:"jobId"`
	Location string `json:"location"`
}

type RecordResultRequest struct {
	Backend string `json:"backend" validate:"required"`
	Format  string `json:"format" validate:"required"`
	Key     string `json:"key" validate:"required"`
}

type AppendLogRequest struct {
	Backend  string `json:"backend" validate:"required"`
	Severity string `json:"severity" validate:"omitempty,oneof=debug info warning error"`
	Message  string `json:"message" validate:"required"`
}

type AdvanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
