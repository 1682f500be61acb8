package entities

import "time"

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// statusRank orders the lattice queued -> processing -> {completed, failed}.
// Terminal statuses share a rank; there is no transition between them.
var statusRank = map[JobStatus]int{
	JobQueued:     0,
	JobProcessing: 1,
	JobCompleted:  2,
	JobFailed:     2,
}

func (s JobStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransitionTo reports whether moving from s to next is a strictly
// forward move in the lattice. Repeating the current status is rejected,
// so a duplicated completion report is visible to the caller.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Output is one requested conversion target. Options are preserved
// opaquely for the backend that ends up handling the format.
type Output struct {
	Format  string         `json:"format"`
	Options map[string]any `json:"options,omitempty"`
}

// Job references exactly one upload session; it reads the session but
// does not own it. Results and logs belong to the job.
type Job struct {
	ID                string     `json:"jobId"`
	SessionID         string     `json:"sessionId"`
	Outputs           []Output   `json:"outputs"`
	Status            JobStatus  `json:"status"`
	CreatedTimestamp  time.Time  `json:"created_timestamp"`
	StartedTimestamp  *time.Time `json:"started_timestamp,omitempty"`
	FinishedTimestamp *time.Time `json:"finished_timestamp,omitempty"`
}

// Result is one produced artifact, reported by the backend that made it.
type Result struct {
	ID               int64     `json:"id"`
	JobID            string    `json:"jobId"`
	Backend          string    `json:"backend"`
	Format           string    `json:"format"`
	ObjectKey        string    `json:"key"`
	CreatedTimestamp time.Time `json:"created_timestamp"`
}

// LogEntry is append-only worker output attached to a job.
type LogEntry struct {
	ID               int64     `json:"id"`
	JobID            string    `json:"jobId"`
	Backend          string    `json:"backend"`
	Severity         string    `json:"severity"`
	Message          string    `json:"message"`
	CreatedTimestamp time.Time `json:"created_timestamp"`
}

// JobStatusView is the externally consumable join of a job with
// everything workers have reported so far. Collections may be empty
// or partial while workers are still running.
type JobStatusView struct {
	Job     Job        `json:"job"`
	Results []Result   `json:"results"`
	Logs    []LogEntry `json:"logs"`
}
