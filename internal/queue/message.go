package queue

import "github.com/trunov/converthub/internal/entities"

// TaskMessage is what we push to the backend streams.
// No bytes here—workers fetch the source by ObjectKey and dedupe on
// JobID+backend, since delivery is at-least-once.
type TaskMessage struct {
	JobID     string            `json:"job_id"`
	ObjectKey string            `json:"object_key"`
	Outputs   []entities.Output `json:"outputs"`
}
