package entities

import "time"

type SessionStatus string

const (
	SessionCreated  SessionStatus = "created"
	SessionUploaded SessionStatus = "uploaded"
)

// UploadSession tracks one object awaiting (or having completed) upload.
// The object key is derived from the session id and the original filename,
// so it stays stable across complete/re-check calls.
type UploadSession struct {
	ID               string        `json:"sessionId"`
	ObjectKey        string        `json:"key"`
	DeclaredSize     int64         `json:"size"`
	Status           SessionStatus `json:"status"`
	CreatedTimestamp time.Time     `json:"created_timestamp"`
	UpdatedTimestamp time.Time     `json:"updated_timestamp"`
}
