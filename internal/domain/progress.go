package domain

import "encoding/json"

// ProgressMessage is the transient payload broadcast to realtime subscribers.
// It is never persisted; the job row remains the source of truth and clients
// reconcile by polling when a message is missed.
type ProgressMessage struct {
	JobID   string          `json:"job_id"`
	Status  JobStatus       `json:"status"`
	Percent int             `json:"percent"`
	Step    string          `json:"step,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
