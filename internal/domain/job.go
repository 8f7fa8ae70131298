package domain

import (
	"encoding/json"
	"time"
)

// JobType enumerates supported generation job categories.
type JobType string

const (
	JobTypeStoryGenerate JobType = "story_generate"
	JobTypeImageGenerate JobType = "image_generate"
	JobTypeTTSGenerate   JobType = "tts_generate"
	JobTypeCompleteStory JobType = "complete_story"
)

// Valid reports whether the job type is one of the known variants.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeStoryGenerate, JobTypeImageGenerate, JobTypeTTSGenerate, JobTypeCompleteStory:
		return true
	}
	return false
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job encapsulates the lifecycle of one multi-stage generation request.
// Status changes only through the JobRepository transition methods; the
// progress percent never regresses within a single attempt and resets to
// zero when a new attempt is claimed.
type Job struct {
	ID              string
	OwnerID         string
	Type            JobType
	Status          JobStatus
	Attempt         int
	ProgressPercent int
	CurrentStep     string
	InputJSON       json.RawMessage
	PartialResult   json.RawMessage
	FinalResult     json.RawMessage
	ErrorMessage    string
	CancelRequested bool
	NextRunAt       time.Time
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}
