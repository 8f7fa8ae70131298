package domain

import (
	"context"
	"encoding/json"
	"time"
)

// JobRepository defines the transactional transition operations over job
// rows. Every mutation is a single conditional statement against one row, so
// concurrent callers race on the database rather than in process; Claim is
// the sole primitive preventing double execution of a job.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	GetForOwner(ctx context.Context, jobID, ownerID string) (*Job, error)

	// Claim transitions a due queued job to running, increments the attempt
	// counter, resets progress and stamps startedAt. ok is false when another
	// executor holds the job or it is terminal; terminal states, including
	// failed, are never claimable.
	Claim(ctx context.Context, jobID string) (ok bool, attempt int, err error)

	// UpdateProgress merges the partial-result delta and advances percent and
	// step. It is a logged no-op when the job is not running or the percent
	// would regress within the current attempt.
	UpdateProgress(ctx context.Context, jobID string, percent int, step string, partialDelta json.RawMessage) error

	// Complete transitions running to succeeded with the final result.
	Complete(ctx context.Context, jobID string, finalResult json.RawMessage) error

	// Fail either requeues the job (retryable and attempts remain; the retry
	// delay is recorded so the poll loop skips the row until due) or
	// finalizes it as failed. requeued reports which branch was taken.
	Fail(ctx context.Context, jobID, message string, retryable bool, maxAttempts int, retryDelay time.Duration) (requeued bool, err error)

	// Cancel transitions queued or running to cancelled; no-op when terminal.
	Cancel(ctx context.Context, jobID string) error

	// RequestCancel cancels a queued job outright and flags a running one so
	// the executor stops at the next stage boundary.
	RequestCancel(ctx context.Context, jobID string) error
	CancelRequested(ctx context.Context, jobID string) (bool, error)

	// NextReady returns the id of one due queued job, or ErrNotFound.
	NextReady(ctx context.Context) (string, error)

	// QueuedPosition counts queued jobs ahead of the given one.
	QueuedPosition(ctx context.Context, jobID string) (int, error)
}

// AssetRepository handles persistence for generated artifacts.
type AssetRepository interface {
	SaveAll(ctx context.Context, assets []Asset) error
	ListByJobID(ctx context.Context, jobID string) ([]Asset, error)
}
