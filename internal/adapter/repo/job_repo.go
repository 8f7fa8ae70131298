package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository. Every transition is one
// conditional UPDATE against the job row, so the database arbitrates races
// between concurrent executors.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
	log infra.Logger
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor, log infra.Logger) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql, log: log}
}

func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertJob, job.ID, job.OwnerID, job.Type, job.InputJSON)
	return err
}

func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	return r.scanJob(r.sql.QueryRow(ctx, sqlinline.QGetJob, jobID))
}

func (r *JobRepositoryPG) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	return r.scanJob(r.sql.QueryRow(ctx, sqlinline.QGetJobForOwner, jobID, ownerID))
}

func (r *JobRepositoryPG) Claim(ctx context.Context, jobID string) (bool, int, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QClaimJob, jobID)
	var attempt int
	if err := row.Scan(&attempt); err != nil {
		if infra.IsNoRows(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, attempt, nil
}

func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID string, percent int, step string, partialDelta json.RawMessage) error {
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateJobProgress, jobID, percent, step, nullableJSON(partialDelta))
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			// Not running or a regressing percent; authoritative state wins.
			r.log.Warn().Str("job_id", jobID).Int("percent", percent).Msg("progress update rejected")
			return nil
		}
		return err
	}
	return nil
}

func (r *JobRepositoryPG) Complete(ctx context.Context, jobID string, finalResult json.RawMessage) error {
	row := r.sql.QueryRow(ctx, sqlinline.QCompleteJob, jobID, nullableJSON(finalResult))
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotRunning
		}
		return err
	}
	return nil
}

func (r *JobRepositoryPG) Fail(ctx context.Context, jobID, message string, retryable bool, maxAttempts int, retryDelay time.Duration) (bool, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QFailJob, jobID, retryable, maxAttempts, message, retryDelay.Milliseconds())
	var status domain.JobStatus
	if err := row.Scan(&status); err != nil {
		if infra.IsNoRows(err) {
			return false, domain.ErrNotRunning
		}
		return false, err
	}
	return status == domain.JobStatusQueued, nil
}

func (r *JobRepositoryPG) Cancel(ctx context.Context, jobID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QCancelJob, jobID)
	return err
}

func (r *JobRepositoryPG) RequestCancel(ctx context.Context, jobID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QRequestCancelJob, jobID)
	return err
}

func (r *JobRepositoryPG) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QJobCancelRequested, jobID)
	var requested bool
	if err := row.Scan(&requested); err != nil {
		if infra.IsNoRows(err) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return requested, nil
}

func (r *JobRepositoryPG) NextReady(ctx context.Context) (string, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QNextReadyJob)
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *JobRepositoryPG) QueuedPosition(ctx context.Context, jobID string) (int, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QQueuedPosition, jobID)
	var position int
	if err := row.Scan(&position); err != nil {
		if infra.IsNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return position, nil
}

func (r *JobRepositoryPG) scanJob(row interface{ Scan(dest ...any) error }) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Type,
		&job.Status,
		&job.Attempt,
		&job.ProgressPercent,
		&job.CurrentStep,
		&job.InputJSON,
		&job.PartialResult,
		&job.FinalResult,
		&job.ErrorMessage,
		&job.CancelRequested,
		&job.NextRunAt,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func nullableJSON(b json.RawMessage) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
