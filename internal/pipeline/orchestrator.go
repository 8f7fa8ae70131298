package pipeline

import (
	"context"
	"fmt"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
)

// Publisher is the best-effort progress broadcast. Delivery is never
// guaranteed; clients reconcile against the job row.
type Publisher interface {
	Publish(ctx context.Context, msg domain.ProgressMessage)
}

// Options configures an Orchestrator.
type Options struct {
	MaxAttempts int
	Backoff     Backoff
}

// Orchestrator drives one job from queued to a terminal state: it claims the
// row, runs the type's stage sequence, records progress, and finalizes as
// succeeded, failed or cancelled. It holds no mutable state of its own, so a
// single instance serves any number of worker goroutines.
type Orchestrator struct {
	jobs        domain.JobRepository
	plans       map[domain.JobType]Plan
	publisher   Publisher
	backoff     Backoff
	maxAttempts int
	log         infra.Logger
}

// NewOrchestrator wires the orchestrator. publisher may be nil when no
// realtime channel is attached.
func NewOrchestrator(jobs domain.JobRepository, plans map[domain.JobType]Plan, publisher Publisher, opts Options, log infra.Logger) *Orchestrator {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := opts.Backoff
	if backoff.Base <= 0 {
		backoff = DefaultBackoff()
	}
	return &Orchestrator{
		jobs:        jobs,
		plans:       plans,
		publisher:   publisher,
		backoff:     backoff,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Execute runs the job to a terminal state or requeue. A failed claim is a
// benign no-op: another worker owns the job or it is already terminal.
func (o *Orchestrator) Execute(ctx context.Context, jobID string) error {
	ok, attempt, err := o.jobs.Claim(ctx, jobID)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", jobID, err)
	}
	if !ok {
		o.log.Debug().Str("job_id", jobID).Msg("claim lost, skipping")
		return nil
	}

	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	log := o.log.With().Str("job_id", jobID).Str("type", string(job.Type)).Int("attempt", attempt).Logger()
	log.Info().Msg("job claimed")

	input, err := domain.UnmarshalInput(job.InputJSON)
	if err != nil {
		return o.finalize(ctx, log, job, attempt, "input", Permanent("input", "stored input is not decodable", err))
	}
	plan, ok := o.plans[job.Type]
	if !ok {
		return o.finalize(ctx, log, job, attempt, "input", Permanent("input", fmt.Sprintf("no pipeline for job type %q", job.Type), nil))
	}

	acc := NewAccumulator(input)
	for _, step := range plan {
		cancelled, err := o.jobs.CancelRequested(ctx, jobID)
		if err != nil {
			return fmt.Errorf("check cancel flag %s: %w", jobID, err)
		}
		if cancelled {
			if err := o.jobs.Cancel(ctx, jobID); err != nil {
				return fmt.Errorf("cancel job %s: %w", jobID, err)
			}
			o.publish(ctx, domain.ProgressMessage{
				JobID:   jobID,
				Status:  domain.JobStatusCancelled,
				Percent: job.ProgressPercent,
				Step:    "Cancelled",
			})
			log.Info().Msg("job cancelled at stage boundary")
			return nil
		}

		artifact, err := step.Executor.Run(ctx, job, acc)
		if err != nil {
			return o.finalize(ctx, log, job, attempt, step.Executor.Name(), err)
		}
		acc.Merge(artifact)

		if err := o.jobs.UpdateProgress(ctx, jobID, step.Percent, step.Label, artifact.Delta()); err != nil {
			return fmt.Errorf("update progress %s: %w", jobID, err)
		}
		job.ProgressPercent = step.Percent
		o.publish(ctx, domain.ProgressMessage{
			JobID:   jobID,
			Status:  domain.JobStatusRunning,
			Percent: step.Percent,
			Step:    step.Label,
			Data:    artifact.Delta(),
		})
		log.Debug().Str("stage", step.Executor.Name()).Int("percent", step.Percent).Msg("stage complete")
	}

	final := acc.FinalResult()
	if err := o.jobs.Complete(ctx, jobID, final); err != nil {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}
	o.publish(ctx, domain.ProgressMessage{
		JobID:   jobID,
		Status:  domain.JobStatusSucceeded,
		Percent: 100,
		Step:    "Done",
		Data:    final,
	})
	log.Info().Msg("job succeeded")
	return nil
}

// finalize applies the error taxonomy to a stage failure: transient errors
// go back through Fail with a computed backoff, permanent ones finalize the
// job immediately.
func (o *Orchestrator) finalize(ctx context.Context, log infra.Logger, job *domain.Job, attempt int, stage string, stageErr error) error {
	transient, message := classify(stage, stageErr)
	delay := o.backoff.Delay(attempt)

	requeued, err := o.jobs.Fail(ctx, job.ID, message, transient, o.maxAttempts, delay)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", job.ID, err)
	}

	if requeued {
		log.Warn().Err(stageErr).Dur("retry_in", delay).Msg("job requeued after transient failure")
		o.publish(ctx, domain.ProgressMessage{
			JobID:   job.ID,
			Status:  domain.JobStatusQueued,
			Percent: job.ProgressPercent,
			Step:    "Retry scheduled",
		})
		return nil
	}

	log.Error().Err(stageErr).Msg("job failed")
	o.publish(ctx, domain.ProgressMessage{
		JobID:   job.ID,
		Status:  domain.JobStatusFailed,
		Percent: job.ProgressPercent,
		Step:    message,
	})
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, msg domain.ProgressMessage) {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(ctx, msg)
}
