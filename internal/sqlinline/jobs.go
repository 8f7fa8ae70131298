package sqlinline

const QInsertJob = `--sql 5f533695-a524-4b3e-8d64-3ada3bb0965b
insert into jobs (id, owner_id, type, status, attempt, progress_percent, input_json, next_run_at, created_at, updated_at)
values ($1, $2, $3, 'queued', 0, 0, $4::jsonb, now(), now(), now());
`

const QGetJob = `--sql 3773847a-bad6-4f53-bce2-78a021cc1a95
select id, owner_id, type, status, attempt, progress_percent, current_step,
       input_json, partial_result, final_result, error_message, cancel_requested,
       next_run_at, created_at, started_at, completed_at, updated_at
from jobs
where id = $1;
`

const QGetJobForOwner = `--sql a3621b93-63b5-4e3c-8aa5-a0df841ddb87
select id, owner_id, type, status, attempt, progress_percent, current_step,
       input_json, partial_result, final_result, error_message, cancel_requested,
       next_run_at, created_at, started_at, completed_at, updated_at
from jobs
where id = $1 and owner_id = $2;
`

// Claim is the compare-and-swap transition: it succeeds only from 'queued'
// (and due), so at most one executor ever owns a running job even when the
// same id is delivered more than once. Retryable failures re-enter 'queued'
// through QFailJob; 'failed' itself is terminal and never claimable.
const QClaimJob = `--sql f38400e4-9e0c-406c-98e1-6c7e6872d8ad
update jobs
set status = 'running',
    attempt = attempt + 1,
    progress_percent = 0,
    current_step = '',
    error_message = '',
    started_at = now(),
    updated_at = now()
where id = $1
  and status = 'queued'
  and next_run_at <= now()
returning attempt;
`

// Progress may only advance while running; a stale or regressing write
// matches no row and is reported back to the caller as a no-op.
const QUpdateJobProgress = `--sql 12c2d186-ad01-4d83-8ef9-b2a9fbaed758
update jobs
set progress_percent = $2,
    current_step = $3,
    partial_result = coalesce(partial_result, '{}'::jsonb) || coalesce($4::jsonb, '{}'::jsonb),
    updated_at = now()
where id = $1
  and status = 'running'
  and progress_percent <= $2
returning id;
`

const QCompleteJob = `--sql 4e684337-2bec-4f64-b870-ba9d54f93672
update jobs
set status = 'succeeded',
    final_result = $2::jsonb,
    progress_percent = 100,
    completed_at = now(),
    updated_at = now()
where id = $1 and status = 'running'
returning id;
`

// Fail requeues when the failure is retryable and attempts remain, recording
// the computed backoff delay in next_run_at; otherwise it finalizes the job.
// The error message is only stored on the terminal branch.
const QFailJob = `--sql 83df0534-6653-4b81-b9e5-30e8687a2428
update jobs
set status = case when $2::bool and attempt < $3::int then 'queued' else 'failed' end,
    error_message = case when $2::bool and attempt < $3::int then '' else $4 end,
    next_run_at = case when $2::bool and attempt < $3::int
                       then now() + ($5::bigint * interval '1 millisecond')
                       else next_run_at end,
    completed_at = case when $2::bool and attempt < $3::int then completed_at else now() end,
    updated_at = now()
where id = $1 and status = 'running'
returning status;
`

const QCancelJob = `--sql ded749b3-a222-493e-8117-89550dff1f98
update jobs
set status = 'cancelled',
    completed_at = now(),
    updated_at = now()
where id = $1 and status in ('queued', 'running');
`

// A queued job cancels outright; a running one is only flagged so the
// executor can stop at the next stage boundary.
const QRequestCancelJob = `--sql 12243519-8f4a-4631-ac39-41fd5282b6cc
update jobs
set cancel_requested = true,
    status = case when status = 'queued' then 'cancelled' else status end,
    completed_at = case when status = 'queued' then now() else completed_at end,
    updated_at = now()
where id = $1 and status in ('queued', 'running');
`

const QJobCancelRequested = `--sql 0534f4c9-810e-425b-b249-b3deb199c3b6
select cancel_requested from jobs where id = $1;
`

const QNextReadyJob = `--sql 6318c347-91b9-438a-aad9-bbda3b3a16db
select id
from jobs
where status = 'queued' and next_run_at <= now()
order by next_run_at asc, created_at asc
limit 1;
`

const QQueuedPosition = `--sql ea334d07-799d-4543-bf7c-0d68098a9416
select count(*)
from jobs q
join jobs j on j.id = $1
where q.status = 'queued' and q.created_at < j.created_at;
`
