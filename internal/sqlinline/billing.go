package sqlinline

const QProcessedEventExists = `--sql e8e8b223-98f0-4915-a3b8-61346fece8ca
select exists (select 1 from processed_events where event_id = $1);
`

// The unique constraint on event_id is the ledger's only concurrency
// primitive; a conflicting insert means another delivery already won.
const QInsertProcessedEvent = `--sql d6ebf3ff-2ec7-4506-8dcf-8c7130bc19b5
insert into processed_events (event_id, processed_at)
values ($1, now());
`

const QGrantCredits = `--sql 02ca7bb1-bf68-4f20-8d16-57fb9f2c424c
insert into credit_balances (user_id, credits, updated_at)
values ($1, $2::int, now())
on conflict (user_id)
do update set credits = credit_balances.credits + excluded.credits, updated_at = now();
`

const QGetCreditBalance = `--sql 61c49b1e-731a-4542-a506-67b24b358a20
select credits from credit_balances where user_id = $1;
`

const QActivateSubscription = `--sql 224a79a1-0755-4a92-8a4b-42ed53dd347f
insert into subscriptions (user_id, plan, status, current_period_end, updated_at)
values ($1, $2, 'active', $3::timestamptz, now())
on conflict (user_id)
do update set plan = excluded.plan, status = 'active', current_period_end = excluded.current_period_end, updated_at = now();
`

const QRenewSubscription = `--sql ba0ac0a1-f353-494f-b388-1b5eb586eea4
update subscriptions
set status = 'active', current_period_end = $2::timestamptz, updated_at = now()
where user_id = $1;
`

const QCancelSubscription = `--sql 9afe43bb-b36b-414c-8f7f-c58320dbfbea
update subscriptions
set status = 'cancelled', updated_at = now()
where user_id = $1;
`
