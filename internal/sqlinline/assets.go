package sqlinline

const QInsertAsset = `--sql d33aaac8-069f-4e01-91ed-db384b94d852
insert into assets (id, job_id, owner_id, kind, storage_key, mime_type, size_bytes, created_at)
values ($1, $2, $3, $4, $5, $6, $7::bigint, now());
`

const QListAssetsByJob = `--sql 7c7a8f95-1f0a-4b3e-9c2d-5f1e8a4d6b21
select id, job_id, owner_id, kind, storage_key, mime_type, size_bytes, created_at
from assets
where job_id = $1
order by created_at asc;
`
