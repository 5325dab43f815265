// Package sqlinline holds the service's SQL statements as marker-prefixed
// constants. The first line of every statement is a `--sql <uuid>` marker the
// SQLRunner strips and logs, so database traffic can be traced back to the
// exact statement without logging SQL text.
package sqlinline

const taskColumns = `id, user_id, kind, prompt, negative_prompt, source_image_url,
       model, provider, status, progress, provider_job_id, result_ref,
       failure_code, error_message, image_params, video_params,
       created_at, updated_at`

const QInsertTask = `--sql 016c2124-1aae-43a0-9e4e-8a78bb5e64de
insert into generation_tasks (
    id, user_id, kind, prompt, negative_prompt, source_image_url, model,
    status, progress, image_params, video_params, created_at, updated_at
) values ($1, $2, $3, $4, $5, $6, $7, 'pending', 0, $8, $9, now(), now());
`

const QGetTask = `--sql 5fac32ca-7f21-4d64-8ddb-41701c2817a0
select ` + taskColumns + `
from generation_tasks
where id = $1;
`

const QOldestPendingTasks = `--sql 171bb34f-b534-4131-bde3-ea3ffe178f53
select ` + taskColumns + `
from generation_tasks
where status = 'pending'
order by created_at asc
limit $1;
`

const QStaleProcessingVideoTasks = `--sql 488979de-f41b-4afb-bd2f-41ef67930a94
select ` + taskColumns + `
from generation_tasks
where status = 'processing'
  and kind in ('text2video', 'image2video')
  and provider_job_id <> ''
order by updated_at asc
limit $1;
`

const QMarkTaskProcessing = `--sql 2a402acf-0d92-4672-b8f1-ef842bb58689
update generation_tasks
set status = 'processing', progress = greatest(progress, $2), updated_at = now()
where id = $1 and status = 'pending';
`

const QSetTaskDispatched = `--sql 374ebc2e-23f2-4648-8503-c21b6329b32d
update generation_tasks
set provider = $2, model = $3, provider_job_id = $4,
    progress = greatest(progress, $5), updated_at = now()
where id = $1 and status = 'processing' and provider_job_id = '';
`

const QSetTaskProgress = `--sql 4f256771-3de5-4cf6-acbf-4ec2cc6af64c
update generation_tasks
set progress = greatest(progress, $2), updated_at = now()
where id = $1 and status = 'processing';
`

const QMarkTaskCompleted = `--sql 0d6c5808-8e63-4442-b1c2-178898b6460d
update generation_tasks
set status = 'completed', progress = 100, result_ref = $2,
    failure_code = '', error_message = '', updated_at = now()
where id = $1 and status = 'processing';
`

const QMarkTaskFailed = `--sql 78a06af1-b053-4207-9e31-8e4367e08050
update generation_tasks
set status = 'failed', failure_code = $2, error_message = $3, updated_at = now()
where id = $1 and status in ('pending', 'processing');
`
