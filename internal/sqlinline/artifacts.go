package sqlinline

const QInsertArtifact = `--sql 5832c34e-cd31-400d-bea7-f2a3fe4b3204
insert into result_artifacts (
    id, task_id, user_id, modality, local_ref, source_ref,
    width, height, duration_seconds, prompt, model, provider, created_at
) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
on conflict (task_id) do nothing;
`

const QListArtifactsByUser = `--sql f51df659-b62a-44a8-8e44-fcd67b0cb9ba
select id, task_id, user_id, modality, local_ref, source_ref,
       width, height, duration_seconds, prompt, model, provider, created_at
from result_artifacts
where user_id = $1
order by created_at desc
limit $2;
`
