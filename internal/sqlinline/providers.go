package sqlinline

const providerColumns = `name, modality, adapter_kind, enabled, priority, models,
       endpoint, api_key, secret_key, rate_limit, updated_at`

const QEnabledProviderConfigs = `--sql f9ad35ed-c9ab-44b2-bf55-9c5896cdc476
select ` + providerColumns + `
from provider_configs
where modality = $1 and enabled = true
order by priority desc, updated_at desc;
`

const QCountProviderConfigs = `--sql 0d98dff1-f76d-40d9-b094-fa43945b0fbc
select count(*) from provider_configs;
`

const QInsertProviderConfig = `--sql f7c47933-d963-475a-b603-2bf2c1d9e657
insert into provider_configs (
    name, modality, adapter_kind, enabled, priority, models,
    endpoint, api_key, secret_key, rate_limit, created_at, updated_at
) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
on conflict (name) do nothing;
`
