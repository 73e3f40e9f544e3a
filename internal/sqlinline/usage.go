package sqlinline

const QInsertUsageEvent = `--sql bd854530-9fbd-455c-b304-014c562f2fae
insert into usage_events (id, user_id, client_ip, event_type, success, latency_ms, created_at, properties)
values (gen_random_uuid(), nullif($1, '')::uuid, $2::text, $3::text, $4::boolean, $5::int, now(), coalesce($6::jsonb, '{}'::jsonb));
`
