package sqlinline

const QInsertAnalysis = `--sql 7d7cf710-2de3-4742-9f31-a2e1ee00ff24
insert into analyses (id, user_id, product_name, brand, score, payload, created_at)
values ($1::uuid, nullif($2, '')::uuid, $3::text, $4::text, $5::int, $6::jsonb, now());
`

const QSelectAnalysisByID = `--sql 9975d0de-308c-4c00-9685-28f8ba6ba86b
select id, coalesce(user_id::text, ''), payload, created_at
from analyses
where id = $1::uuid
limit 1;
`
