package sqlinline

const QUpsertGoogleProfile = `--sql 8308b20b-73da-4595-8453-aef2fbebc9ec
insert into profiles (id, google_sub, email, name, is_premium, free_analyses_used, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, false, 0, now(), now())
on conflict (google_sub) do update set
    email = excluded.email,
    name = excluded.name,
    updated_at = now()
returning id, is_premium, free_analyses_used;
`

const QSelectProfileByID = `--sql 727ff0a5-23fc-4a0e-9be3-c8a1dd253dad
select id, google_sub, email, name, is_premium, free_analyses_used, coalesce(stripe_customer_id, ''), created_at, updated_at
from profiles
where id = $1::uuid
limit 1;
`

const QSelectProfileByEmail = `--sql 41e0d2b7-5c1a-4e8f-9d36-7a2c85b1f4d9
select id, google_sub, email, name, is_premium, free_analyses_used, coalesce(stripe_customer_id, ''), created_at, updated_at
from profiles
where email = $1::text
limit 1;
`

const QSelectProfileQuota = `--sql c6f8c339-307e-4986-a225-0274d896ddd2
select is_premium, free_analyses_used
from profiles
where id = $1::uuid
limit 1;
`

const QIncrementFreeAnalyses = `--sql d5fa073b-f321-4d48-8c78-d24a4d28be5a
update profiles
set free_analyses_used = free_analyses_used + 1,
    updated_at = now()
where id = $1::uuid;
`

const QSetStripeCustomer = `--sql 9f78466a-74b8-410c-a4cc-d1e88925d148
update profiles
set stripe_customer_id = $2::text,
    updated_at = now()
where id = $1::uuid;
`

const QSelectStripeCustomer = `--sql 3b706ce3-7121-45a7-8460-1fc584be8efc
select coalesce(stripe_customer_id, '')
from profiles
where id = $1::uuid
limit 1;
`

const QSetPremiumByID = `--sql 9114ff70-3fc4-4c3c-87c3-030113276495
update profiles
set is_premium = $2::boolean,
    updated_at = now()
where id = $1::uuid;
`

const QSetPremiumByStripeCustomer = `--sql 19252e3e-319a-4124-9493-1afd639c1030
update profiles
set is_premium = $2::boolean,
    updated_at = now()
where stripe_customer_id = $1::text;
`
