package sqlinline

const QEnsureProductsTable = `--sql a145872b-5c14-4df6-98e3-b9a041620b26
create table if not exists products (
    code text primary key,
    sku text not null,
    name text not null,
    sort_order integer not null default 0,
    active boolean not null default true,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
)`

const QSelectActiveProducts = `--sql 8d9dd830-d608-4276-90ac-9ce185da6c13
select coalesce(
    json_agg(json_build_object('code', code, 'sku', sku, 'name', name) order by sort_order, code),
    '[]'::json
)
from products
where active`

const QUpsertProduct = `--sql 98dc0576-bda6-4113-8b17-cec29c045f4c
insert into products (code, sku, name, sort_order, active, created_at, updated_at)
values ($1, $2, $3, $4, true, now(), now())
on conflict (code) do update set
    sku = excluded.sku,
    name = excluded.name,
    sort_order = excluded.sort_order,
    active = true,
    updated_at = now()`

const QDeactivateProductsExcept = `--sql 197becd2-29d1-44df-83df-5063d1627e1c
update products
set active = false, updated_at = now()
where active and not (code = any($1::text[]))`
