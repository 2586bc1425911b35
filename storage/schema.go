package storage

const schema = `
create table if not exists boards(
    id text primary key,
    title text not null check (length(title) > 0),
    owner_id text not null,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create table if not exists board_members(
    board_id text not null references boards(id) on delete cascade,
    user_id text not null,
    primary key(board_id, user_id)
);
create table if not exists tasks(
    id text primary key,
    board_id text not null references boards(id) on delete cascade,
    title text not null check (length(title) > 0),
    description text not null default '',
    status text not null default 'to_do' check (status in ('to_do','in_progress','review','done')),
    priority text not null default 'medium' check (priority in ('low','medium','high')),
    assignee_id text,
    reviewer_id text,
    created_by text not null,
    due_date date,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create index if not exists tasks_board_idx on tasks(board_id);
create index if not exists tasks_assignee_idx on tasks(assignee_id);
create index if not exists tasks_reviewer_idx on tasks(reviewer_id);
create table if not exists comments(
    id text primary key,
    task_id text not null references tasks(id) on delete cascade,
    author_id text not null,
    content text not null check (length(content) between 1 and 1000),
    created_at timestamptz not null default now()
);
create index if not exists comments_task_idx on comments(task_id);
`
