package remote

// Schema creates the backend tables. Every row carries a version used for
// compare-and-swap writes, the content fingerprint of the last accepted
// write and a deleted_at tombstone; rows are never removed. Person references are plain text because a branch or task may
// still name a collaborator who was removed.
//
// Row-level security scopes rows to the arbor.owner_id session setting,
// which PostgresAdapter sets on every pooled connection. Connections as the
// table owner bypass the policies.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	root_branch_id TEXT NOT NULL DEFAULT '',
	owner_id       TEXT NOT NULL,
	version        INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	fingerprint    TEXT NOT NULL DEFAULT '',
	deleted_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS people (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id),
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	initials   TEXT NOT NULL DEFAULT '',
	color      TEXT NOT NULL DEFAULT '',
	version    INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	fingerprint TEXT NOT NULL DEFAULT '',
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS branches (
	id             TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL REFERENCES projects(id),
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	responsible_id TEXT NOT NULL DEFAULT '',
	start_date     TEXT NOT NULL DEFAULT '',
	end_date       TEXT NOT NULL DEFAULT '',
	due_date       TEXT NOT NULL DEFAULT '',
	archived       BOOLEAN NOT NULL DEFAULT false,
	collapsed      BOOLEAN NOT NULL DEFAULT false,
	is_label       BOOLEAN NOT NULL DEFAULT false,
	is_sprint      BOOLEAN NOT NULL DEFAULT false,
	sprint_counter INTEGER NOT NULL DEFAULT 0,
	parent_ids     TEXT[] NOT NULL DEFAULT '{}',
	children_ids   TEXT[] NOT NULL DEFAULT '{}',
	position       INTEGER NOT NULL DEFAULT 0,
	version        INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	fingerprint    TEXT NOT NULL DEFAULT '',
	deleted_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	branch_id    TEXT NOT NULL REFERENCES branches(id),
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	assignee_id  TEXT NOT NULL DEFAULT '',
	due_date     TEXT NOT NULL DEFAULT '',
	completed    BOOLEAN NOT NULL DEFAULT false,
	completed_at TIMESTAMPTZ,
	position     INTEGER NOT NULL DEFAULT 0,
	pinned       BOOLEAN NOT NULL DEFAULT false,
	version      INTEGER NOT NULL DEFAULT 0,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	fingerprint  TEXT NOT NULL DEFAULT '',
	deleted_at   TIMESTAMPTZ
);

ALTER TABLE projects ADD COLUMN IF NOT EXISTS fingerprint TEXT NOT NULL DEFAULT '';
ALTER TABLE people ADD COLUMN IF NOT EXISTS fingerprint TEXT NOT NULL DEFAULT '';
ALTER TABLE branches ADD COLUMN IF NOT EXISTS fingerprint TEXT NOT NULL DEFAULT '';
ALTER TABLE tasks ADD COLUMN IF NOT EXISTS fingerprint TEXT NOT NULL DEFAULT '';

CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_people_project ON people(project_id);
CREATE INDEX IF NOT EXISTS idx_branches_project ON branches(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_branch ON tasks(branch_id);

ALTER TABLE projects ENABLE ROW LEVEL SECURITY;
ALTER TABLE people ENABLE ROW LEVEL SECURITY;
ALTER TABLE branches ENABLE ROW LEVEL SECURITY;
ALTER TABLE tasks ENABLE ROW LEVEL SECURITY;

DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_policies WHERE policyname = 'projects_owner') THEN
		CREATE POLICY projects_owner ON projects
			USING (owner_id = current_setting('arbor.owner_id', true));
	END IF;
	IF NOT EXISTS (SELECT 1 FROM pg_policies WHERE policyname = 'people_owner') THEN
		CREATE POLICY people_owner ON people
			USING (project_id IN (SELECT id FROM projects));
	END IF;
	IF NOT EXISTS (SELECT 1 FROM pg_policies WHERE policyname = 'branches_owner') THEN
		CREATE POLICY branches_owner ON branches
			USING (project_id IN (SELECT id FROM projects));
	END IF;
	IF NOT EXISTS (SELECT 1 FROM pg_policies WHERE policyname = 'tasks_owner') THEN
		CREATE POLICY tasks_owner ON tasks
			USING (branch_id IN (SELECT id FROM branches));
	END IF;
END $$;
`
