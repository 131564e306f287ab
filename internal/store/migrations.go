package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bot_users (
	id         INTEGER PRIMARY KEY,
	username   TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     INTEGER NOT NULL REFERENCES bot_users(id) ON DELETE CASCADE,
	title       TEXT NOT NULL CHECK(length(trim(title)) > 0),
	description TEXT,
	status      TEXT NOT NULL DEFAULT 'PENDING'
		CHECK(status IN ('PENDING', 'IN_PROGRESS', 'COMPLETED')),
	due_date    DATETIME,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	deleted_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id, deleted_at);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);

CREATE TABLE IF NOT EXISTS task_attachments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	file_id    TEXT NOT NULL,
	file_type  TEXT,
	file_name  TEXT,
	file_url   TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_attachments_task_id ON task_attachments(task_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS chat_groups (
	chat_id    INTEGER PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT 'group',
	is_active  INTEGER NOT NULL DEFAULT 1 CHECK(is_active IN (0, 1)),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id              INTEGER NOT NULL REFERENCES chat_groups(chat_id) ON DELETE CASCADE,
	user_id               INTEGER NOT NULL REFERENCES bot_users(id) ON DELETE CASCADE,
	notifications_enabled INTEGER CHECK(notifications_enabled IN (0, 1)),
	joined_at             DATETIME NOT NULL,
	role                  TEXT NOT NULL DEFAULT 'member',
	is_active             INTEGER NOT NULL DEFAULT 1 CHECK(is_active IN (0, 1)),
	PRIMARY KEY (group_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id, is_active);
CREATE INDEX IF NOT EXISTS idx_chat_groups_active ON chat_groups(chat_id, is_active);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS conversation_state (
	user_id    INTEGER NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, key)
);

CREATE INDEX IF NOT EXISTS idx_conversation_state_expires ON conversation_state(expires_at);

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}
