package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	provider     TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	is_active    INTEGER NOT NULL DEFAULT 1,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_status (
	account_id   TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
	unread_count INTEGER NOT NULL DEFAULT 0,
	last_success TIMESTAMP,
	last_error   TEXT NOT NULL DEFAULT '',
	auth_expired INTEGER NOT NULL DEFAULT 0,
	updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
