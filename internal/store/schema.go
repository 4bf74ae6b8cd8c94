package store

const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	timestamp INTEGER NOT NULL,
	type TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	command TEXT NOT NULL DEFAULT '',
	success INTEGER,
	duration_ms INTEGER,
	error_type TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_command ON events(command, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_expires ON events(expires_at);
`
