package sqlite

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS task (
		task_id       TEXT PRIMARY KEY,
		namespace_id  TEXT NOT NULL,
		event_type    TEXT NOT NULL,
		fingerprint   INTEGER NOT NULL,
		priority      INTEGER NOT NULL,
		priority_ts   INTEGER NOT NULL,
		settings      TEXT NOT NULL,
		metrics       TEXT NOT NULL,
		condition     TEXT NOT NULL,
		signals       TEXT NOT NULL,
		created_ts    INTEGER NOT NULL,
		start_ts      INTEGER,
		end_ts        INTEGER,
		heartbeat_ts  INTEGER,
		state         TEXT NOT NULL,
		return_code   INTEGER NOT NULL DEFAULT 0,
		message       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_ns_event_state ON task (namespace_id, event_type, state)`,
	`CREATE INDEX IF NOT EXISTS idx_task_ns_event_fingerprint_created ON task (namespace_id, event_type, fingerprint, created_ts DESC)`,
	`CREATE TABLE IF NOT EXISTS event_type_advertisement (
		namespace_id  TEXT NOT NULL,
		event_type    TEXT NOT NULL,
		heartbeat_ts  INTEGER NOT NULL,
		PRIMARY KEY (namespace_id, event_type)
	)`,
}
