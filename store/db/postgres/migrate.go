package postgres

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS task (
		task_id       TEXT PRIMARY KEY,
		namespace_id  TEXT NOT NULL,
		event_type    TEXT NOT NULL,
		fingerprint   BIGINT NOT NULL,
		priority      INTEGER NOT NULL,
		priority_ts   TIMESTAMPTZ NOT NULL,
		settings      JSONB NOT NULL DEFAULT '[]',
		metrics       JSONB NOT NULL DEFAULT '[]',
		condition     TEXT NOT NULL DEFAULT '',
		signals       TEXT[] NOT NULL DEFAULT '{}',
		created_ts    TIMESTAMPTZ NOT NULL,
		start_ts      TIMESTAMPTZ,
		end_ts        TIMESTAMPTZ,
		heartbeat_ts  TIMESTAMPTZ,
		state         TEXT NOT NULL,
		return_code   INTEGER NOT NULL DEFAULT 0,
		message       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_ns_event_state ON task (namespace_id, event_type, state)`,
	`CREATE INDEX IF NOT EXISTS idx_task_ns_event_fingerprint_created ON task (namespace_id, event_type, fingerprint, created_ts DESC)`,
	`CREATE TABLE IF NOT EXISTS event_type_advertisement (
		namespace_id  TEXT NOT NULL,
		event_type    TEXT NOT NULL,
		heartbeat_ts  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (namespace_id, event_type)
	)`,
}
