package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/batchelor-project/batchelor/store"
)

func (d *DB) SaveTask(ctx context.Context, ns string, t *store.Task) error {
	settings, err := marshalKVs(t.Settings)
	if err != nil {
		return err
	}
	metrics, err := marshalKVs(t.Metrics)
	if err != nil {
		return err
	}

	stmt := `
		INSERT INTO task (
			task_id, namespace_id, event_type, fingerprint, priority, priority_ts,
			settings, metrics, condition, signals, created_ts, start_ts, end_ts,
			heartbeat_ts, state, return_code, message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task_id) DO UPDATE SET
			priority = excluded.priority,
			priority_ts = excluded.priority_ts,
			condition = excluded.condition,
			signals = excluded.signals,
			start_ts = excluded.start_ts,
			end_ts = excluded.end_ts,
			heartbeat_ts = excluded.heartbeat_ts,
			state = excluded.state,
			return_code = excluded.return_code,
			message = excluded.message
	`
	_, err = d.db.ExecContext(ctx, stmt,
		t.TaskID, ns, t.EventType, t.Fingerprint, t.Priority, toUnixMillis(t.PriorityTS),
		settings, metrics, t.Condition, marshalSignals(t.Signals), toUnixMillis(t.CreatedTS),
		nullableMillis(t.StartTS), nullableMillis(t.EndTS), nullableMillis(t.HeartbeatTS),
		string(t.State), t.ReturnCode, t.Message,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save task")
	}
	return nil
}

const taskColumns = `task_id, namespace_id, event_type, fingerprint, priority, priority_ts,
	settings, metrics, condition, signals, created_ts, start_ts, end_ts,
	heartbeat_ts, state, return_code, message`

func scanTask(row interface {
	Scan(dest ...any) error
}) (*store.Task, error) {
	var (
		t                                    store.Task
		state                                string
		settings, metrics, signals           string
		priorityTS, createdTS                int64
		startTS, endTS, heartbeatTS          sql.NullInt64
	)
	err := row.Scan(
		&t.TaskID, &t.NamespaceID, &t.EventType, &t.Fingerprint, &t.Priority, &priorityTS,
		&settings, &metrics, &t.Condition, &signals, &createdTS, &startTS, &endTS,
		&heartbeatTS, &state, &t.ReturnCode, &t.Message,
	)
	if err != nil {
		return nil, err
	}
	t.State = store.State(state)
	t.PriorityTS = fromUnixMillis(priorityTS)
	t.CreatedTS = fromUnixMillis(createdTS)
	t.StartTS = fromNullableMillis(startTS)
	t.EndTS = fromNullableMillis(endTS)
	t.HeartbeatTS = fromNullableMillis(heartbeatTS)
	t.Signals = unmarshalSignals(signals)
	if t.Settings, err = unmarshalKVs(settings); err != nil {
		return nil, err
	}
	if t.Metrics, err = unmarshalKVs(metrics); err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) LoadTaskByID(ctx context.Context, ns, taskID string) (*store.Task, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM task WHERE namespace_id = ? AND task_id = ?`, ns, taskID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load task")
	}
	return t, nil
}

func (d *DB) LoadLatestByEventAndFingerprint(ctx context.Context, ns, eventType string, fingerprint uint32) (*store.Task, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM task
			WHERE namespace_id = ? AND event_type = ? AND fingerprint = ?
			ORDER BY created_ts DESC LIMIT 1`,
		ns, eventType, fingerprint)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load task by fingerprint")
	}
	return t, nil
}

func (d *DB) LoadByEventAndState(ctx context.Context, ns, eventType string, state store.State) ([]*store.Task, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM task
			WHERE namespace_id = ? AND event_type = ? AND state = ?
			ORDER BY priority DESC, priority_ts ASC`,
		ns, eventType, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tasks by event and state")
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func (d *DB) LoadTasks(ctx context.Context, ns string, filter store.TaskFilter) ([]*store.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE namespace_id = ?`
	args := []any{ns}

	if filter.State != nil {
		query += ` AND state = ?`
		args = append(args, string(*filter.State))
	}
	if filter.NotBefore != nil {
		query += ` AND created_ts >= ?`
		args = append(args, toUnixMillis(*filter.NotBefore))
	}
	if filter.NotAfter != nil {
		query += ` AND created_ts <= ?`
		args = append(args, toUnixMillis(*filter.NotAfter))
	}
	query += ` ORDER BY created_ts DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tasks")
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func scanTaskRows(rows *sql.Rows) ([]*store.Task, error) {
	var tasks []*store.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (d *DB) Cleanup(ctx context.Context, ns string, zombieTTL, deleteTTL time.Duration, now time.Time) (*store.CleanupResult, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin cleanup transaction")
	}
	defer tx.Rollback()

	result := &store.CleanupResult{}

	zombieHorizon := toUnixMillis(now.Add(-zombieTTL))
	promoted, err := tx.ExecContext(ctx,
		`UPDATE task SET state = ?, message = 'heartbeat expired'
			WHERE namespace_id = ? AND state IN (?, ?) AND heartbeat_ts IS NOT NULL AND heartbeat_ts < ?`,
		string(store.StateZombie), ns, string(store.StateQueued), string(store.StateRunning), zombieHorizon)
	if err != nil {
		return nil, errors.Wrap(err, "failed to promote zombies")
	}
	if n, err := promoted.RowsAffected(); err == nil {
		result.PromotedToZombie = int(n)
	}

	deleteHorizon := toUnixMillis(now.Add(-deleteTTL))
	deleted, err := tx.ExecContext(ctx,
		`DELETE FROM task WHERE namespace_id = ? AND state IN (?, ?, ?) AND heartbeat_ts IS NOT NULL AND heartbeat_ts < ?`,
		ns, string(store.StateDone), string(store.StateSignaled), string(store.StateZombie), deleteHorizon)
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete expired tasks")
	}
	if n, err := deleted.RowsAffected(); err == nil {
		result.Deleted = int(n)
	}

	pruned, err := tx.ExecContext(ctx,
		`DELETE FROM event_type_advertisement WHERE namespace_id = ? AND heartbeat_ts < ?`,
		ns, zombieHorizon)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prune event type advertisements")
	}
	if n, err := pruned.RowsAffected(); err == nil {
		result.EventTypesPruned = int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit cleanup transaction")
	}
	return result, nil
}
