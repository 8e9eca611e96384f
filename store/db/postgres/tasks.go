package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/batchelor-project/batchelor/store"
)

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

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
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (task_id) DO UPDATE SET
			priority = EXCLUDED.priority,
			priority_ts = EXCLUDED.priority_ts,
			condition = EXCLUDED.condition,
			signals = EXCLUDED.signals,
			start_ts = EXCLUDED.start_ts,
			end_ts = EXCLUDED.end_ts,
			heartbeat_ts = EXCLUDED.heartbeat_ts,
			state = EXCLUDED.state,
			return_code = EXCLUDED.return_code,
			message = EXCLUDED.message
	`
	_, err = d.db.ExecContext(ctx, stmt,
		t.TaskID, ns, t.EventType, t.Fingerprint, t.Priority, t.PriorityTS,
		settings, metrics, t.Condition, pq.Array(t.Signals), t.CreatedTS,
		nullTime(t.StartTS), nullTime(t.EndTS), nullTime(t.HeartbeatTS),
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
		t                                   store.Task
		state                               string
		settings, metrics                  []byte
		signals                            []string
		startTS, endTS, heartbeatTS         sql.NullTime
	)
	err := row.Scan(
		&t.TaskID, &t.NamespaceID, &t.EventType, &t.Fingerprint, &t.Priority, &t.PriorityTS,
		&settings, &metrics, &t.Condition, pq.Array(&signals), &t.CreatedTS, &startTS, &endTS,
		&heartbeatTS, &state, &t.ReturnCode, &t.Message,
	)
	if err != nil {
		return nil, err
	}
	t.State = store.State(state)
	t.Signals = signals
	if startTS.Valid {
		t.StartTS = startTS.Time
	}
	if endTS.Valid {
		t.EndTS = endTS.Time
	}
	if heartbeatTS.Valid {
		t.HeartbeatTS = heartbeatTS.Time
	}
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
		`SELECT `+taskColumns+` FROM task WHERE namespace_id = $1 AND task_id = $2`, ns, taskID)
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
			WHERE namespace_id = $1 AND event_type = $2 AND fingerprint = $3
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
			WHERE namespace_id = $1 AND event_type = $2 AND state = $3
			ORDER BY priority DESC, priority_ts ASC`,
		ns, eventType, string(state))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tasks by event and state")
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func (d *DB) LoadTasks(ctx context.Context, ns string, filter store.TaskFilter) ([]*store.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task WHERE namespace_id = $1`
	args := []any{ns}
	n := 1

	if filter.State != nil {
		n++
		query += " AND state = $" + strconv.Itoa(n)
		args = append(args, string(*filter.State))
	}
	if filter.NotBefore != nil {
		n++
		query += " AND created_ts >= $" + strconv.Itoa(n)
		args = append(args, *filter.NotBefore)
	}
	if filter.NotAfter != nil {
		n++
		query += " AND created_ts <= $" + strconv.Itoa(n)
		args = append(args, *filter.NotAfter)
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

	zombieHorizon := now.Add(-zombieTTL)
	promoted, err := tx.ExecContext(ctx,
		`UPDATE task SET state = $1, message = 'heartbeat expired'
			WHERE namespace_id = $2 AND state IN ($3, $4) AND heartbeat_ts IS NOT NULL AND heartbeat_ts < $5`,
		string(store.StateZombie), ns, string(store.StateQueued), string(store.StateRunning), zombieHorizon)
	if err != nil {
		return nil, errors.Wrap(err, "failed to promote zombies")
	}
	if n, err := promoted.RowsAffected(); err == nil {
		result.PromotedToZombie = int(n)
	}

	deleteHorizon := now.Add(-deleteTTL)
	deleted, err := tx.ExecContext(ctx,
		`DELETE FROM task WHERE namespace_id = $1 AND state IN ($2, $3, $4) AND heartbeat_ts IS NOT NULL AND heartbeat_ts < $5`,
		ns, string(store.StateDone), string(store.StateSignaled), string(store.StateZombie), deleteHorizon)
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete expired tasks")
	}
	if n, err := deleted.RowsAffected(); err == nil {
		result.Deleted = int(n)
	}

	pruned, err := tx.ExecContext(ctx,
		`DELETE FROM event_type_advertisement WHERE namespace_id = $1 AND heartbeat_ts < $2`,
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
