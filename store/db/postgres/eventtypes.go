package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

func (d *DB) UpdateEventTypes(ctx context.Context, ns string, eventTypes []string, now time.Time) error {
	if len(eventTypes) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO event_type_advertisement (namespace_id, event_type, heartbeat_ts)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace_id, event_type) DO UPDATE SET heartbeat_ts = EXCLUDED.heartbeat_ts
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare statement")
	}
	defer stmt.Close()

	for _, eventType := range eventTypes {
		if _, err := stmt.ExecContext(ctx, ns, eventType, now); err != nil {
			return errors.Wrap(err, "failed to upsert event type advertisement")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (d *DB) LoadEventTypes(ctx context.Context, ns string, zombieTTL time.Duration, now time.Time) ([]string, error) {
	horizon := now.Add(-zombieTTL)
	rows, err := d.db.QueryContext(ctx,
		`SELECT DISTINCT event_type FROM event_type_advertisement
			WHERE namespace_id = $1 AND heartbeat_ts >= $2 ORDER BY event_type`,
		ns, horizon)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load event types")
	}
	defer rows.Close()

	var eventTypes []string
	for rows.Next() {
		var eventType string
		if err := rows.Scan(&eventType); err != nil {
			return nil, errors.Wrap(err, "failed to scan event type")
		}
		eventTypes = append(eventTypes, eventType)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return eventTypes, nil
}
