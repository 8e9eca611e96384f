package store

import (
	"context"
	"time"
)

// TaskFilter narrows LoadTasks for control/UI views (spec §4.2 loadTasks).
type TaskFilter struct {
	State     *State
	NotAfter  *time.Time
	NotBefore *time.Time
}

// TaskStore is the persistence surface for tasks (spec §4.2 operation table).
type TaskStore interface {
	// SaveTask inserts a new task or updates an existing one's mutable
	// fields; an update writes PriorityTS as t carries it and does not stamp
	// the current time itself.
	SaveTask(ctx context.Context, ns string, t *Task) error
	LoadTaskByID(ctx context.Context, ns, taskID string) (*Task, error)
	// LoadLatestByEventAndFingerprint returns the most recently created task
	// with that (eventType, fingerprint), or nil if none exists.
	LoadLatestByEventAndFingerprint(ctx context.Context, ns, eventType string, fingerprint uint32) (*Task, error)
	// LoadByEventAndState returns the set eligible for assignment.
	LoadByEventAndState(ctx context.Context, ns, eventType string, state State) ([]*Task, error)
	LoadTasks(ctx context.Context, ns string, filter TaskFilter) ([]*Task, error)
	// Cleanup promotes stale tasks to zombie and deletes tasks/advertisements
	// past the cleanup horizon (spec §4.2/§4.4).
	Cleanup(ctx context.Context, ns string, zombieTTL, deleteTTL time.Duration, now time.Time) (*CleanupResult, error)
}

// CleanupResult reports what one sweep pass did, for metrics/log lines.
type CleanupResult struct {
	Deleted          int
	PromotedToZombie int
	EventTypesPruned int
}

// EventTypeStore is the persistence surface for event-type advertisements.
type EventTypeStore interface {
	// UpdateEventTypes upserts each (ns, eventType) pair with HeartbeatTS=now.
	UpdateEventTypes(ctx context.Context, ns string, eventTypes []string, now time.Time) error
	// LoadEventTypes returns advertised event types still within the zombie TTL.
	LoadEventTypes(ctx context.Context, ns string, zombieTTL time.Duration, now time.Time) ([]string, error)
}

// Driver is the full backend contract; store/db/sqlite and store/db/postgres
// each provide one.
type Driver interface {
	TaskStore
	EventTypeStore
	Migrate(ctx context.Context) error
	Close() error
}
