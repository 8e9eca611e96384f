// Package store holds the task/event-type data model (spec §3) and the
// Driver interface that concrete backends (store/db/sqlite, store/db/postgres)
// implement, grounded on the teacher's store.Driver / *Store split (see
// DESIGN.md).
package store

import (
	"time"

	"github.com/google/uuid"
)

// State is one of the five points in the task state machine (spec §3).
type State string

const (
	StateQueued   State = "queued"
	StateRunning  State = "running"
	StateDone     State = "done"
	StateSignaled State = "signaled"
	StateZombie   State = "zombie"
)

// IsTerminal reports whether s is one of the terminal states that the head
// never mutates except via the cleanup sweep (invariant I... in spec §3).
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateSignaled || s == StateZombie
}

// KV is an ordered (key, value) pair, used for both settings and metrics so
// that fingerprinting (§3 I6) can depend on submission order.
type KV struct {
	Key   string `json:"key" xml:"key"`
	Value string `json:"value" xml:"value"`
}

// Task is the full persisted record for one unit of work (spec §3).
type Task struct {
	TaskID      string
	NamespaceID string
	EventType   string
	Fingerprint uint32
	Priority    int32
	PriorityTS  time.Time
	Settings    []KV
	Metrics     []KV
	Condition   string
	Signals     []string
	CreatedTS   time.Time
	StartTS     time.Time
	EndTS       time.Time
	HeartbeatTS time.Time
	State       State
	ReturnCode  int32
	Message     string
}

// NewTaskID returns a fresh globally unique task id.
func NewTaskID() string {
	return uuid.NewString()
}

// EffectivePriority computes the key used to order the candidate queue at
// assignment time (spec §4.2): the stored priority plus one point per minute
// since the priority baseline was last reset, capped at +24.
func (t *Task) EffectivePriority(now time.Time) int32 {
	return EffectivePriority(t.Priority, t.PriorityTS, now)
}

// EffectivePriority is the free-function form, usable by stores that load
// priority/priorityTS without materializing a full Task (e.g. a SQL ORDER BY
// precomputation, or a unit test).
func EffectivePriority(priority int32, priorityTS, now time.Time) int32 {
	minutes := int32(now.Sub(priorityTS) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	if minutes > 24 {
		minutes = 24
	}
	return priority + minutes
}
