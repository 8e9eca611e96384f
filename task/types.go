// Package task defines the Factory/Task contracts every worker plugin
// implements (spec §4.6), plus the setting-merge algebra and ${VAR}
// substitution shared by every concrete factory (task/exec, task/kubectl).
package task

import (
	"sync"

	"github.com/batchelor-project/batchelor/store"
)

// RunConfiguration is what the worker loop hands to a Factory when assigning
// a newly fetched task.
type RunConfiguration struct {
	TaskID    string
	EventType string
	Settings  []store.KV
	Metrics   []store.KV
}

// Status is a Task's current view of itself, uploaded to the head on the
// next fetchTask cycle.
type Status struct {
	State      store.State
	ReturnCode int32
	Message    string
}

// Task is one running unit of work, owned by exactly one worker process.
type Task interface {
	Status() Status
	// SendSignal forwards a named signal. CANCEL is not special here; the
	// worker loop has already expanded it into interrupt+terminate+pipe
	// before calling SendSignal three times.
	SendSignal(name string) error
	// Resources reports what this task holds against the worker's budget,
	// for accounting once it terminates.
	Resources() map[string]int
}

// Factory constructs Tasks for one event type.
type Factory interface {
	EventType() string
	ResourcesRequired() map[string]int
	// IsBusy reports whether any resource this factory requires exceeds the
	// corresponding entry in available.
	IsBusy(available map[string]int) bool
	// CreateTask spawns a new Task. cv is notified (via cv.Broadcast, with mu
	// held) on every status transition so the worker loop's timed wait wakes
	// early.
	CreateTask(mu *sync.Mutex, cv *sync.Cond, effectiveMetrics map[string]string, cfg RunConfiguration) (Task, error)
}

// IsBusy is the shared implementation every Factory's IsBusy delegates to:
// true iff any required resource's quantity exceeds what's available.
func IsBusy(required, available map[string]int) bool {
	for name, need := range required {
		if available[name] < need {
			return true
		}
	}
	return false
}

// MetricsToMap flattens an ordered KV list into a map, the form every
// factory needs for substitution and condition evaluation.
func MetricsToMap(kvs []store.KV) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}
