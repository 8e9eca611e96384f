package dispatch

import "time"

// KV mirrors store.KV with wire-friendly tags; kept distinct from store.KV so
// transport/httpapi never needs to reach into the store package's struct tags.
type KV struct {
	Key   string `json:"key" xml:"key"`
	Value string `json:"value" xml:"value"`
}

// RunConfiguration is what a worker receives for a newly assigned task.
type RunConfiguration struct {
	TaskID    string `json:"taskId" xml:"taskId"`
	EventType string `json:"eventType" xml:"eventType"`
	Settings  []KV   `json:"settings" xml:"settings"`
	Metrics   []KV   `json:"metrics" xml:"metrics"`
}

// TaskStatusHead is the read-projection returned by getTask/getTasks.
type TaskStatusHead struct {
	RunConfiguration RunConfiguration `json:"runConfiguration" xml:"runConfiguration"`
	State            string           `json:"state" xml:"state"`
	Condition        string           `json:"condition" xml:"condition"`
	ReturnCode       int32            `json:"returnCode" xml:"returnCode"`
	Message          string           `json:"message" xml:"message"`
	TsCreated        time.Time        `json:"tsCreated" xml:"tsCreated"`
	TsRunning        *time.Time       `json:"tsRunning,omitempty" xml:"tsRunning,omitempty"`
	TsFinished       *time.Time       `json:"tsFinished,omitempty" xml:"tsFinished,omitempty"`
	TsLastHeartBeat  *time.Time       `json:"tsLastHeartBeat,omitempty" xml:"tsLastHeartBeat,omitempty"`
}

// EventTypeEntry is one advertised event type plus its current availability,
// as reported by a worker on every fetchTask call.
type EventTypeEntry struct {
	EventType string `json:"eventType" xml:"eventType"`
	Available bool   `json:"available" xml:"available"`
}

// TaskStatusEntry is the worker's report on one task it believes it owns.
type TaskStatusEntry struct {
	TaskID     string `json:"taskId" xml:"taskId"`
	State      string `json:"state" xml:"state"`
	ReturnCode int32  `json:"returnCode" xml:"returnCode"`
	Message    string `json:"message" xml:"message"`
}

// SignalEntry is one pending signal the head hands back to a worker.
type SignalEntry struct {
	TaskID string `json:"taskId" xml:"taskId"`
	Signal string `json:"signal" xml:"signal"`
}

// FetchRequest is the worker's per-cycle heartbeat + assignment request.
type FetchRequest struct {
	WorkerID   string            `json:"workerId" xml:"workerId"`
	EventTypes []EventTypeEntry  `json:"eventTypes" xml:"eventTypes"`
	Metrics    []KV              `json:"metrics" xml:"metrics"`
	Tasks      []TaskStatusEntry `json:"tasks" xml:"tasks"`
}

// FetchResponse carries pending signals and at most one new assignment per
// call (§4.3 step 4).
type FetchResponse struct {
	Signals           []SignalEntry      `json:"signals" xml:"signals"`
	RunConfigurations []RunConfiguration `json:"runConfigurations" xml:"runConfigurations"`
}

// RunRequest is the control-side task submission.
type RunRequest struct {
	EventType string `json:"eventType" xml:"eventType"`
	Priority  int32  `json:"priority" xml:"priority"`
	Settings  []KV   `json:"settings" xml:"settings"`
	Metrics   []KV   `json:"metrics" xml:"metrics"`
	Condition string `json:"condition" xml:"condition"`
}

// RunResponse reports the new/deduped task id, or an empty TaskID with a
// Message describing why none was created.
type RunResponse struct {
	TaskID  string `json:"taskId" xml:"taskId"`
	Message string `json:"message" xml:"message"`
}
