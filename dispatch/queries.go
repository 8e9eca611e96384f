package dispatch

import (
	"context"
	"sort"

	"github.com/batchelor-project/batchelor/store"
)

// GetTask is a read-only projection of the store (§4.3). A nil, nil result
// means "not found"; callers (transport/httpapi) turn that into a 404.
func (s *Service) GetTask(ctx context.Context, ns string, grants []RoleGrant, taskID string) (*TaskStatusHead, error) {
	if err := requireRole(grants, ns, RoleReadOnly, RoleExecute); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.driver.LoadTaskByID(ctx, ns, taskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	status := toTaskStatusHead(t)
	return &status, nil
}

// GetTasks lists tasks in the namespace, optionally filtered by state and
// creation-time bounds (the `state`, `nafter`, `nbefore` query parameters).
func (s *Service) GetTasks(ctx context.Context, ns string, grants []RoleGrant, filter store.TaskFilter) ([]TaskStatusHead, error) {
	if err := requireRole(grants, ns, RoleReadOnly, RoleExecute); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.driver.LoadTasks(ctx, ns, filter)
	if err != nil {
		return nil, err
	}
	statuses := make([]TaskStatusHead, 0, len(tasks))
	for _, t := range tasks {
		statuses = append(statuses, toTaskStatusHead(t))
	}
	return statuses, nil
}

// GetEventTypes lists event types with a live advertisement in the namespace.
func (s *Service) GetEventTypes(ctx context.Context, ns string, grants []RoleGrant) ([]string, error) {
	if err := requireRole(grants, ns, RoleReadOnly, RoleExecute); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventTypes, err := s.driver.LoadEventTypes(ctx, ns, s.zombieTTL, s.nowFunc())
	if err != nil {
		return nil, err
	}
	sort.Strings(eventTypes)
	return eventTypes, nil
}

// Alive requires no role grant and always succeeds.
func (s *Service) Alive() {}

func toTaskStatusHead(t *store.Task) TaskStatusHead {
	status := TaskStatusHead{
		RunConfiguration: RunConfiguration{
			TaskID:    t.TaskID,
			EventType: t.EventType,
			Settings:  toWireKVs(t.Settings),
			Metrics:   toWireKVs(t.Metrics),
		},
		State:      string(t.State),
		Condition:  t.Condition,
		ReturnCode: t.ReturnCode,
		Message:    t.Message,
		TsCreated:  t.CreatedTS,
	}
	if !t.StartTS.IsZero() {
		status.TsRunning = &t.StartTS
	}
	if !t.EndTS.IsZero() {
		status.TsFinished = &t.EndTS
	}
	if !t.HeartbeatTS.IsZero() {
		status.TsLastHeartBeat = &t.HeartbeatTS
	}
	return status
}

func toStoreKVs(kvs []KV) []store.KV {
	out := make([]store.KV, len(kvs))
	for i, kv := range kvs {
		out[i] = store.KV{Key: kv.Key, Value: kv.Value}
	}
	return out
}

func toWireKVs(kvs []store.KV) []KV {
	out := make([]KV, len(kvs))
	for i, kv := range kvs {
		out[i] = KV{Key: kv.Key, Value: kv.Value}
	}
	return out
}

func toMetricsMap(kvs []KV) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func metricsMapToKVs(m map[string]string) []store.KV {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kvs := make([]store.KV, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, store.KV{Key: k, Value: m[k]})
	}
	return kvs
}
