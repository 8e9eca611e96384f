package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchelor-project/batchelor/store"
)

// mockDriver is an in-memory store.Driver for testing dispatch handlers
// without a real sqlite/postgres connection.
type mockDriver struct {
	mu         sync.Mutex
	tasks      map[string]*store.Task
	eventTypes map[string]time.Time
}

func newMockDriver() *mockDriver {
	return &mockDriver{tasks: map[string]*store.Task{}, eventTypes: map[string]time.Time{}}
}

func (m *mockDriver) Migrate(context.Context) error { return nil }
func (m *mockDriver) Close() error                  { return nil }

func (m *mockDriver) SaveTask(_ context.Context, _ string, t *store.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.TaskID] = &cp
	return nil
}

func (m *mockDriver) LoadTaskByID(_ context.Context, _, taskID string) (*store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *mockDriver) LoadLatestByEventAndFingerprint(_ context.Context, _, eventType string, fingerprint uint32) (*store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *store.Task
	for _, t := range m.tasks {
		if t.EventType != eventType || t.Fingerprint != fingerprint {
			continue
		}
		if latest == nil || t.CreatedTS.After(latest.CreatedTS) {
			latest = t
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *mockDriver) LoadByEventAndState(_ context.Context, _, eventType string, state store.State) ([]*store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Task
	for _, t := range m.tasks {
		if t.EventType == eventType && t.State == state {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockDriver) LoadTasks(_ context.Context, _ string, filter store.TaskFilter) ([]*store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Task
	for _, t := range m.tasks {
		if filter.State != nil && t.State != *filter.State {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockDriver) Cleanup(context.Context, string, time.Duration, time.Duration, time.Time) (*store.CleanupResult, error) {
	return &store.CleanupResult{}, nil
}

func (m *mockDriver) UpdateEventTypes(_ context.Context, _ string, eventTypes []string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, et := range eventTypes {
		m.eventTypes[et] = now
	}
	return nil
}

func (m *mockDriver) LoadEventTypes(_ context.Context, _ string, zombieTTL time.Duration, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for et, ts := range m.eventTypes {
		if now.Sub(ts) <= zombieTTL {
			out = append(out, et)
		}
	}
	return out, nil
}

func execGrant(ns string) []RoleGrant    { return []RoleGrant{{Namespace: ns, Role: RoleExecute}} }
func workerGrant(ns string) []RoleGrant  { return []RoleGrant{{Namespace: ns, Role: RoleWorker}} }
func readonlyGrant(ns string) []RoleGrant {
	return []RoleGrant{{Namespace: ns, Role: RoleReadOnly}}
}

func TestRunTaskRejectsUnknownEventType(t *testing.T) {
	svc := NewService(newMockDriver(), time.Minute)
	resp, err := svc.RunTask(context.Background(), "ns", execGrant("ns"), RunRequest{EventType: "build"})
	require.NoError(t, err)
	assert.Empty(t, resp.TaskID)
	assert.Equal(t, "Event type is not available", resp.Message)
}

func TestRunTaskCreatesQueuedTask(t *testing.T) {
	driver := newMockDriver()
	svc := NewService(driver, time.Minute)
	ctx := context.Background()
	require.NoError(t, driver.UpdateEventTypes(ctx, "ns", []string{"build"}, time.Now()))

	resp, err := svc.RunTask(ctx, "ns", execGrant("ns"), RunRequest{EventType: "build"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.TaskID)

	task, err := driver.LoadTaskByID(ctx, "ns", resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, store.StateQueued, task.State)
}

func TestRunTaskDedupesByFingerprint(t *testing.T) {
	driver := newMockDriver()
	svc := NewService(driver, time.Minute)
	ctx := context.Background()
	require.NoError(t, driver.UpdateEventTypes(ctx, "ns", []string{"build"}, time.Now()))

	req := RunRequest{EventType: "build", Settings: []KV{{Key: "CLOUD", Value: "GCP"}}}
	first, err := svc.RunTask(ctx, "ns", execGrant("ns"), req)
	require.NoError(t, err)
	second, err := svc.RunTask(ctx, "ns", execGrant("ns"), req)
	require.NoError(t, err)
	assert.Equal(t, first.TaskID, second.TaskID)
}

func TestRunTaskRejectsInvalidCondition(t *testing.T) {
	svc := NewService(newMockDriver(), time.Minute)
	resp, err := svc.RunTask(context.Background(), "ns", execGrant("ns"), RunRequest{EventType: "build", Condition: "${X} &&"})
	require.NoError(t, err)
	assert.Empty(t, resp.TaskID)
	assert.NotEmpty(t, resp.Message)
}

func TestRunTaskRequiresExecuteRole(t *testing.T) {
	svc := NewService(newMockDriver(), time.Minute)
	_, err := svc.RunTask(context.Background(), "ns", readonlyGrant("ns"), RunRequest{EventType: "build"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFetchTaskAssignsHighestEffectivePriorityFirst(t *testing.T) {
	driver := newMockDriver()
	svc := NewService(driver, time.Minute)
	ctx := context.Background()

	low := &store.Task{TaskID: "low", NamespaceID: "ns", EventType: "build", State: store.StateQueued, CreatedTS: time.Now(), Priority: 0}
	high := &store.Task{TaskID: "high", NamespaceID: "ns", EventType: "build", State: store.StateQueued, CreatedTS: time.Now(), Priority: 10}
	require.NoError(t, driver.SaveTask(ctx, "ns", low))
	require.NoError(t, driver.SaveTask(ctx, "ns", high))

	resp, err := svc.FetchTask(ctx, "ns", workerGrant("ns"), FetchRequest{
		WorkerID:   "w1",
		EventTypes: []EventTypeEntry{{EventType: "build", Available: true}},
	})
	require.NoError(t, err)
	require.Len(t, resp.RunConfigurations, 1)
	assert.Equal(t, "high", resp.RunConfigurations[0].TaskID)
}

func TestFetchTaskAppliesReportedStatusAndClearsSignals(t *testing.T) {
	driver := newMockDriver()
	svc := NewService(driver, time.Minute)
	ctx := context.Background()

	running := &store.Task{
		TaskID: "t1", NamespaceID: "ns", EventType: "build",
		State: store.StateRunning, CreatedTS: time.Now(), StartTS: time.Now(),
		Signals: []string{"CANCEL"},
	}
	require.NoError(t, driver.SaveTask(ctx, "ns", running))

	resp, err := svc.FetchTask(ctx, "ns", workerGrant("ns"), FetchRequest{
		WorkerID: "w1",
		Tasks:    []TaskStatusEntry{{TaskID: "t1", State: string(store.StateRunning)}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Signals, 1)
	assert.Equal(t, "CANCEL", resp.Signals[0].Signal)

	t1, err := driver.LoadTaskByID(ctx, "ns", "t1")
	require.NoError(t, err)
	assert.Empty(t, t1.Signals)
}

func TestSendSignalToQueuedTaskTransitionsToSignaled(t *testing.T) {
	driver := newMockDriver()
	svc := NewService(driver, time.Minute)
	ctx := context.Background()
	require.NoError(t, driver.SaveTask(ctx, "ns", &store.Task{TaskID: "t1", State: store.StateQueued}))

	require.NoError(t, svc.SendSignal(ctx, "ns", execGrant("ns"), "t1", "CANCEL"))

	t1, err := driver.LoadTaskByID(ctx, "ns", "t1")
	require.NoError(t, err)
	assert.Equal(t, store.StateSignaled, t1.State)
}

func TestSendSignalToRunningTaskQueuesSignal(t *testing.T) {
	driver := newMockDriver()
	svc := NewService(driver, time.Minute)
	ctx := context.Background()
	require.NoError(t, driver.SaveTask(ctx, "ns", &store.Task{TaskID: "t1", State: store.StateRunning}))

	require.NoError(t, svc.SendSignal(ctx, "ns", execGrant("ns"), "t1", "CANCEL"))

	t1, err := driver.LoadTaskByID(ctx, "ns", "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"CANCEL"}, t1.Signals)
}

func TestGetTaskNotFoundReturnsNilNil(t *testing.T) {
	svc := NewService(newMockDriver(), time.Minute)
	status, err := svc.GetTask(context.Background(), "ns", readonlyGrant("ns"), "missing")
	require.NoError(t, err)
	assert.Nil(t, status)
}
