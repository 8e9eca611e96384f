package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchelor-project/batchelor/dispatch"
	"github.com/batchelor-project/batchelor/store"
	"github.com/batchelor-project/batchelor/task"
)

type stubClient struct {
	mu    sync.Mutex
	resps []dispatch.FetchResponse
	reqs  []dispatch.FetchRequest
	err   error
}

func (c *stubClient) FetchTask(_ context.Context, _ string, req dispatch.FetchRequest) (dispatch.FetchResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return dispatch.FetchResponse{}, c.err
	}
	if len(c.resps) == 0 {
		return dispatch.FetchResponse{}, nil
	}
	resp := c.resps[0]
	c.resps = c.resps[1:]
	return resp, nil
}

type fakeTask struct {
	mu     sync.Mutex
	status task.Status
	sent   []string
}

func (t *fakeTask) Status() task.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *fakeTask) SendSignal(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, name)
	return nil
}

func (t *fakeTask) Resources() map[string]int { return map[string]int{"cpu": 1} }

type fakeFactory struct {
	eventType string
	resources map[string]int
	created   []task.RunConfiguration
}

func (f *fakeFactory) EventType() string                  { return f.eventType }
func (f *fakeFactory) ResourcesRequired() map[string]int  { return f.resources }
func (f *fakeFactory) IsBusy(available map[string]int) bool {
	return task.IsBusy(f.resources, available)
}
func (f *fakeFactory) CreateTask(_ *sync.Mutex, _ *sync.Cond, _ map[string]string, cfg task.RunConfiguration) (task.Task, error) {
	f.created = append(f.created, cfg)
	return &fakeTask{status: task.Status{State: store.StateRunning}}, nil
}

func TestBuildFetchRequestReportsRunningTaskStatuses(t *testing.T) {
	l := New(Config{WorkerID: "w1", Factories: map[string]task.Factory{}}, &stubClient{})
	l.runningTasks["t1"] = &fakeTask{status: task.Status{State: store.StateRunning}}

	req := l.buildFetchRequest()
	require.Len(t, req.Tasks, 1)
	assert.Equal(t, "t1", req.Tasks[0].TaskID)
}

func TestBuildFetchRequestMarksBusyFactoryUnavailable(t *testing.T) {
	factory := &fakeFactory{eventType: "build", resources: map[string]int{"cpu": 1}}
	l := New(Config{
		WorkerID:       "w1",
		Factories:      map[string]task.Factory{"build": factory},
		ResourceBudget: map[string]int{"cpu": 1},
	}, &stubClient{})
	l.runningTasks["t1"] = &fakeTask{status: task.Status{State: store.StateRunning}}

	req := l.buildFetchRequest()
	require.Len(t, req.EventTypes, 1)
	assert.False(t, req.EventTypes[0].Available)
}

func TestReapTerminalTasksRemovesDoneEntries(t *testing.T) {
	l := New(Config{Factories: map[string]task.Factory{}}, &stubClient{})
	l.runningTasks["done"] = &fakeTask{status: task.Status{State: store.StateDone}}
	l.runningTasks["running"] = &fakeTask{status: task.Status{State: store.StateRunning}}

	l.reapTerminalTasks()

	assert.NotContains(t, l.runningTasks, "done")
	assert.Contains(t, l.runningTasks, "running")
}

func TestCreateAssignedTasksRejectsUnknownEventType(t *testing.T) {
	l := New(Config{Factories: map[string]task.Factory{}}, &stubClient{})
	l.createAssignedTasks(context.Background(), []dispatch.RunConfiguration{{TaskID: "t1", EventType: "missing"}})
	assert.Empty(t, l.runningTasks)
}

func TestCreateAssignedTasksRejectsDuplicateTaskID(t *testing.T) {
	factory := &fakeFactory{eventType: "build"}
	l := New(Config{Factories: map[string]task.Factory{"build": factory}}, &stubClient{})
	l.runningTasks["t1"] = &fakeTask{status: task.Status{State: store.StateRunning}}

	l.createAssignedTasks(context.Background(), []dispatch.RunConfiguration{{TaskID: "t1", EventType: "build"}})
	assert.Empty(t, factory.created)
}

func TestCreateAssignedTasksCallsFactory(t *testing.T) {
	factory := &fakeFactory{eventType: "build"}
	l := New(Config{Factories: map[string]task.Factory{"build": factory}}, &stubClient{})

	l.createAssignedTasks(context.Background(), []dispatch.RunConfiguration{{TaskID: "t1", EventType: "build"}})
	assert.Len(t, factory.created, 1)
	assert.Contains(t, l.runningTasks, "t1")
}

func TestForwardSignalsExpandsCancel(t *testing.T) {
	l := New(Config{Factories: map[string]task.Factory{}}, &stubClient{})
	ft := &fakeTask{status: task.Status{State: store.StateRunning}}
	l.runningTasks["t1"] = ft

	l.forwardSignals([]dispatch.SignalEntry{{TaskID: "t1", Signal: "CANCEL"}})
	assert.Equal(t, []string{"interrupt", "terminate", "pipe"}, ft.sent)
}

func TestRunCycleCreatesNoTaskOnFetchError(t *testing.T) {
	l := New(Config{Factories: map[string]task.Factory{}}, &stubClient{err: assert.AnError})
	l.runCycle(context.Background())
	assert.Empty(t, l.runningTasks)
}

func TestShouldExitWhenShutdownSeenAndNoRunningTasks(t *testing.T) {
	l := New(Config{Factories: map[string]task.Factory{}}, &stubClient{})
	l.RequestShutdown()
	assert.True(t, l.shouldExit())
}

func TestShouldNotExitWhileTasksStillRunning(t *testing.T) {
	l := New(Config{Factories: map[string]task.Factory{}}, &stubClient{})
	l.runningTasks["t1"] = &fakeTask{status: task.Status{State: store.StateRunning}}
	l.RequestShutdown()
	assert.False(t, l.shouldExit())
}

func TestShouldExitOnIdleTimeout(t *testing.T) {
	idle := time.Millisecond
	l := New(Config{Factories: map[string]task.Factory{}, IdleTimeout: &idle}, &stubClient{})
	time.Sleep(5 * time.Millisecond)
	assert.True(t, l.shouldExit())
}
