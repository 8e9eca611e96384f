package worker

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/batchelor-project/batchelor/dispatch"
	"github.com/batchelor-project/batchelor/store"
	"github.com/batchelor-project/batchelor/task"
)

func (l *Loop) runCycle(ctx context.Context) {
	l.deliverPendingShutdownSignals()

	req := l.buildFetchRequest()
	resp, err := l.client.FetchTask(ctx, l.cfg.NamespaceID, req)
	if err != nil {
		slog.Warn("fetchTask failed, will retry next cycle", "workerId", l.cfg.WorkerID, "error", err)
		return
	}

	didWork := len(req.Tasks) > 0 || len(resp.Signals) > 0 || len(resp.RunConfigurations) > 0

	l.forwardSignals(resp.Signals)
	l.reapTerminalTasks()
	l.createAssignedTasks(ctx, resp.RunConfigurations)

	if didWork || l.runningTaskCount() > 0 {
		l.resetIdleDeadline()
	}
}

// deliverPendingShutdownSignals implements step 1: deliver interrupt/
// terminate/pipe to every running task for each unprocessed shutdown signal,
// escalating to kill once the configured maximum is exceeded.
func (l *Loop) deliverPendingShutdownSignals() {
	l.mu.Lock()
	pending := l.signalsReceived > l.signalsProcessed
	escalate := l.signalsReceived > l.cfg.MaxSignals
	if pending {
		l.signalsProcessed = l.signalsReceived
	}
	tasks := make([]task.Task, 0, len(l.runningTasks))
	for _, t := range l.runningTasks {
		tasks = append(tasks, t)
	}
	l.mu.Unlock()

	if !pending {
		return
	}

	names := []string{"interrupt", "terminate", "pipe"}
	if escalate {
		names = []string{"kill"}
	}
	for _, t := range tasks {
		for _, name := range names {
			if err := t.SendSignal(name); err != nil {
				slog.Warn("failed to deliver shutdown signal", "signal", name, "error", err)
			}
		}
	}
}

// buildFetchRequest implements step 2: status uploads, metrics overlaid with
// current resource availability, and event-type advertisements (empty once
// the availability timeout has fired).
func (l *Loop) buildFetchRequest() dispatch.FetchRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	req := dispatch.FetchRequest{WorkerID: l.cfg.WorkerID}

	for taskID, t := range l.runningTasks {
		status := t.Status()
		req.Tasks = append(req.Tasks, dispatch.TaskStatusEntry{
			TaskID:     taskID,
			State:      string(status.State),
			ReturnCode: status.ReturnCode,
			Message:    status.Message,
		})
	}

	available := l.availableResourcesLocked()

	metrics := make([]dispatch.KV, 0, len(l.cfg.Metrics)+len(available)+1)
	for k, v := range l.cfg.Metrics {
		metrics = append(metrics, dispatch.KV{Key: k, Value: v})
	}
	metrics = append(metrics, dispatch.KV{Key: "TASKS_RUNNING", Value: strconv.Itoa(len(l.runningTasks))})
	for name, qty := range available {
		metrics = append(metrics, dispatch.KV{Key: name, Value: strconv.Itoa(qty)})
	}
	req.Metrics = metrics

	now := l.now()
	availabilityExpired := !l.availableDeadline.IsZero() && !now.Before(l.availableDeadline)
	if !availabilityExpired {
		for eventType, factory := range l.cfg.Factories {
			req.EventTypes = append(req.EventTypes, dispatch.EventTypeEntry{
				EventType: eventType,
				Available: !factory.IsBusy(available),
			})
		}
	}

	return req
}

// availableResourcesLocked computes budget minus what running tasks hold.
// Callers must hold l.mu.
func (l *Loop) availableResourcesLocked() map[string]int {
	available := make(map[string]int, len(l.cfg.ResourceBudget))
	for name, qty := range l.cfg.ResourceBudget {
		available[name] = qty
	}
	for _, t := range l.runningTasks {
		for name, qty := range t.Resources() {
			available[name] -= qty
		}
	}
	return available
}

// forwardSignals implements step 4: CANCEL fans out to interrupt, terminate,
// and pipe; any other signal name passes through unchanged.
func (l *Loop) forwardSignals(signals []dispatch.SignalEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, sig := range signals {
		t, ok := l.runningTasks[sig.TaskID]
		if !ok {
			continue
		}
		names := []string{sig.Signal}
		if sig.Signal == "CANCEL" {
			names = []string{"interrupt", "terminate", "pipe"}
		}
		for _, name := range names {
			if err := t.SendSignal(name); err != nil {
				slog.Warn("failed to forward signal", "taskId", sig.TaskID, "signal", name, "error", err)
			}
		}
	}
}

// reapTerminalTasks implements step 5: drop any running task whose status
// was already uploaded as terminal in this cycle's fetch.
func (l *Loop) reapTerminalTasks() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for taskID, t := range l.runningTasks {
		if t.Status().State.IsTerminal() {
			delete(l.runningTasks, taskID)
		}
	}
}

// createAssignedTasks implements step 6: reject unknown event types or
// duplicate task ids; otherwise hand the assignment to its factory. Launches
// are bounded by l.launchSem so a cycle with several assignments never spins
// up more than LaunchConcurrency factories at once.
func (l *Loop) createAssignedTasks(ctx context.Context, configs []dispatch.RunConfiguration) {
	var wg sync.WaitGroup
	for _, rc := range configs {
		l.mu.Lock()
		factory, ok := l.cfg.Factories[rc.EventType]
		_, duplicate := l.runningTasks[rc.TaskID]
		l.mu.Unlock()

		if !ok {
			slog.Warn("rejecting assignment: unknown event type", "eventType", rc.EventType, "taskId", rc.TaskID)
			continue
		}
		if duplicate {
			slog.Warn("rejecting assignment: task id already running locally", "taskId", rc.TaskID)
			continue
		}

		if err := l.launchSem.Acquire(ctx, 1); err != nil {
			slog.Warn("launch semaphore acquire canceled", "taskId", rc.TaskID, "error", err)
			continue
		}

		wg.Add(1)
		go func(rc dispatch.RunConfiguration, factory task.Factory) {
			defer wg.Done()
			defer l.launchSem.Release(1)

			runConfig := task.RunConfiguration{
				TaskID:    rc.TaskID,
				EventType: rc.EventType,
				Settings:  toStoreKVs(rc.Settings),
				Metrics:   toStoreKVs(rc.Metrics),
			}
			effectiveMetrics := task.MetricsToMap(runConfig.Metrics)

			newTask, err := factory.CreateTask(&l.mu, l.cv, effectiveMetrics, runConfig)
			if err != nil {
				slog.Error("factory failed to create task", "taskId", rc.TaskID, "error", err)
				newTask = &signaledTask{message: err.Error()}
			}

			l.mu.Lock()
			l.runningTasks[rc.TaskID] = newTask
			l.mu.Unlock()
		}(rc, factory)
	}
	wg.Wait()
}

func (l *Loop) runningTaskCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.runningTasks)
}

func (l *Loop) resetIdleDeadline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.idleDeadline = deadlineFrom(l.now(), l.cfg.IdleTimeout)
}

func toStoreKVs(kvs []dispatch.KV) []store.KV {
	out := make([]store.KV, len(kvs))
	for i, kv := range kvs {
		out[i] = store.KV{Key: kv.Key, Value: kv.Value}
	}
	return out
}

// signaledTask is the worker-side fallback when a factory itself errors
// (rather than returning its own signaled placeholder); reported once and
// then reaped.
type signaledTask struct {
	message string
}

func (t *signaledTask) Status() task.Status {
	return task.Status{State: store.StateSignaled, Message: t.message}
}

func (t *signaledTask) SendSignal(string) error { return nil }

func (t *signaledTask) Resources() map[string]int { return nil }
