package kubectl

import (
	"context"
	"encoding/json"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/batchelor-project/batchelor/store"
	"github.com/batchelor-project/batchelor/task"
)

// taskRunningState aliases store.StateRunning so this file reads the same as
// task/exec/task.go without importing store twice under different names.
const taskRunningState = store.StateRunning

// jobStatus is the subset of batch/v1 Job.status this factory decodes from
// `kubectl get job <id> -o json`.
type jobStatus struct {
	Status struct {
		Active    int32 `json:"active"`
		Succeeded int32 `json:"succeeded"`
		Failed    int32 `json:"failed"`
	} `json:"status"`
}

type kubectlTask struct {
	mu        *sync.Mutex
	cv        *sync.Cond
	cfg       Config
	taskID    string
	resources map[string]int
	status    task.Status
	stopPoll  chan struct{}
}

func signaledPlaceholder(taskID string, resources map[string]int, err error) task.Task {
	return &kubectlTask{
		taskID:    taskID,
		resources: resources,
		status:    task.Status{State: store.StateSignaled, Message: err.Error()},
	}
}

func (t *kubectlTask) pollLoop() {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopPoll:
			return
		case <-ticker.C:
			if t.pollOnce() {
				return
			}
		}
	}
}

// pollOnce returns true once the task has reached a terminal state.
func (t *kubectlTask) pollOnce() bool {
	status, err := t.getJob()
	if err != nil {
		// transient kubectl errors don't change state; the next poll retries.
		return false
	}

	var next task.Status
	switch {
	case status.Status.Succeeded > 0:
		next = task.Status{State: store.StateDone, ReturnCode: 0}
	case status.Status.Failed > 0 && status.Status.Active == 0:
		next = task.Status{State: store.StateDone, ReturnCode: 1}
	case status.Status.Failed > 0 && status.Status.Active > 0:
		next = task.Status{State: store.StateRunning, Message: "job has failed pods still retrying"}
	default:
		next = task.Status{State: store.StateRunning}
	}

	if t.hasWarningEvent() {
		_ = t.deleteJob()
		next = task.Status{State: store.StateZombie, Message: "job produced a warning event"}
	}

	t.mu.Lock()
	t.status = next
	if t.cv != nil {
		t.cv.Broadcast()
	}
	t.mu.Unlock()

	return next.State != store.StateRunning
}

func (t *kubectlTask) getJob() (*jobStatus, error) {
	args := t.kubectlArgs("get", "job", t.taskID, "-o", "json")
	out, err := exec.CommandContext(context.Background(), t.cfg.KubectlBin, args...).Output()
	if err != nil {
		return nil, errors.Wrap(err, "kubectl get job failed")
	}
	var js jobStatus
	if err := json.Unmarshal(out, &js); err != nil {
		return nil, errors.Wrap(err, "failed to decode job status")
	}
	return &js, nil
}

func (t *kubectlTask) hasWarningEvent() bool {
	args := t.kubectlArgs("get", "events",
		"--field-selector", "type=Warning,involvedObject.name="+t.taskID,
		"-o", "json")
	out, err := exec.CommandContext(context.Background(), t.cfg.KubectlBin, args...).Output()
	if err != nil {
		return false
	}
	var list struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(out, &list); err != nil {
		return false
	}
	return len(list.Items) > 0
}

func (t *kubectlTask) deleteJob() error {
	args := t.kubectlArgs("delete", "job", t.taskID, "--ignore-not-found")
	return exec.CommandContext(context.Background(), t.cfg.KubectlBin, args...).Run()
}

func (t *kubectlTask) kubectlArgs(base ...string) []string {
	args := append([]string{}, base...)
	if t.cfg.Kubeconfig != "" {
		args = append(args, "--kubeconfig", t.cfg.Kubeconfig)
	}
	if t.cfg.Namespace != "" {
		args = append(args, "-n", t.cfg.Namespace)
	}
	return args
}

func (t *kubectlTask) Status() task.Status {
	if t.mu == nil {
		return t.status
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *kubectlTask) Resources() map[string]int {
	return t.resources
}

// SendSignal: CANCEL (expanded by the worker loop into
// interrupt/terminate/pipe) maps to deleting the Job; the other two calls
// are no-ops since a Job has no equivalent of a mid-run OS signal.
func (t *kubectlTask) SendSignal(name string) error {
	if name != "interrupt" {
		return nil
	}
	if t.stopPoll != nil {
		close(t.stopPoll)
		t.stopPoll = nil
	}
	return t.deleteJob()
}
