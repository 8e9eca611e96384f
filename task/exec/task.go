package exec

import (
	"os"
	osexec "os/exec"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"github.com/batchelor-project/batchelor/store"
	"github.com/batchelor-project/batchelor/task"
)

// runningTask wraps one spawned child process.
type runningTask struct {
	mu        *sync.Mutex
	cv        *sync.Cond
	cmd       *osexec.Cmd
	resources map[string]int
	taskID    string

	status task.Status
}

func newRunningTask(mu *sync.Mutex, cv *sync.Cond, cmdName string, args []string, env map[string]string, cwd string, stdoutFile, stderrFile string, resources map[string]int, taskID string) (task.Task, error) {
	cmd := osexec.Command(cmdName, args...)
	cmd.Dir = cwd
	cmd.Env = flattenEnv(env)

	if stdoutFile != "" {
		f, err := os.Create(stdoutFile)
		if err != nil {
			return signaledPlaceholder(taskID, resources, errors.Wrap(err, "failed to open stdout file")), nil
		}
		cmd.Stdout = f
	}
	if stderrFile != "" {
		f, err := os.Create(stderrFile)
		if err != nil {
			return signaledPlaceholder(taskID, resources, errors.Wrap(err, "failed to open stderr file")), nil
		}
		cmd.Stderr = f
	}

	rt := &runningTask{
		mu:        mu,
		cv:        cv,
		cmd:       cmd,
		resources: resources,
		taskID:    taskID,
		status:    task.Status{State: store.StateRunning},
	}

	if err := cmd.Start(); err != nil {
		return signaledPlaceholder(taskID, resources, errors.Wrap(err, "failed to start process")), nil
	}

	go rt.wait()
	return rt, nil
}

// signaledPlaceholder synthesizes an already-terminal Task for a factory
// failure: reported signaled on the next fetch and then dropped (spec §4.5
// step 6, §7 "task creation failure").
func signaledPlaceholder(taskID string, resources map[string]int, err error) task.Task {
	return &runningTask{
		taskID:    taskID,
		resources: resources,
		status:    task.Status{State: store.StateSignaled, Message: err.Error()},
	}
}

func (t *runningTask) wait() {
	err := t.cmd.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		if exitErr, ok := err.(*osexec.ExitError); ok {
			t.status = task.Status{State: store.StateDone, ReturnCode: int32(exitErr.ExitCode())}
		} else {
			t.status = task.Status{State: store.StateSignaled, Message: err.Error()}
		}
	} else {
		t.status = task.Status{State: store.StateDone, ReturnCode: 0}
	}
	if t.cv != nil {
		t.cv.Broadcast()
	}
}

func (t *runningTask) Status() task.Status {
	if t.mu == nil {
		return t.status
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *runningTask) Resources() map[string]int {
	return t.resources
}

// SendSignal maps a signal name to an OS signal; CANCEL is expanded by the
// worker loop into three successive calls (interrupt, terminate, pipe), not
// handled specially here.
func (t *runningTask) SendSignal(name string) error {
	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	sig, ok := signalByName[name]
	if !ok {
		return errors.Errorf("unknown signal %q", name)
	}
	return t.cmd.Process.Signal(sig)
}

var signalByName = map[string]os.Signal{
	"interrupt": syscall.SIGINT,
	"terminate": syscall.SIGTERM,
	"pipe":      syscall.SIGPIPE,
	"kill":      syscall.SIGKILL,
}

func flattenEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
