// Package exec implements the task.Factory/task.Task contract by spawning a
// local child process per task, grounded on the merge-and-substitute
// algebra in package task. Process control itself has no idiomatic
// third-party replacement in the examples pack; os/exec is the standard
// justified choice (see DESIGN.md).
package exec

import (
	"strings"
	"sync"

	"github.com/batchelor-project/batchelor/task"
)

// Config is the factory's static, per-event-type configuration.
type Config struct {
	EventType   string
	Cmd         string
	Args        []string
	Env         map[string]string
	Cwd         string
	Policies    task.MergePolicy
	Resources   map[string]int
	StdoutFile  string
	StderrFile  string
	HostEnviron map[string]string
}

// Factory spawns os/exec child processes for one event type.
type Factory struct {
	cfg Config
}

func New(cfg Config) *Factory {
	return &Factory{cfg: cfg}
}

func (f *Factory) EventType() string { return f.cfg.EventType }

func (f *Factory) ResourcesRequired() map[string]int { return f.cfg.Resources }

func (f *Factory) IsBusy(available map[string]int) bool {
	return task.IsBusy(f.cfg.Resources, available)
}

func (f *Factory) CreateTask(mu *sync.Mutex, cv *sync.Cond, effectiveMetrics map[string]string, cfg task.RunConfiguration) (task.Task, error) {
	taskSettings := task.MetricsToMap(cfg.Settings)

	args, err := task.MergeArgs(f.cfg.Policies.Args, f.cfg.Args, splitArgs(taskSettings["args"]))
	if err != nil {
		return nil, err
	}
	env, err := task.MergeEnv(f.cfg.Policies.Env, envFlagGlobalPolicy(taskSettings), f.cfg.Env, envFromSettings(taskSettings), f.cfg.HostEnviron)
	if err != nil {
		return nil, err
	}
	cwd, err := task.MergeScalar(f.cfg.Policies.Cwd, "cwd", f.cfg.Cwd, taskSettings["cd"])
	if err != nil {
		return nil, err
	}
	cmd, err := task.MergeScalar(f.cfg.Policies.Cmd, "cmd", f.cfg.Cmd, taskSettings["cmd"])
	if err != nil {
		return nil, err
	}

	args = task.SubstituteAll(args, effectiveMetrics)
	env = task.SubstituteEnv(env, effectiveMetrics)
	cwd = task.Substitute(cwd, effectiveMetrics)
	cmd = task.Substitute(cmd, effectiveMetrics)

	return newRunningTask(mu, cv, cmd, args, env, cwd, f.cfg.StdoutFile, f.cfg.StderrFile, f.cfg.Resources, cfg.TaskID)
}

// splitArgs/envFromSettings/envFlagGlobalPolicy read the task-provided
// run-configuration's settings list using the same flat key names the
// original plugin's --setting flags used: "args" (space-separated),
// "env-<NAME>" per variable, "env-flag-global".
func splitArgs(argsSetting string) []string {
	if argsSetting == "" {
		return nil
	}
	return strings.Fields(argsSetting)
}

func envFromSettings(settings map[string]string) map[string]string {
	env := map[string]string{}
	const prefix = "env-"
	const globalFlag = "env-flag-global"
	for k, v := range settings {
		if k == globalFlag || !strings.HasPrefix(k, prefix) {
			continue
		}
		env[k[len(prefix):]] = v
	}
	return env
}

func envFlagGlobalPolicy(settings map[string]string) task.Policy {
	if settings["env-flag-global"] == string(task.PolicyExtend) {
		return task.PolicyExtend
	}
	return ""
}
