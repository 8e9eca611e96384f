package kubectl

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/batchelor-project/batchelor/task"
)

// Config is the factory's static, per-event-type configuration.
type Config struct {
	EventType          string
	KubectlBin         string // default "kubectl"
	Kubeconfig         string
	Namespace          string
	Image              string
	ServiceAccountName string
	ImagePullSecrets   []string
	BackoffLimit       int32
	Resources          ResourceRequirements
	Volumes            []Volume
	VolumeMounts       []VolumeMount
	PollInterval       time.Duration // default 2s
	ResourceBudget     map[string]int

	Policies task.MergePolicy
	Args     []string
	Cmd      string
}

// Factory renders and submits a Job manifest per task, then polls it.
type Factory struct {
	cfg Config
}

func New(cfg Config) *Factory {
	if cfg.KubectlBin == "" {
		cfg.KubectlBin = "kubectl"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Factory{cfg: cfg}
}

func (f *Factory) EventType() string { return f.cfg.EventType }

func (f *Factory) ResourcesRequired() map[string]int { return f.cfg.ResourceBudget }

func (f *Factory) IsBusy(available map[string]int) bool {
	return task.IsBusy(f.cfg.ResourceBudget, available)
}

func (f *Factory) CreateTask(mu *sync.Mutex, cv *sync.Cond, effectiveMetrics map[string]string, cfg task.RunConfiguration) (task.Task, error) {
	taskSettings := task.MetricsToMap(cfg.Settings)

	args, err := task.MergeArgs(f.cfg.Policies.Args, f.cfg.Args, splitArgs(taskSettings["args"]))
	if err != nil {
		return nil, err
	}
	cmdName, err := task.MergeScalar(f.cfg.Policies.Cmd, "cmd", f.cfg.Cmd, taskSettings["cmd"])
	if err != nil {
		return nil, err
	}
	args = task.SubstituteAll(args, effectiveMetrics)
	cmdName = task.Substitute(cmdName, effectiveMetrics)

	job := f.renderJob(cfg.TaskID, cmdName, args)
	manifest, err := json.Marshal(job)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal job manifest")
	}

	if err := f.submit(manifest); err != nil {
		return signaledPlaceholder(cfg.TaskID, f.cfg.ResourceBudget, errors.Wrap(err, "failed to submit job")), nil
	}

	kt := &kubectlTask{
		mu:        mu,
		cv:        cv,
		cfg:       f.cfg,
		taskID:    cfg.TaskID,
		resources: f.cfg.ResourceBudget,
		status:    task.Status{State: taskRunningState},
		stopPoll:  make(chan struct{}),
	}
	go kt.pollLoop()
	return kt, nil
}

func (f *Factory) renderJob(taskID, cmdName string, args []string) Job {
	backoff := f.cfg.BackoffLimit
	var imagePullSecrets []LocalObjectRef
	for _, s := range f.cfg.ImagePullSecrets {
		imagePullSecrets = append(imagePullSecrets, LocalObjectRef{Name: s})
	}

	var command []string
	if cmdName != "" {
		command = []string{cmdName}
	}

	return Job{
		APIVersion: "batch/v1",
		Kind:       "Job",
		Metadata:   Metadata{Name: taskID, Namespace: f.cfg.Namespace},
		Spec: JobSpec{
			BackoffLimit: &backoff,
			Template: PodTemplate{
				Spec: PodSpec{
					RestartPolicy:      "Never",
					ServiceAccountName: f.cfg.ServiceAccountName,
					ImagePullSecrets:   imagePullSecrets,
					Volumes:            f.cfg.Volumes,
					Containers: []Container{{
						Name:         taskID,
						Image:        f.cfg.Image,
						Command:      command,
						Args:         args,
						Resources:    f.cfg.Resources,
						VolumeMounts: f.cfg.VolumeMounts,
					}},
				},
			},
		},
	}
}

func (f *Factory) submit(manifest []byte) error {
	args := f.kubectlArgs("apply", "-f", "-")
	cmd := exec.CommandContext(context.Background(), f.cfg.KubectlBin, args...)
	cmd.Stdin = bytes.NewReader(manifest)
	return cmd.Run()
}

func (f *Factory) kubectlArgs(base ...string) []string {
	args := append([]string{}, base...)
	if f.cfg.Kubeconfig != "" {
		args = append(args, "--kubeconfig", f.cfg.Kubeconfig)
	}
	if f.cfg.Namespace != "" {
		args = append(args, "-n", f.cfg.Namespace)
	}
	return args
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
