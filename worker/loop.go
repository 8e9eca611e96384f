// Package worker implements the worker process's single scheduling loop
// (spec §4.5): one goroutine, single-threaded from the scheduler's point of
// view, driving task factories and reconciling with the head via fetchTask.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/batchelor-project/batchelor/dispatch"
	"github.com/batchelor-project/batchelor/task"
	"github.com/batchelor-project/batchelor/transport/client"
)

const DefaultMaxSignalsBeforeKill = 3

// DefaultLaunchConcurrency bounds how many factory.CreateTask calls a single
// cycle runs at once, the same "limit concurrent generations" pattern the
// teacher applies to its own fan-out work.
const DefaultLaunchConcurrency = 3

// headClient is the narrow slice of transport/client.Client the loop needs;
// kept as an interface so tests can substitute a stub.
type headClient interface {
	FetchTask(ctx context.Context, ns string, req dispatch.FetchRequest) (dispatch.FetchResponse, error)
}

var _ headClient = (*client.Client)(nil)

// Config is the static configuration for one worker process.
type Config struct {
	WorkerID         string
	NamespaceID      string
	Metrics          map[string]string
	Factories        map[string]task.Factory // keyed by event type
	ResourceBudget   map[string]int
	RequestInterval   time.Duration
	IdleTimeout       *time.Duration
	AvailableTimeout  *time.Duration
	MaxSignals        int
	LaunchConcurrency int64
}

// Loop owns the running-tasks table and drives the per-cycle algorithm.
type Loop struct {
	cfg    Config
	client headClient

	mu           sync.Mutex
	cv           *sync.Cond
	runningTasks map[string]task.Task

	signalsReceived  int
	signalsProcessed int
	shutdownSeen     bool

	idleDeadline      time.Time
	availableDeadline time.Time
	availabilityFired bool

	launchSem *semaphore.Weighted

	now func() time.Time
}

// New builds a Loop; Config fields left zero take the spec's defaults
// (RequestInterval=5s, MaxSignals=3, LaunchConcurrency=3).
func New(cfg Config, headClient headClient) *Loop {
	if cfg.RequestInterval == 0 {
		cfg.RequestInterval = 5 * time.Second
	}
	if cfg.MaxSignals == 0 {
		cfg.MaxSignals = DefaultMaxSignalsBeforeKill
	}
	if cfg.LaunchConcurrency == 0 {
		cfg.LaunchConcurrency = DefaultLaunchConcurrency
	}
	l := &Loop{
		cfg:          cfg,
		client:       headClient,
		runningTasks: map[string]task.Task{},
		launchSem:    semaphore.NewWeighted(cfg.LaunchConcurrency),
		now:          time.Now,
	}
	l.cv = sync.NewCond(&l.mu)
	now := l.now()
	l.idleDeadline = deadlineFrom(now, cfg.IdleTimeout)
	l.availableDeadline = deadlineFrom(now, cfg.AvailableTimeout)
	return l
}

func deadlineFrom(now time.Time, d *time.Duration) time.Time {
	if d == nil {
		return time.Time{}
	}
	return now.Add(*d)
}

// RequestShutdown records one external shutdown signal (e.g. SIGTERM),
// escalating on repeat per §4.5/§5.
func (l *Loop) RequestShutdown() {
	l.mu.Lock()
	l.signalsReceived++
	l.shutdownSeen = true
	l.cv.Broadcast()
	l.mu.Unlock()
}

// Run drives cycles until an exit condition is reached or ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		l.runCycle(ctx)
		if l.shouldExit() {
			return
		}
		l.sleepUntilNextCycleOrWake()
	}
}

func (l *Loop) sleepUntilNextCycleOrWake() {
	l.mu.Lock()
	defer l.mu.Unlock()

	timer := time.AfterFunc(l.cfg.RequestInterval, func() {
		l.mu.Lock()
		l.cv.Broadcast()
		l.mu.Unlock()
	})
	defer timer.Stop()
	l.cv.Wait()
}

func (l *Loop) shouldExit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.idleDeadline.IsZero() && !now.Before(l.idleDeadline) {
		slog.Info("worker exiting: idle timeout elapsed", "workerId", l.cfg.WorkerID)
		return true
	}
	if !l.availableDeadline.IsZero() && !now.Before(l.availableDeadline) && len(l.runningTasks) == 0 {
		slog.Info("worker exiting: availability timeout elapsed with no running tasks", "workerId", l.cfg.WorkerID)
		return true
	}
	if l.shutdownSeen && len(l.runningTasks) == 0 {
		slog.Info("worker exiting: shutdown acknowledged with no running tasks", "workerId", l.cfg.WorkerID)
		return true
	}
	return false
}
