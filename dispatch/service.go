package dispatch

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/batchelor-project/batchelor/condition"
	"github.com/batchelor-project/batchelor/store"
)

// Service is the head's single entry point for every dispatch operation. One
// mutex guards the whole handler body for every call, per the single-writer-
// per-request concurrency model: the store is small enough that a wider
// critical section than strictly necessary is the simpler, safer choice.
type Service struct {
	mu        sync.Mutex
	driver    store.Driver
	zombieTTL time.Duration
	observers []Observer
	now       func() time.Time
}

// NewService wires a dispatch Service around driver. zombieTTL is the same
// horizon the sweeper uses to decide whether an event-type advertisement, or
// a running task's heartbeat, is still live.
func NewService(driver store.Driver, zombieTTL time.Duration) *Service {
	return &Service{driver: driver, zombieTTL: zombieTTL, now: time.Now}
}

func (s *Service) nowFunc() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// RunTask implements §4.3 runTask: dedup-by-fingerprint, advertisement check,
// then insert. Condition parse errors and the "event type unavailable" case
// are reported inside RunResponse, not as a Go error — only role and storage
// failures are.
func (s *Service) RunTask(ctx context.Context, ns string, grants []RoleGrant, req RunRequest) (RunResponse, error) {
	if err := requireRole(grants, ns, RoleExecute); err != nil {
		return RunResponse{}, err
	}

	if req.Condition != "" {
		if _, err := condition.Parse(req.Condition); err != nil {
			return RunResponse{Message: err.Error()}, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	settings := toStoreKVs(req.Settings)
	metrics := toStoreKVs(req.Metrics)
	fp := store.Fingerprint(settings, metrics)

	existing, err := s.driver.LoadLatestByEventAndFingerprint(ctx, ns, req.EventType, fp)
	if err != nil {
		return RunResponse{}, err
	}
	if existing != nil && (existing.State == store.StateQueued || existing.State == store.StateRunning) {
		existing.Priority = req.Priority
		existing.Condition = req.Condition
		existing.PriorityTS = now
		if err := s.driver.SaveTask(ctx, ns, existing); err != nil {
			return RunResponse{}, err
		}
		s.notifyTaskChanged(ns, existing)
		return RunResponse{TaskID: existing.TaskID}, nil
	}

	liveEventTypes, err := s.driver.LoadEventTypes(ctx, ns, s.zombieTTL, now)
	if err != nil {
		return RunResponse{}, err
	}
	if !containsString(liveEventTypes, req.EventType) {
		return RunResponse{Message: "Event type is not available"}, nil
	}

	t := &store.Task{
		TaskID:      store.NewTaskID(),
		NamespaceID: ns,
		EventType:   req.EventType,
		Fingerprint: fp,
		Priority:    req.Priority,
		PriorityTS:  now,
		Settings:    settings,
		Metrics:     metrics,
		Condition:   req.Condition,
		CreatedTS:   now,
		HeartbeatTS: now,
		State:       store.StateQueued,
	}
	if err := s.driver.SaveTask(ctx, ns, t); err != nil {
		return RunResponse{}, err
	}
	s.notifyTaskChanged(ns, t)
	return RunResponse{TaskID: t.TaskID}, nil
}

// FetchTask implements §4.3 fetchTask, the hot path: apply reported statuses,
// refresh advertisement heartbeats, then assign at most one queued task.
func (s *Service) FetchTask(ctx context.Context, ns string, grants []RoleGrant, req FetchRequest) (FetchResponse, error) {
	if err := requireRole(grants, ns, RoleWorker); err != nil {
		return FetchResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	var resp FetchResponse

	if err := s.applyStatuses(ctx, ns, req.Tasks, now, &resp); err != nil {
		return FetchResponse{}, err
	}

	advertised := make([]string, 0, len(req.EventTypes))
	for _, et := range req.EventTypes {
		advertised = append(advertised, et.EventType)
	}

	// §4.3 step 2: refresh every advertised event type's heartbeat
	// concurrently with collecting this fetch's candidate queued tasks —
	// the two touch disjoint tables and neither result depends on the other.
	var candidates []*store.Task
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.driver.UpdateEventTypes(gctx, ns, advertised, now)
	})
	g.Go(func() error {
		var err error
		candidates, err = s.collectCandidates(gctx, ns, req.EventTypes)
		return err
	})
	if err := g.Wait(); err != nil {
		return FetchResponse{}, err
	}
	sortCandidates(candidates, now)

	workerMetrics := toMetricsMap(req.Metrics)
	if err := s.assignFirstMatch(ctx, ns, candidates, workerMetrics, now, &resp); err != nil {
		return FetchResponse{}, err
	}

	return resp, nil
}

func (s *Service) applyStatuses(ctx context.Context, ns string, statuses []TaskStatusEntry, now time.Time, resp *FetchResponse) error {
	for _, report := range statuses {
		t, err := s.driver.LoadTaskByID(ctx, ns, report.TaskID)
		if err != nil {
			return err
		}
		if t == nil || t.State != store.StateRunning {
			continue
		}

		t.State = store.State(report.State)
		t.ReturnCode = report.ReturnCode
		t.Message = report.Message
		t.HeartbeatTS = now

		if t.State == store.StateRunning {
			for _, sig := range t.Signals {
				resp.Signals = append(resp.Signals, SignalEntry{TaskID: t.TaskID, Signal: sig})
			}
			t.Signals = nil
		} else {
			t.EndTS = now
		}

		if err := s.driver.SaveTask(ctx, ns, t); err != nil {
			return err
		}
		s.notifyTaskChanged(ns, t)
	}
	return nil
}

func (s *Service) collectCandidates(ctx context.Context, ns string, eventTypes []EventTypeEntry) ([]*store.Task, error) {
	var candidates []*store.Task
	for _, et := range eventTypes {
		if !et.Available {
			continue
		}
		tasks, err := s.driver.LoadByEventAndState(ctx, ns, et.EventType, store.StateQueued)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, tasks...)
	}
	return candidates, nil
}

func sortCandidates(candidates []*store.Task, now time.Time) {
	sort.SliceStable(candidates, func(i, j int) bool {
		pi := candidates[i].EffectivePriority(now)
		pj := candidates[j].EffectivePriority(now)
		if pi != pj {
			return pi > pj
		}
		return candidates[i].CreatedTS.Before(candidates[j].CreatedTS)
	})
}

func (s *Service) assignFirstMatch(ctx context.Context, ns string, candidates []*store.Task, workerMetrics map[string]string, now time.Time, resp *FetchResponse) error {
	for _, t := range candidates {
		eff := effectiveMetrics(t, workerMetrics, now)

		ok, err := condition.Evaluate(t.Condition, eff)
		if err != nil {
			// §7: a bad condition at fetch time is treated as false with a
			// warning, never as a request failure.
			slog.Warn("condition evaluation failed, treating as false",
				"namespace", ns, "taskId", t.TaskID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		t.State = store.StateRunning
		t.ReturnCode = 0
		t.StartTS = now
		t.HeartbeatTS = now
		t.Metrics = metricsMapToKVs(eff)

		if err := s.driver.SaveTask(ctx, ns, t); err != nil {
			return err
		}
		s.notifyTaskChanged(ns, t)

		resp.RunConfigurations = append(resp.RunConfigurations, RunConfiguration{
			TaskID:    t.TaskID,
			EventType: t.EventType,
			Settings:  toWireKVs(t.Settings),
			Metrics:   toWireKVs(t.Metrics),
		})
		return nil
	}
	return nil
}

func effectiveMetrics(t *store.Task, workerMetrics map[string]string, now time.Time) map[string]string {
	eff := make(map[string]string, len(t.Metrics)+len(workerMetrics)+2)
	for _, kv := range t.Metrics {
		eff[kv.Key] = kv.Value
	}
	for k, v := range workerMetrics {
		eff[k] = v
	}
	waited := now.Sub(t.CreatedTS)
	eff["SECONDS_WAITING"] = strconv.FormatFloat(waited.Seconds(), 'f', 0, 64)
	eff["MINUTES_WAITING"] = strconv.FormatFloat(waited.Minutes(), 'f', 0, 64)
	return eff
}

// SendSignal implements §4.3 sendSignal: queued tasks transition straight to
// signaled; running tasks accumulate the signal for the next fetchTask.
func (s *Service) SendSignal(ctx context.Context, ns string, grants []RoleGrant, taskID, signal string) error {
	if err := requireRole(grants, ns, RoleExecute); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.driver.LoadTaskByID(ctx, ns, taskID)
	if err != nil {
		return err
	}
	if t == nil {
		return nil
	}

	switch t.State {
	case store.StateQueued:
		t.State = store.StateSignaled
		t.EndTS = s.nowFunc()
	case store.StateRunning:
		t.Signals = append(t.Signals, signal)
	default:
		return nil
	}

	if err := s.driver.SaveTask(ctx, ns, t); err != nil {
		return err
	}
	s.notifyTaskChanged(ns, t)
	return nil
}

func containsString(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}
