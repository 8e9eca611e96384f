// Package sweeper runs the head's periodic cleanup pass: promote stale
// queued and running tasks to zombie, delete tasks/advertisements past their retention
// horizon, and notify dispatch observers (spec §4.4).
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/batchelor-project/batchelor/store"
)

const (
	DefaultZombieTTL = 5 * time.Minute
	DefaultDeleteTTL = 1 * time.Hour
	DefaultInterval  = 5 * time.Second
)

// tickNotifier is the slice of dispatch.Service that the sweeper needs; kept
// as a narrow interface so sweeper never imports dispatch.
type tickNotifier interface {
	NotifyTick(ns string, result *store.CleanupResult)
}

// Sweeper ticks on Interval, sweeping every configured namespace.
type Sweeper struct {
	Driver     store.Driver
	Namespaces []string
	ZombieTTL  time.Duration
	DeleteTTL  time.Duration
	Interval   time.Duration
	Notifier   tickNotifier

	now func() time.Time
}

// New builds a Sweeper with the spec's defaults (zombieTTL=5m, deleteTTL=1h,
// interval=5s); callers override any field before calling Run.
func New(driver store.Driver, notifier tickNotifier, namespaces []string) *Sweeper {
	return &Sweeper{
		Driver:     driver,
		Namespaces: namespaces,
		ZombieTTL:  DefaultZombieTTL,
		DeleteTTL:  DefaultDeleteTTL,
		Interval:   DefaultInterval,
		Notifier:   notifier,
		now:        time.Now,
	}
}

// Run blocks, ticking until ctx is canceled. The sweeper does not take the
// dispatch service's mutex; each Cleanup runs in its own store transaction,
// and with sqlite the single physical connection serializes it against
// handler statements. With postgres a tick can interleave with a handler.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	now := time.Now()
	if s.now != nil {
		now = s.now()
	}

	for _, ns := range s.Namespaces {
		result, err := s.Driver.Cleanup(ctx, ns, s.ZombieTTL, s.DeleteTTL, now)
		if err != nil {
			slog.Error("sweeper cleanup failed", "namespace", ns, "error", err)
			continue
		}
		if result.Deleted > 0 || result.PromotedToZombie > 0 || result.EventTypesPruned > 0 {
			slog.Info("sweeper tick",
				"namespace", ns,
				"deleted", result.Deleted,
				"promotedToZombie", result.PromotedToZombie,
				"eventTypesPruned", result.EventTypesPruned,
			)
		}
		if s.Notifier != nil {
			s.Notifier.NotifyTick(ns, result)
		}
	}
}
