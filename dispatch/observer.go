package dispatch

import "github.com/batchelor-project/batchelor/store"

// Observer is notified after every handler call that mutates at least one
// task, and on every sweeper tick. The Prometheus exporter registers as an
// observer; the sweeper is not one, it drives Tick through NotifyTick.
type Observer interface {
	// TaskChanged fires once per mutated task, after the mutation is
	// persisted.
	TaskChanged(ns string, t *store.Task)
	// Tick fires once per sweeper pass, after cleanup has run.
	Tick(ns string, result *store.CleanupResult)
}

func (s *Service) notifyTaskChanged(ns string, t *store.Task) {
	for _, o := range s.observers {
		o.TaskChanged(ns, t)
	}
}

// NotifyTick lets the sweeper (which runs outside any handler) drive the same
// observer set after each cleanup pass.
func (s *Service) NotifyTick(ns string, result *store.CleanupResult) {
	for _, o := range s.observers {
		o.Tick(ns, result)
	}
}

// RegisterObserver adds o to the notification set. Not safe to call
// concurrently with dispatch handlers; call during startup wiring only.
func (s *Service) RegisterObserver(o Observer) {
	s.observers = append(s.observers, o)
}
