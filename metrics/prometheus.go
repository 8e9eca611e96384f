// Package metrics exports dispatch activity in Prometheus format. It
// registers as a dispatch.Observer so every task transition and sweeper
// tick is reflected without the dispatch service importing this package.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/batchelor-project/batchelor/store"
)

// Exporter exports batchelor dispatch metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	tasksTotal     *prometheus.CounterVec
	taskStateGauge *prometheus.GaugeVec
	cleanupDeleted *prometheus.CounterVec
	cleanupZombied *prometheus.CounterVec
	sweepTicks     *prometheus.CounterVec
}

func NewExporter(registry *prometheus.Registry) *Exporter {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchelor",
			Subsystem: "dispatch",
			Name:      "tasks_total",
			Help:      "Total number of task state transitions observed.",
		},
		[]string{"namespace", "event_type", "state"},
	)

	e.taskStateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "batchelor",
			Subsystem: "dispatch",
			Name:      "task_last_state",
			Help:      "Set to 1 once a task has been observed in the (namespace, event_type, state) bucket; never reset.",
		},
		[]string{"namespace", "event_type", "state"},
	)

	e.cleanupDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchelor",
			Subsystem: "sweeper",
			Name:      "tasks_deleted_total",
			Help:      "Total number of terminal tasks pruned by the sweeper.",
		},
		[]string{"namespace"},
	)

	e.cleanupZombied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchelor",
			Subsystem: "sweeper",
			Name:      "tasks_zombied_total",
			Help:      "Total number of queued or running tasks promoted to zombie by the sweeper.",
		},
		[]string{"namespace"},
	)

	e.sweepTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchelor",
			Subsystem: "sweeper",
			Name:      "ticks_total",
			Help:      "Total number of sweeper passes over a namespace.",
		},
		[]string{"namespace"},
	)

	registry.MustRegister(e.tasksTotal, e.taskStateGauge, e.cleanupDeleted, e.cleanupZombied, e.sweepTicks)
	return e
}

// TaskChanged implements dispatch.Observer.
func (e *Exporter) TaskChanged(ns string, t *store.Task) {
	e.tasksTotal.WithLabelValues(ns, t.EventType, string(t.State)).Inc()
	e.taskStateGauge.WithLabelValues(ns, t.EventType, string(t.State)).Set(1)
}

// Tick implements dispatch.Observer, fed by the sweeper after each pass.
func (e *Exporter) Tick(ns string, result *store.CleanupResult) {
	e.sweepTicks.WithLabelValues(ns).Inc()
	if result == nil {
		return
	}
	if result.Deleted > 0 {
		e.cleanupDeleted.WithLabelValues(ns).Add(float64(result.Deleted))
	}
	if result.PromotedToZombie > 0 {
		e.cleanupZombied.WithLabelValues(ns).Add(float64(result.PromotedToZombie))
	}
}

// Handler serves the registry in Prometheus text exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
