package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchelor-project/batchelor/store"
)

func TestTaskChangedIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := NewExporter(reg)

	e.TaskChanged("ns1", &store.Task{EventType: "build", State: store.StateQueued})
	e.TaskChanged("ns1", &store.Task{EventType: "build", State: store.StateQueued})

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, float64(2), counterValue(t, families, "batchelor_dispatch_tasks_total"))
}

func TestTickRecordsCleanupCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := NewExporter(reg)

	e.Tick("ns1", &store.CleanupResult{Deleted: 3, PromotedToZombie: 1})

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, float64(3), counterValue(t, families, "batchelor_sweeper_tasks_deleted_total"))
	assert.Equal(t, float64(1), counterValue(t, families, "batchelor_sweeper_tasks_zombied_total"))
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name string) float64 {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	t.Fatalf("metric family %q not found", name)
	return 0
}
