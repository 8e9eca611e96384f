package exec

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchelor-project/batchelor/store"
)

func TestRunningTaskReportsDoneOnSuccessfulExit(t *testing.T) {
	var mu sync.Mutex
	cv := sync.NewCond(&mu)

	rt, err := newRunningTask(&mu, cv, "true", nil, nil, "", "", "", nil, "t1")
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rt.Status().State != store.StateRunning {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	status := rt.Status()
	assert.Equal(t, store.StateDone, status.State)
	assert.EqualValues(t, 0, status.ReturnCode)
}

func TestRunningTaskReportsDoneWithNonZeroExitCode(t *testing.T) {
	var mu sync.Mutex
	cv := sync.NewCond(&mu)

	rt, err := newRunningTask(&mu, cv, "false", nil, nil, "", "", "", nil, "t2")
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rt.Status().State != store.StateRunning {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	status := rt.Status()
	assert.Equal(t, store.StateDone, status.State)
	assert.NotEqualValues(t, 0, status.ReturnCode)
}

func TestSignaledPlaceholderOnCreateFailure(t *testing.T) {
	var mu sync.Mutex
	cv := sync.NewCond(&mu)

	rt, err := newRunningTask(&mu, cv, "/no/such/binary", nil, nil, "", "", "", nil, "t3")
	require.NoError(t, err)
	assert.Equal(t, store.StateSignaled, rt.Status().State)
}
