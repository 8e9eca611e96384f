package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchelor-project/batchelor/store"
)

type stubDriver struct {
	store.Driver
	calls []string
	err   error
}

func (d *stubDriver) Cleanup(_ context.Context, ns string, _, _ time.Duration, _ time.Time) (*store.CleanupResult, error) {
	d.calls = append(d.calls, ns)
	if d.err != nil {
		return nil, d.err
	}
	return &store.CleanupResult{Deleted: 1}, nil
}

type stubNotifier struct {
	ticks []string
}

func (n *stubNotifier) NotifyTick(ns string, _ *store.CleanupResult) {
	n.ticks = append(n.ticks, ns)
}

func TestTickSweepsEveryNamespace(t *testing.T) {
	driver := &stubDriver{}
	notifier := &stubNotifier{}
	s := New(driver, notifier, []string{"a", "b"})

	s.tick(context.Background())

	assert.ElementsMatch(t, []string{"a", "b"}, driver.calls)
	assert.ElementsMatch(t, []string{"a", "b"}, notifier.ticks)
}

func TestTickContinuesAfterOneNamespaceErrors(t *testing.T) {
	driver := &stubDriver{err: assert.AnError}
	notifier := &stubNotifier{}
	s := New(driver, notifier, []string{"a", "b"})

	s.tick(context.Background())

	require.Len(t, driver.calls, 2)
	assert.Empty(t, notifier.ticks)
}
