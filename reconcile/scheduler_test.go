package reconcile_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/interpreter-billing/billing"
	"github.com/warp/interpreter-billing/reconcile"
)

func TestScheduler_RunsOnStartAndOnTick(t *testing.T) {
	f := newFake(remoteData())
	c := newCoordinator(f)
	s := reconcile.NewScheduler(c)
	s.Interval = 20 * time.Millisecond

	var runs atomic.Int32
	s.OnSync = func(_ billing.Snapshot, err error) {
		assert.NoError(t, err)
		runs.Add(1)
	}

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
	assert.Equal(t, reconcile.StateReady, c.State(billing.CollectionAssignments))
}

func TestScheduler_DisabledDoesNothing(t *testing.T) {
	f := newFake(remoteData())
	s := reconcile.NewScheduler(newCoordinator(f))
	s.Enabled = false

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	assert.Zero(t, f.fetches.Load())
}

func TestScheduler_RunNowReportsPartialSync(t *testing.T) {
	f := newFake(remoteData())
	f.failOn("locations", errDown)
	s := reconcile.NewScheduler(newCoordinator(f))

	snap, err := s.RunNow(context.Background())

	require.ErrorIs(t, err, billing.ErrPartialSync)
	assert.Len(t, snap.Assignments, 1)
	assert.Empty(t, snap.Locations)
}

func TestScheduler_NextRunTime(t *testing.T) {
	s := reconcile.NewScheduler(nil)
	s.Interval = time.Hour

	next := s.NextRunTime()

	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Second)
}
