package runtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerSpawnRunsTask(t *testing.T) {
	s := newScheduler(2)
	defer s.Shutdown()

	var ran int32
	done := make(chan struct{})
	err := s.Spawn(context.Background(), Task{Run: func() {
		atomic.StoreInt32(&ran, 1)
		close(done)
	}})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run within timeout")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}

func TestSchedulerWaitAllBlocksUntilQuiescent(t *testing.T) {
	s := newScheduler(4)
	defer s.Shutdown()

	const n = 20
	var completed int64
	for i := 0; i < n; i++ {
		err := s.Spawn(context.Background(), Task{Run: func() {
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&completed, 1)
		}})
		require.NoError(t, err)
	}

	s.WaitAll()
	assert.EqualValues(t, n, atomic.LoadInt64(&completed))
	assert.Zero(t, s.ActiveTasks())
}

func TestSchedulerActiveTasksCountsInFlightWork(t *testing.T) {
	s := newScheduler(1)
	defer s.Shutdown()

	release := make(chan struct{})
	err := s.Spawn(context.Background(), Task{Run: func() { <-release }})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.ActiveTasks() == 1 }, time.Second, time.Millisecond)
	close(release)
	s.WaitAll()
}

func TestSchedulerShutdownJoinsWorkersAndRejectsNewWork(t *testing.T) {
	s := newScheduler(2)
	s.Shutdown()

	// a second Shutdown must not panic or block: the sync.Once guards the close.
	assert.NotPanics(t, func() { s.Shutdown() })
	assert.Error(t, s.Spawn(context.Background(), Task{Run: func() {}}), "Spawn after Shutdown must be rejected")
}

func TestGlobalReturnsSameSingletonAcrossCalls(t *testing.T) {
	first := Global(1)
	second := Global(2)
	assert.Same(t, first, second, "Global must be a lazily constructed process-wide singleton")
}
