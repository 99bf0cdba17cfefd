package engine

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/webvy/webvy/pkg/logger"
)

func newTestCoordinator(t *testing.T, ioSize int) (*Coordinator, *IOPool) {
	t.Helper()
	pool := NewIOPool(ioSize, logger.NewNopLogger())
	t.Cleanup(pool.Close)
	return NewCoordinator(pool, 5*time.Millisecond, logger.NewNopLogger()), pool
}

func newTestDeferred(t *testing.T, sizes PoolSizes) (*Deferred[*numbers], *Coordinator, *CommandQueue[*numbers]) {
	t.Helper()
	pools := NewPools(sizes, logger.NewNopLogger())
	t.Cleanup(pools.Close)
	c := NewCoordinator(pools.IO, 5*time.Millisecond, logger.NewNopLogger())
	q := NewCommandQueue[*numbers](logger.NewNopLogger())
	return newDeferred(c, q, pools, logger.NewNopLogger()), c, q
}

func TestCoordinator_IdleWaitReturnsImmediately(t *testing.T) {
	c, _ := newTestCoordinator(t, 1)

	c.WaitUntilDrained()

	if n := c.Stats().WaitIterations; n != 0 {
		t.Errorf("idle wait iterated %d times", n)
	}
}

func TestCoordinator_AcquireReleaseAccounting(t *testing.T) {
	c, _ := newTestCoordinator(t, 1)

	a := c.acquire("a")
	b := c.acquire("b")
	if c.Outstanding() != 2 {
		t.Fatalf("Outstanding() = %d, want 2", c.Outstanding())
	}

	a.release(false)
	b.release(true)

	want := CoordinatorStats{Spawned: 2, Released: 2, Failed: 1}
	if got := c.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestCoordinator_DoubleReleasePanics(t *testing.T) {
	c, _ := newTestCoordinator(t, 1)

	h := c.acquire("once")
	h.release(false)

	mustPanic(t, "a second release", func() { h.release(false) })
	if c.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d after double release", c.Outstanding())
	}
}

func TestCoordinator_WaitBlocksUntilRelease(t *testing.T) {
	c, pool := newTestCoordinator(t, 1)

	h := c.acquire("slow")
	var released atomic.Bool
	pool.Submit(func() {
		time.Sleep(30 * time.Millisecond)
		released.Store(true)
		h.release(false)
	})

	c.WaitUntilDrained()

	if !released.Load() {
		t.Error("wait returned before the task released")
	}
	if c.Stats().WaitIterations == 0 {
		t.Error("expected at least one wait iteration")
	}
}

func TestCoordinator_WaitPumpsPinnedTasks(t *testing.T) {
	c, pool := newTestCoordinator(t, 1)

	outer := c.acquire("outer")
	var pinnedRan atomic.Bool
	pool.Submit(func() {
		inner := c.acquire("pinned")
		c.local.push(func() {
			pinnedRan.Store(true)
			inner.release(false)
		})
		outer.release(false)
	})

	done := make(chan struct{})
	go func() {
		c.WaitUntilDrained()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("barrier never drained pinned task")
	}
	if !pinnedRan.Load() {
		t.Error("pinned task did not run")
	}
	if c.Local().Len() != 0 {
		t.Errorf("local queue still holds %d tasks", c.Local().Len())
	}
}

func TestDeferred_ScopeUnusableAfterRelease(t *testing.T) {
	d, c, q := newTestDeferred(t, PoolSizes{Compute: 1, IO: 1})

	leaked := make(chan *Scope[*numbers], 1)
	d.Spawn(context.Background(), "leak", func(_ context.Context, s *Scope[*numbers]) error {
		s.Enqueue(appendValue(1))
		leaked <- s
		return nil
	})
	c.WaitUntilDrained()

	scope := <-leaked
	mustPanic(t, "Enqueue after release", func() { scope.Enqueue(appendValue(2)) })
	mustPanic(t, "Spawn after release", func() { scope.Spawn("late", nil) })
	mustPanic(t, "SpawnPinned after release", func() { scope.SpawnPinned("late", nil) })
	if q.Len() != 1 {
		t.Errorf("queue holds %d commands, want 1", q.Len())
	}
}

func TestDeferred_NestedSpawnCountedBeforeParentRelease(t *testing.T) {
	d, c, q := newTestDeferred(t, PoolSizes{Compute: 1, IO: 2})

	var outstandingAtParentExit atomic.Int64
	d.Spawn(context.Background(), "parent", func(_ context.Context, s *Scope[*numbers]) error {
		s.Spawn("child", func(_ context.Context, cs *Scope[*numbers]) error {
			time.Sleep(10 * time.Millisecond)
			cs.Enqueue(appendValue(2))
			return nil
		})
		outstandingAtParentExit.Store(c.Outstanding())
		return nil
	})
	c.WaitUntilDrained()

	if n := outstandingAtParentExit.Load(); n < 2 {
		t.Errorf("outstanding at parent exit = %d, want at least 2", n)
	}
	state := &numbers{}
	q.DrainAndApply(state)
	if !reflect.DeepEqual(state.values, []int{2}) {
		t.Errorf("values = %v, want [2]", state.values)
	}
}

func TestDeferred_TaskContextSurvivesCancellation(t *testing.T) {
	d, c, _ := newTestDeferred(t, PoolSizes{Compute: 1, IO: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var live atomic.Bool
	d.Spawn(ctx, "after-cancel", func(taskCtx context.Context, _ *Scope[*numbers]) error {
		live.Store(taskCtx.Err() == nil)
		return nil
	})
	c.WaitUntilDrained()

	if !live.Load() {
		t.Error("task context was cancelled with its parent")
	}
}
