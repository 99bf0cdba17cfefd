package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/webvy/webvy/pkg/logger"
)

// DefaultPollInterval bounds each wait of the completion barrier.
const DefaultPollInterval = 100 * time.Millisecond

// CoordinatorStats is a snapshot of task accounting.
type CoordinatorStats struct {
	Spawned        int64
	Released       int64
	Failed         int64
	Outstanding    int64
	WaitIterations int64
}

// Coordinator counts outstanding background tasks and implements the
// completion barrier. The counter lives as long as the pipeline.
type Coordinator struct {
	outstanding    atomic.Int64
	spawned        atomic.Int64
	released       atomic.Int64
	failed         atomic.Int64
	waitIterations atomic.Int64

	notify       chan struct{}
	io           *IOPool
	local        *LocalQueue
	pollInterval time.Duration
	logger       logger.Logger
}

// NewCoordinator creates a coordinator submitting tasks to io.
func NewCoordinator(io *IOPool, pollInterval time.Duration, log logger.Logger) *Coordinator {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	c := &Coordinator{
		notify:       make(chan struct{}, 1),
		io:           io,
		pollInterval: pollInterval,
		logger:       log,
	}
	c.local = &LocalQueue{signal: c.signal}
	return c
}

// Outstanding returns the number of spawned but unreleased tasks.
func (c *Coordinator) Outstanding() int64 {
	return c.outstanding.Load()
}

// Stats returns the current accounting snapshot.
func (c *Coordinator) Stats() CoordinatorStats {
	return CoordinatorStats{
		Spawned:        c.spawned.Load(),
		Released:       c.released.Load(),
		Failed:         c.failed.Load(),
		Outstanding:    c.outstanding.Load(),
		WaitIterations: c.waitIterations.Load(),
	}
}

// signal wakes a waiting barrier without ever blocking. A pending token
// already guarantees a wake-up, so extra signals are dropped.
func (c *Coordinator) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// acquire creates the handle for a new task. The counter goes up before
// the caller returns, so a nested spawn is visible before its parent
// releases.
func (c *Coordinator) acquire(name string) *handle {
	c.outstanding.Add(1)
	c.spawned.Add(1)
	return &handle{name: name, coord: c}
}

// Local returns the pinned-task queue.
func (c *Coordinator) Local() *LocalQueue {
	return c.local
}

// PumpLocal runs queued pinned tasks on the calling goroutine until the
// local queue is empty and returns how many ran.
func (c *Coordinator) PumpLocal() int {
	return c.local.pump()
}

// WaitUntilDrained blocks until no task is outstanding. Each iteration
// pumps pinned tasks, then waits for a release notification or the poll
// interval, whichever comes first. With nothing outstanding it returns
// without waiting.
func (c *Coordinator) WaitUntilDrained() {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for {
		c.PumpLocal()
		if c.outstanding.Load() == 0 {
			return
		}
		c.waitIterations.Add(1)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(c.pollInterval)

		select {
		case <-c.notify:
		case <-timer.C:
		}
	}
}

// handle tracks one in-flight task. It is released exactly once.
type handle struct {
	name     string
	coord    *Coordinator
	released atomic.Bool
}

func (h *handle) done() bool {
	return h.released.Load()
}

func (h *handle) release(failed bool) {
	if !h.released.CompareAndSwap(false, true) {
		panic("engine: task " + h.name + " released twice")
	}
	if failed {
		h.coord.failed.Add(1)
	}
	h.coord.released.Add(1)
	if h.coord.outstanding.Add(-1) < 0 {
		panic("engine: outstanding task counter went negative")
	}
	h.coord.signal()
}

// LocalQueue holds pinned tasks that must run on the driving goroutine.
type LocalQueue struct {
	mu     sync.Mutex
	tasks  []func()
	signal func()
}

// Len returns the number of queued pinned tasks.
func (q *LocalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *LocalQueue) push(fn func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
	if q.signal != nil {
		q.signal()
	}
}

func (q *LocalQueue) pump() int {
	ran := 0
	for {
		q.mu.Lock()
		batch := q.tasks
		q.tasks = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			fn()
			ran++
		}
	}
}
