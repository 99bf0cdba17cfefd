package engine

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/webvy/webvy/pkg/logger"
)

// DrainResult summarizes one DrainAndApply call.
type DrainResult struct {
	Applied int
	Failed  int
}

// CommandQueue is an unbounded multi-producer, single-consumer queue of
// pending commands. Producers never block. Only the pipeline driver drains
// it, and only at a barrier.
type CommandQueue[S any] struct {
	mu      sync.Mutex
	pending []Command[S]
	closed  bool
	logger  logger.Logger
}

// NewCommandQueue creates an empty queue.
func NewCommandQueue[S any](log logger.Logger) *CommandQueue[S] {
	return &CommandQueue[S]{logger: log}
}

// Enqueue appends commands in order. Nil commands are dropped. Enqueueing
// on a closed queue panics.
func (q *CommandQueue[S]) Enqueue(cmds ...Command[S]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		panic("engine: enqueue on closed command queue")
	}
	for _, cmd := range cmds {
		if cmd != nil {
			q.pending = append(q.pending, cmd)
		}
	}
}

// Len returns the number of pending commands.
func (q *CommandQueue[S]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects further enqueues. Pending commands can still be drained.
func (q *CommandQueue[S]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// DrainAndApply applies pending commands to state in receipt order until
// the queue is empty. A panicking command is logged and counted; the rest
// still apply.
func (q *CommandQueue[S]) DrainAndApply(state S) DrainResult {
	var res DrainResult
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			return res
		}
		for _, cmd := range batch {
			if q.apply(state, cmd) {
				res.Applied++
			} else {
				res.Failed++
			}
		}
	}
}

func (q *CommandQueue[S]) apply(state S, cmd Command[S]) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			q.logger.Error("Command panicked while applying",
				logger.WithField("panic", fmt.Sprint(r)),
				logger.WithField("stack_trace", string(debug.Stack())))
		}
	}()
	cmd(state)
	return true
}
