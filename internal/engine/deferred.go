package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	wcontext "github.com/webvy/webvy/pkg/context"
	"github.com/webvy/webvy/pkg/logger"
)

// TaskFunc is background work. It must not touch the shared state;
// mutations go through scope.Enqueue.
type TaskFunc[S any] func(ctx context.Context, scope *Scope[S]) error

// Deferred is handed to every work unit. It spawns coordinator-tracked
// background tasks and exposes the compute pool for fork-join work.
type Deferred[S any] struct {
	coord   *Coordinator
	queue   *CommandQueue[S]
	io      *IOPool
	compute *ComputePool
	logger  logger.Logger
}

func newDeferred[S any](coord *Coordinator, queue *CommandQueue[S], pools *Pools, log logger.Logger) *Deferred[S] {
	return &Deferred[S]{
		coord:   coord,
		queue:   queue,
		io:      pools.IO,
		compute: pools.Compute,
		logger:  log,
	}
}

// Compute returns the CPU-bound pool.
func (d *Deferred[S]) Compute() *ComputePool {
	return d.compute
}

// Spawn runs fn on the I/O pool. The task is counted before Spawn returns
// and released when fn returns, fails or panics.
func (d *Deferred[S]) Spawn(ctx context.Context, name string, fn TaskFunc[S]) {
	h := d.coord.acquire(name)
	taskCtx := taskContext(ctx, name)
	d.io.Submit(func() {
		d.run(taskCtx, h, fn)
	})
}

// SpawnPinned queues fn to run on the driving goroutine the next time the
// pipeline pumps its local queue.
func (d *Deferred[S]) SpawnPinned(ctx context.Context, name string, fn TaskFunc[S]) {
	h := d.coord.acquire(name)
	taskCtx := taskContext(ctx, name)
	d.coord.local.push(func() {
		d.run(taskCtx, h, fn)
	})
}

// Tasks keep running after the phase that spawned them, so they drop the
// parent's cancellation and keep only its values.
func taskContext(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return wcontext.WithTask(context.WithoutCancel(ctx), name)
}

func (d *Deferred[S]) run(ctx context.Context, h *handle, fn TaskFunc[S]) {
	scope := &Scope[S]{d: d, h: h, ctx: ctx}
	failed := false
	defer func() {
		h.release(failed)
	}()
	defer func() {
		if r := recover(); r != nil {
			failed = true
			logger.WithContext(ctx, d.logger).Error("Deferred task panicked",
				logger.WithField("panic", fmt.Sprint(r)),
				logger.WithField("stack_trace", string(debug.Stack())))
		}
	}()

	if err := fn(ctx, scope); err != nil {
		failed = true
		logger.WithContext(ctx, d.logger).Error("Deferred task failed", logger.WithError(err))
	}
}

// Scope is the capability a running task receives. It is valid only until
// the task returns; any use afterwards panics.
type Scope[S any] struct {
	d   *Deferred[S]
	h   *handle
	ctx context.Context
}

func (s *Scope[S]) check(op string) {
	if s.h.done() {
		panic(fmt.Sprintf("engine: %s on scope of released task %s", op, s.h.name))
	}
}

// Enqueue hands commands to the pipeline. Commands from one call stay
// contiguous and in order.
func (s *Scope[S]) Enqueue(cmds ...Command[S]) {
	s.check("Enqueue")
	s.d.queue.Enqueue(cmds...)
}

// Spawn starts a nested background task on the same counter. The child is
// counted before this call returns, so the parent's release cannot drop the
// counter to zero while the child is pending.
func (s *Scope[S]) Spawn(name string, fn TaskFunc[S]) {
	s.check("Spawn")
	s.d.Spawn(s.ctx, name, fn)
}

// SpawnPinned starts a nested task pinned to the driving goroutine.
func (s *Scope[S]) SpawnPinned(name string, fn TaskFunc[S]) {
	s.check("SpawnPinned")
	s.d.SpawnPinned(s.ctx, name, fn)
}

// Context returns the task context.
func (s *Scope[S]) Context() context.Context {
	return s.ctx
}

// Name returns the task name.
func (s *Scope[S]) Name() string {
	return s.h.name
}
