package engine

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/webvy/webvy/pkg/logger"
)

const maxIOThreads = 6

// PoolSizes holds the worker counts of the compute and I/O pools.
type PoolSizes struct {
	Compute int
	IO      int
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// SizesFor derives pool sizes from a hardware thread count:
// compute = max(1, ceil(T/2) - 1) and io = min(6, ceil(T/4)).
func SizesFor(threads int) PoolSizes {
	if threads < 1 {
		threads = 1
	}
	return PoolSizes{
		Compute: max(1, ceilDiv(threads, 2)-1),
		IO:      max(1, min(maxIOThreads, ceilDiv(threads, 4))),
	}
}

// DefaultSizes sizes the pools for the current machine.
func DefaultSizes() PoolSizes {
	return SizesFor(runtime.NumCPU())
}

// WithOverrides replaces sizes that are set to a positive value.
func (s PoolSizes) WithOverrides(compute, io int) PoolSizes {
	if compute > 0 {
		s.Compute = compute
	}
	if io > 0 {
		s.IO = io
	}
	return s
}

// Pools bundles the two process-wide worker pools. Create it once at
// startup and share it between pipelines.
type Pools struct {
	Compute *ComputePool
	IO      *IOPool
	sizes   PoolSizes
}

// NewPools starts both pools. Zero sizes fall back to DefaultSizes.
func NewPools(sizes PoolSizes, log logger.Logger) *Pools {
	sizes = DefaultSizes().WithOverrides(sizes.Compute, sizes.IO)
	return &Pools{
		Compute: NewComputePool(sizes.Compute, log),
		IO:      NewIOPool(sizes.IO, log),
		sizes:   sizes,
	}
}

// Sizes reports the effective pool sizes.
func (p *Pools) Sizes() PoolSizes {
	return p.sizes
}

// Close stops the I/O workers after queued tasks finish.
func (p *Pools) Close() {
	p.IO.Close()
}

// ComputePool bounds CPU-bound fork-join work. Its capacity is shared by
// every concurrent ForEach and by parallel phases.
type ComputePool struct {
	size   int
	sem    *semaphore.Weighted
	logger logger.Logger
}

// NewComputePool creates a compute pool with the given capacity.
func NewComputePool(size int, log logger.Logger) *ComputePool {
	if size < 1 {
		size = 1
	}
	return &ComputePool{
		size:   size,
		sem:    semaphore.NewWeighted(int64(size)),
		logger: log,
	}
}

// Size returns the pool capacity.
func (p *ComputePool) Size() int {
	return p.size
}

// ForEach calls fn for every index in [0, n) and returns once all calls
// returned. Calls run on free pool slots; when the pool is saturated the
// caller runs the item itself, so nested use cannot deadlock. All items run
// even if some fail; the first error is returned.
func (p *ComputePool) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}

	g := NewSafeGroup(p.logger)
	var (
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for i := 0; i < n; i++ {
		if p.sem.TryAcquire(1) {
			g.Go(func() error {
				defer p.sem.Release(1)
				return fn(ctx, i)
			})
			continue
		}
		record(g.protect(func() error { return fn(ctx, i) }))
	}

	record(g.Wait())
	return firstErr
}

// run executes fn on a pool slot, blocking until one is free. It is used
// by the parallel phase executor, whose workers never nest.
func (p *ComputePool) run(fn func()) {
	_ = p.sem.Acquire(context.Background(), 1)
	defer p.sem.Release(1)
	fn()
}

// IOPool runs background tasks on a fixed set of workers. Submit never
// blocks; tasks wait in an unbounded FIFO until a worker is free.
type IOPool struct {
	size   int
	logger logger.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
	wg     sync.WaitGroup
}

// NewIOPool starts size workers.
func NewIOPool(size int, log logger.Logger) *IOPool {
	if size < 1 {
		size = 1
	}
	p := &IOPool{size: size, logger: log}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

// Size returns the worker count.
func (p *IOPool) Size() int {
	return p.size
}

// Submit queues fn for execution. Submitting to a closed pool panics.
func (p *IOPool) Submit(fn func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic("engine: submit on closed I/O pool")
	}
	p.tasks = append(p.tasks, fn)
	p.mu.Unlock()
	p.cond.Signal()
}

// Close stops accepting work and waits for queued tasks to finish.
func (p *IOPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *IOPool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.tasks) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.tasks) == 0 {
			p.mu.Unlock()
			return
		}
		fn := p.tasks[0]
		p.tasks[0] = nil
		p.tasks = p.tasks[1:]
		p.mu.Unlock()

		p.execute(fn)
	}
}

func (p *IOPool) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("I/O worker panic recovered",
				logger.WithField("panic", fmt.Sprint(r)),
				logger.WithField("stack_trace", string(debug.Stack())))
		}
	}()
	fn()
}
