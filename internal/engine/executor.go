package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	wcontext "github.com/webvy/webvy/pkg/context"
	"github.com/webvy/webvy/pkg/logger"
)

// WorkFunc is a work unit. It may read and write the shared state directly
// and hand background work to d.
type WorkFunc[S any] func(ctx context.Context, state S, d *Deferred[S]) error

type workUnit[S any] struct {
	name  string
	fn    WorkFunc[S]
	after []string
}

type phaseSpec[S any] struct {
	Phase
	units []*workUnit[S]
	index map[string]*workUnit[S]
}

type executor[S any] struct {
	state    S
	deferred *Deferred[S]
	compute  *ComputePool
	logger   logger.Logger
}

// run executes every unit of the phase once and returns the number of
// units that failed. It returns only after all units returned.
func (e *executor[S]) run(ctx context.Context, ph *phaseSpec[S]) int {
	if len(ph.units) == 0 {
		return 0
	}
	if ph.Mode == Parallel {
		return e.runParallel(ctx, ph)
	}
	return e.runSequential(ctx, ph)
}

func (e *executor[S]) runSequential(ctx context.Context, ph *phaseSpec[S]) int {
	failed := 0
	for _, u := range ph.units {
		if !e.invoke(ctx, u) {
			failed++
		}
	}
	return failed
}

type dagNode[S any] struct {
	unit       *workUnit[S]
	depCount   atomic.Int32
	dependents []*dagNode[S]
}

// runParallel schedules units as a DAG: a node becomes ready once every
// predecessor finished, whether it succeeded or not.
func (e *executor[S]) runParallel(ctx context.Context, ph *phaseSpec[S]) int {
	nodes := make(map[string]*dagNode[S], len(ph.units))
	order := make([]*dagNode[S], 0, len(ph.units))
	for _, u := range ph.units {
		n := &dagNode[S]{unit: u}
		nodes[u.name] = n
		order = append(order, n)
	}
	for _, n := range order {
		for _, dep := range n.unit.after {
			parent := nodes[dep]
			parent.dependents = append(parent.dependents, n)
			n.depCount.Add(1)
		}
	}

	readyChan := make(chan *dagNode[S], len(order))
	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	wg.Add(len(order))

	// roots are queued before any worker starts, so a node reached through
	// its last predecessor is never queued a second time
	for _, n := range order {
		if n.depCount.Load() == 0 {
			readyChan <- n
		}
	}

	workers := min(e.compute.Size(), len(order))
	g := NewSafeGroup(e.logger)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for n := range readyChan {
				e.compute.run(func() {
					if !e.invoke(ctx, n.unit) {
						failed.Add(1)
					}
				})
				for _, dependent := range n.dependents {
					if dependent.depCount.Add(-1) == 0 {
						readyChan <- dependent
					}
				}
				wg.Done()
			}
			return nil
		})
	}

	wg.Wait()
	close(readyChan)
	_ = g.Wait()
	return int(failed.Load())
}

// invoke runs one unit, converting errors and panics into a logged failure.
func (e *executor[S]) invoke(ctx context.Context, u *workUnit[S]) (ok bool) {
	ctx = wcontext.WithTask(ctx, u.name)
	log := logger.WithContext(ctx, e.logger)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			ok = false
			log.Error("Work unit panicked",
				logger.WithField("panic", fmt.Sprint(r)),
				logger.WithField("stack_trace", string(debug.Stack())))
		}
	}()

	if err := u.fn(ctx, e.state, e.deferred); err != nil {
		log.Error("Work unit failed", logger.WithError(err))
		return false
	}
	log.Debug("Work unit finished", logger.WithField("elapsed", time.Since(start).String()))
	return true
}
