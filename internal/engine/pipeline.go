package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	wcontext "github.com/webvy/webvy/pkg/context"
	"github.com/webvy/webvy/pkg/logger"
)

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	pollInterval time.Duration
}

// WithPollInterval sets the upper bound of a single barrier wait.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// Pipeline drives a fixed, ordered list of phases over a shared state.
type Pipeline[S any] struct {
	mu     sync.Mutex
	ran    bool
	phases []*phaseSpec[S]
	index  map[string]*phaseSpec[S]

	state    S
	coord    *Coordinator
	queue    *CommandQueue[S]
	deferred *Deferred[S]
	exec     *executor[S]
	logger   logger.Logger
}

// New creates an empty pipeline over state. The pools are shared, not
// owned: closing them is up to the caller.
func New[S any](state S, pools *Pools, log logger.Logger, opts ...Option) *Pipeline[S] {
	o := options{pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	coord := NewCoordinator(pools.IO, o.pollInterval, log)
	queue := NewCommandQueue[S](log)
	deferred := newDeferred(coord, queue, pools, log)

	return &Pipeline[S]{
		index:    make(map[string]*phaseSpec[S]),
		state:    state,
		coord:    coord,
		queue:    queue,
		deferred: deferred,
		exec: &executor[S]{
			state:    state,
			deferred: deferred,
			compute:  pools.Compute,
			logger:   log,
		},
		logger: log,
	}
}

// NewStandard creates a pipeline with the five site-build phases
// registered.
func NewStandard[S any](state S, pools *Pools, log logger.Logger, opts ...Option) *Pipeline[S] {
	p := New(state, pools, log, opts...)
	for _, ph := range StandardPhases() {
		if err := p.Register(ph.Name, ph.Mode); err != nil {
			panic(fmt.Sprintf("engine: registering standard phase %s: %v", ph.Name, err))
		}
	}
	return p
}

// Register appends a phase. Phases run in registration order.
func (p *Pipeline[S]) Register(name string, mode Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ran {
		return ErrAlreadyRan
	}
	if name == "" {
		return registrationErr(ErrInvalidRegistration, "", "", "phase name is empty")
	}
	if mode != Sequential && mode != Parallel {
		return registrationErr(ErrInvalidRegistration, name, "", "unsupported mode %s", mode)
	}
	if _, exists := p.index[name]; exists {
		return registrationErr(ErrDuplicatePhase, name, "", "")
	}

	ph := &phaseSpec[S]{
		Phase: Phase{Name: name, Mode: mode},
		index: make(map[string]*workUnit[S]),
	}
	p.phases = append(p.phases, ph)
	p.index[name] = ph
	return nil
}

// AddWorkUnit binds fn to a phase. after names units of the same phase
// that must finish first. In a sequential phase they must already be
// registered; in a parallel phase they may be added later and are checked
// by Validate.
func (p *Pipeline[S]) AddWorkUnit(phase, name string, fn WorkFunc[S], after ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ran {
		return ErrAlreadyRan
	}
	ph, ok := p.index[phase]
	if !ok {
		return registrationErr(ErrUnknownPhase, phase, name, "")
	}
	if name == "" || fn == nil {
		return registrationErr(ErrInvalidRegistration, phase, name, "work unit needs a name and a function")
	}
	if _, exists := ph.index[name]; exists {
		return registrationErr(ErrDuplicateUnit, phase, name, "")
	}

	deps := make([]string, 0, len(after))
	seen := make(map[string]bool, len(after))
	for _, dep := range after {
		if dep == name {
			return registrationErr(ErrSelfDependency, phase, name, "")
		}
		if seen[dep] {
			continue
		}
		if ph.Mode == Sequential {
			if _, exists := ph.index[dep]; !exists {
				return registrationErr(ErrForwardDependency, phase, name, "%q is not registered before it", dep)
			}
		}
		seen[dep] = true
		deps = append(deps, dep)
	}

	u := &workUnit[S]{name: name, fn: fn, after: deps}
	ph.units = append(ph.units, u)
	ph.index[name] = u
	return nil
}

// Validate checks that every dependency exists and that no phase contains
// a dependency cycle.
func (p *Pipeline[S]) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.validateLocked()
}

func (p *Pipeline[S]) validateLocked() error {
	for _, ph := range p.phases {
		for _, u := range ph.units {
			for _, dep := range u.after {
				if _, ok := ph.index[dep]; !ok {
					return registrationErr(ErrUnknownDependency, ph.Name, u.name, "%q", dep)
				}
			}
		}
		if path := findCycle(ph); path != nil {
			return cycleErr(ph.Name, path)
		}
	}
	return nil
}

// findCycle returns the first dependency cycle found, as a path that
// starts and ends with the same unit.
func findCycle[S any](ph *phaseSpec[S]) []string {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(ph.units))
	var stack []string

	var visit func(name string) []string
	visit = func(name string) []string {
		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range ph.index[name].after {
			switch state[dep] {
			case visiting:
				for i, s := range stack {
					if s == dep {
						path := append([]string{}, stack[i:]...)
						return append(path, dep)
					}
				}
			case unvisited:
				if path := visit(dep); path != nil {
					return path
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = visited
		return nil
	}

	for _, u := range ph.units {
		if state[u.name] == unvisited {
			if path := visit(u.name); path != nil {
				return path
			}
		}
	}
	return nil
}

// Phases lists the registered phases in run order.
func (p *Pipeline[S]) Phases() []Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Phase, len(p.phases))
	for i, ph := range p.phases {
		out[i] = ph.Phase
	}
	return out
}

// Units lists the work units of a phase in registration order.
func (p *Pipeline[S]) Units(phase string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ph, ok := p.index[phase]
	if !ok {
		return nil
	}
	out := make([]string, len(ph.units))
	for i, u := range ph.units {
		out[i] = u.name
	}
	return out
}

// State returns the shared state.
func (p *Pipeline[S]) State() S {
	return p.state
}

// Stats returns the task accounting snapshot.
func (p *Pipeline[S]) Stats() CoordinatorStats {
	return p.coord.Stats()
}

// Run executes each phase once, in order. After every phase it waits for
// all outstanding background tasks, then applies their commands before the
// next phase starts. Failures are logged and recorded in the report; Run
// itself only fails for an invalid pipeline or a second call.
func (p *Pipeline[S]) Run(ctx context.Context) *Report {
	p.mu.Lock()
	if p.ran {
		p.mu.Unlock()
		p.logger.Error("Pipeline run requested twice")
		return &Report{Err: ErrAlreadyRan}
	}
	p.ran = true
	err := p.validateLocked()
	phases := p.phases
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("Pipeline is invalid", logger.WithError(err))
		return &Report{Err: fmt.Errorf("validate pipeline: %w", err)}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx = wcontext.EnrichContext(ctx)
	report := &Report{RunID: wcontext.GetRunID(ctx)}
	start := time.Now()

	for _, ph := range phases {
		report.Phases = append(report.Phases, p.runPhase(ctx, ph))
	}

	p.queue.Close()
	report.Duration = time.Since(start)
	return report
}

func (p *Pipeline[S]) runPhase(ctx context.Context, ph *phaseSpec[S]) PhaseReport {
	ctx = wcontext.WithPhase(ctx, ph.Name)
	log := logger.WithContext(ctx, p.logger)
	before := p.coord.Stats()
	start := time.Now()

	log.Debug(fmt.Sprintf("Running %d unit(s)", len(ph.units)), logger.WithField("mode", ph.Mode.String()))
	failed := p.exec.run(ctx, ph)

	p.coord.PumpLocal()
	if p.coord.Outstanding() > 0 {
		p.coord.WaitUntilDrained()
	}
	applied := p.queue.DrainAndApply(p.state)

	after := p.coord.Stats()
	pr := PhaseReport{
		Name:            ph.Name,
		Mode:            ph.Mode,
		Units:           len(ph.units),
		UnitsFailed:     failed,
		TasksSpawned:    after.Spawned - before.Spawned,
		TasksFailed:     after.Failed - before.Failed,
		WaitIterations:  after.WaitIterations - before.WaitIterations,
		CommandsApplied: applied.Applied,
		CommandsFailed:  applied.Failed,
		Duration:        time.Since(start),
	}
	log.Debug("Phase barrier cleared",
		logger.WithField("tasks", pr.TasksSpawned),
		logger.WithField("commands", pr.CommandsApplied),
		logger.WithField("wait_iterations", pr.WaitIterations))
	return pr
}
