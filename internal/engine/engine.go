// Package engine provides the staged execution engine behind a site build.
//
// A Pipeline runs an ordered list of phases. Each phase executes its work
// units either one at a time on the driving goroutine or concurrently on
// the compute pool. Work units may hand background tasks to the I/O pool
// through a Deferred. Background tasks never touch the shared state; they
// enqueue Commands, and the pipeline applies those commands at the barrier
// that closes every phase, once all outstanding tasks have released.
//
// Layout:
//   - pools.go: pool sizing and the compute/I/O pools
//   - safegroup.go: panic-safe fork-join
//   - coordinator.go: outstanding-task accounting and the completion barrier
//   - deferred.go: spawn handles and task scopes
//   - queue.go: the command queue
//   - executor.go: sequential and DAG-ordered parallel phase execution
//   - pipeline.go: the driver
package engine

import "fmt"

// Mode selects how a phase executes its work units.
type Mode int

const (
	// Sequential runs units one at a time in registration order on the
	// driving goroutine.
	Sequential Mode = iota
	// Parallel runs units concurrently on the compute pool, respecting
	// declared run-after dependencies.
	Parallel
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Command is a deferred mutation of the shared state. It is applied exactly
// once, on the driving goroutine, while no work unit is executing.
type Command[S any] func(state S)

// Phase describes a registered phase.
type Phase struct {
	Name string
	Mode Mode
}

// Names of the standard site-build phases.
const (
	PhasePreload     = "Preload"
	PhaseLoad        = "Load"
	PhaseProcess     = "Process"
	PhasePostProcess = "PostProcess"
	PhaseWrite       = "Write"
)

// StandardPhases returns the five phases of a site build in run order.
func StandardPhases() []Phase {
	return []Phase{
		{Name: PhasePreload, Mode: Sequential},
		{Name: PhaseLoad, Mode: Sequential},
		{Name: PhaseProcess, Mode: Parallel},
		{Name: PhasePostProcess, Mode: Parallel},
		{Name: PhaseWrite, Mode: Sequential},
	}
}
