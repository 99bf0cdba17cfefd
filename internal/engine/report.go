package engine

import "time"

// PhaseReport records what happened in one phase and its barrier.
type PhaseReport struct {
	Name            string
	Mode            Mode
	Units           int
	UnitsFailed     int
	TasksSpawned    int64
	TasksFailed     int64
	WaitIterations  int64
	CommandsApplied int
	CommandsFailed  int
	Duration        time.Duration
}

// Report summarizes a pipeline run. Err is set only when the pipeline could
// not run at all.
type Report struct {
	RunID    string
	Phases   []PhaseReport
	Duration time.Duration
	Err      error
}

// UnitsFailed totals failed work units over all phases.
func (r *Report) UnitsFailed() int {
	n := 0
	for _, ph := range r.Phases {
		n += ph.UnitsFailed
	}
	return n
}

// TasksSpawned totals background tasks over all phases.
func (r *Report) TasksSpawned() int64 {
	var n int64
	for _, ph := range r.Phases {
		n += ph.TasksSpawned
	}
	return n
}

// TasksFailed totals failed background tasks over all phases.
func (r *Report) TasksFailed() int64 {
	var n int64
	for _, ph := range r.Phases {
		n += ph.TasksFailed
	}
	return n
}

// CommandsApplied totals applied commands over all phases.
func (r *Report) CommandsApplied() int {
	n := 0
	for _, ph := range r.Phases {
		n += ph.CommandsApplied
	}
	return n
}

// Failed reports whether anything went wrong during the run.
func (r *Report) Failed() bool {
	if r.Err != nil || r.UnitsFailed() > 0 || r.TasksFailed() > 0 {
		return true
	}
	for _, ph := range r.Phases {
		if ph.CommandsFailed > 0 {
			return true
		}
	}
	return false
}

// Phase returns the report of the named phase.
func (r *Report) Phase(name string) (PhaseReport, bool) {
	for _, ph := range r.Phases {
		if ph.Name == name {
			return ph, true
		}
	}
	return PhaseReport{}, false
}
