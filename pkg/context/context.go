package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

// Context keys for build tracing.
const (
	runIDKey ctxKey = iota
	phaseKey
	taskKey
	startTimeKey
)

const (
	unknownRun   = "unknown-run"
	unknownPhase = "unknown-phase"
	unknownTask  = "unknown-task"
)

// WithRunID tags the context with a build run ID, generating one if empty.
func WithRunID(parent context.Context, runID string) context.Context {
	if runID == "" {
		runID = GenerateRunID()
	}
	return context.WithValue(parent, runIDKey, runID)
}

// GetRunID retrieves the build run ID from context
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		return id
	}
	return unknownRun
}

// HasRunID reports whether a run ID was attached.
func HasRunID(ctx context.Context) bool {
	return GetRunID(ctx) != unknownRun
}

// WithPhase adds the executing phase name to the context
func WithPhase(parent context.Context, phase string) context.Context {
	return context.WithValue(parent, phaseKey, phase)
}

// GetPhase retrieves the phase name from context
func GetPhase(ctx context.Context) string {
	if p, ok := ctx.Value(phaseKey).(string); ok && p != "" {
		return p
	}
	return unknownPhase
}

// WithTask adds a work unit or background task name to the context
func WithTask(parent context.Context, task string) context.Context {
	return context.WithValue(parent, taskKey, task)
}

// GetTask retrieves the task name from context
func GetTask(ctx context.Context) string {
	if t, ok := ctx.Value(taskKey).(string); ok && t != "" {
		return t
	}
	return unknownTask
}

// WithStartTime adds the run start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the start time from context. The zero time is
// returned when none was set.
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// GetDuration returns the time elapsed since the start time in context,
// or zero when the context carries no start time.
func GetDuration(ctx context.Context) time.Duration {
	startTime := GetStartTime(ctx)
	if startTime.IsZero() {
		return 0
	}
	return time.Since(startTime)
}

// GenerateRunID creates a new unique run ID
func GenerateRunID() string {
	return "run_" + uuid.New().String()
}

// EnrichContext attaches a run ID (if missing) and the current start time.
func EnrichContext(parent context.Context) context.Context {
	ctx := parent
	if !HasRunID(ctx) {
		ctx = WithRunID(ctx, GenerateRunID())
	}
	return WithStartTime(ctx, time.Now())
}

// TracingFields returns common tracing fields for structured logging
func TracingFields(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"run_id":      GetRunID(ctx),
		"phase":       GetPhase(ctx),
		"task":        GetTask(ctx),
		"duration_ms": GetDuration(ctx).Milliseconds(),
	}
}
