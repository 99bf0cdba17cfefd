package context

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTracingKeysAreIndependent(t *testing.T) {
	start := time.Now().Add(-time.Second)

	ctx := WithRunID(context.Background(), "run_1")
	ctx = WithPhase(ctx, "Load")
	ctx = WithTask(ctx, "read_config")
	ctx = WithStartTime(ctx, start)

	if got := GetRunID(ctx); got != "run_1" {
		t.Errorf("GetRunID() = %q, want run_1", got)
	}
	if got := GetPhase(ctx); got != "Load" {
		t.Errorf("GetPhase() = %q, want Load", got)
	}
	if got := GetTask(ctx); got != "read_config" {
		t.Errorf("GetTask() = %q, want read_config", got)
	}
	if got := GetStartTime(ctx); !got.Equal(start) {
		t.Errorf("GetStartTime() = %v, want %v", got, start)
	}
}

func TestEnrichContext(t *testing.T) {
	ctx := EnrichContext(WithPhase(context.Background(), "Write"))

	if !HasRunID(ctx) {
		t.Fatal("expected a run ID")
	}
	if id := GetRunID(ctx); !strings.HasPrefix(id, "run_") {
		t.Errorf("unexpected run ID %q", id)
	}
	if GetPhase(ctx) != "Write" {
		t.Errorf("enrichment dropped the phase, got %q", GetPhase(ctx))
	}
	if GetStartTime(ctx).IsZero() {
		t.Error("expected a start time")
	}

	// an existing run ID is kept
	again := EnrichContext(ctx)
	if GetRunID(again) != GetRunID(ctx) {
		t.Errorf("run ID changed from %q to %q", GetRunID(ctx), GetRunID(again))
	}
}

func TestDefaults(t *testing.T) {
	ctx := context.Background()

	if GetRunID(ctx) != unknownRun || GetPhase(ctx) != unknownPhase || GetTask(ctx) != unknownTask {
		t.Errorf("unexpected defaults: %v", TracingFields(ctx))
	}
	if HasRunID(ctx) {
		t.Error("empty context must not report a run ID")
	}
	if GetDuration(ctx) != 0 {
		t.Error("expected zero duration without a start time")
	}
}
