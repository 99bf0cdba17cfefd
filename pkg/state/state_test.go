package state_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/webvy/webvy/pkg/state"
	"github.com/webvy/webvy/pkg/types"
)

func TestStateManager_LoadMissing(t *testing.T) {
	sm := state.NewStateManager(t.TempDir(), nil)

	if err := sm.Load(); err != nil {
		t.Fatalf("expected no error for missing state, got %v", err)
	}
	snap := sm.Snapshot()
	if snap.Version != state.Version {
		t.Errorf("expected version %s, got %s", state.Version, snap.Version)
	}
	if len(snap.Outputs) != 0 || snap.LastBuild != nil {
		t.Errorf("expected empty manifest, got %+v", snap)
	}
}

func TestStateManager_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	sm := state.NewStateManager(tmpDir, nil)

	sm.RecordOutput("index.html", "abc")
	sm.RecordOutput("posts/a.html", "def")
	sm.FinishBuild(types.BuildRecord{
		Status:       types.BuildStatusSucceeded,
		RunID:        "run_1",
		StartedAt:    time.Now(),
		PagesWritten: 2,
	})

	if err := sm.Save(); err != nil {
		t.Fatalf("failed to save state: %v", err)
	}

	stateFile := filepath.Join(tmpDir, ".webvy", "state.json")
	if _, err := os.Stat(stateFile); err != nil {
		t.Fatalf("state file was not created: %v", err)
	}

	reloaded := state.NewStateManager(tmpDir, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("failed to load state: %v", err)
	}

	if sum, ok := reloaded.Checksum("posts/a.html"); !ok || sum != "def" {
		t.Errorf("expected checksum def, got %q (%v)", sum, ok)
	}
	snap := reloaded.Snapshot()
	if snap.BuildCount != 1 {
		t.Errorf("expected build count 1, got %d", snap.BuildCount)
	}
	if snap.LastBuild == nil || snap.LastBuild.RunID != "run_1" {
		t.Errorf("expected last build run_1, got %+v", snap.LastBuild)
	}
	if got := reloaded.Outputs(); len(got) != 2 || got[0] != "index.html" {
		t.Errorf("unexpected outputs %v", got)
	}
}

func TestStateManager_CorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	sm := state.NewStateManager(tmpDir, nil)

	if err := os.MkdirAll(filepath.Dir(sm.Path()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(sm.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := sm.Load(); err == nil {
		t.Error("expected error for corrupt state file")
	}
	if len(sm.Checksums()) != 0 {
		t.Error("expected empty manifest after corrupt load")
	}
}

func TestStateManager_FileFormat(t *testing.T) {
	tmpDir := t.TempDir()
	sm := state.NewStateManager(tmpDir, nil)
	sm.RecordOutput("index.html", "123")
	if err := sm.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(sm.Path())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("state file is not JSON: %v", err)
	}
	for _, key := range []string{"version", "build_count", "outputs", "updated_at"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected key %q in state file", key)
		}
	}
}

func TestStateManager_SnapshotIsCopy(t *testing.T) {
	sm := state.NewStateManager(t.TempDir(), nil)
	sm.RecordOutput("a.html", "1")

	snap := sm.Snapshot()
	snap.Outputs["a.html"] = "changed"

	if sum, _ := sm.Checksum("a.html"); sum != "1" {
		t.Errorf("snapshot mutation leaked into manager: %s", sum)
	}
}

func TestStateManager_Remove(t *testing.T) {
	sm := state.NewStateManager(t.TempDir(), nil)
	sm.RecordOutput("a.html", "1")
	if err := sm.Save(); err != nil {
		t.Fatal(err)
	}

	if err := sm.Remove(); err != nil {
		t.Fatalf("failed to remove state: %v", err)
	}
	if _, err := os.Stat(sm.Path()); !os.IsNotExist(err) {
		t.Error("state file still exists")
	}
	if err := sm.Remove(); err != nil {
		t.Errorf("second remove should succeed, got %v", err)
	}
}

func TestStateManager_ConcurrentRecord(t *testing.T) {
	sm := state.NewStateManager(t.TempDir(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sm.RecordOutput(filepath.Join("p", string(rune('a'+i%26)), "x.html"), "sum")
			_ = sm.Checksums()
		}(i)
	}
	wg.Wait()

	if got := len(sm.Checksums()); got != 26 {
		t.Errorf("expected 26 distinct outputs, got %d", got)
	}
}
