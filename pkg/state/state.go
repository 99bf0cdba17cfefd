// Package state persists the build manifest between runs
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/types"
	"github.com/webvy/webvy/pkg/utils"
)

const (
	// Dir is the state directory under the project root.
	Dir = ".webvy"
	// FileName is the manifest file inside Dir.
	FileName = "state.json"
	// Version is written into every manifest.
	Version = "1"
)

// StateManager owns the build manifest: one checksum per written output
// plus the outcome of the last build.
type StateManager struct {
	path   string
	logger logger.Logger
	mu     sync.RWMutex
	state  types.BuildState
}

// NewStateManager creates a manager for projectRoot/.webvy/state.json. The
// manifest is empty until Load is called.
func NewStateManager(projectRoot string, log logger.Logger) *StateManager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &StateManager{
		path:   filepath.Join(projectRoot, Dir, FileName),
		logger: log,
		state:  emptyState(),
	}
}

func emptyState() types.BuildState {
	return types.BuildState{
		Version: Version,
		Outputs: make(map[string]string),
	}
}

// Path returns the manifest location.
func (sm *StateManager) Path() string {
	return sm.path
}

// Load reads the manifest. A missing file leaves an empty manifest and is
// not an error; a corrupt one is reported and replaced by an empty one.
func (sm *StateManager) Load() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	data, err := os.ReadFile(sm.path)
	if errors.Is(err, os.ErrNotExist) {
		sm.state = emptyState()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var loaded types.BuildState
	if err := json.Unmarshal(data, &loaded); err != nil {
		sm.state = emptyState()
		return fmt.Errorf("failed to parse state file: %w", err)
	}
	if loaded.Outputs == nil {
		loaded.Outputs = make(map[string]string)
	}
	sm.state = loaded

	sm.logger.Debug("Loaded build state",
		logger.WithField("path", sm.path),
		logger.WithField("outputs", len(loaded.Outputs)))
	return nil
}

// Save writes the manifest atomically.
func (sm *StateManager) Save() error {
	sm.mu.Lock()
	sm.state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(sm.state, "", "  ")
	sm.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := utils.WriteFileAtomic(sm.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Checksum returns the recorded checksum for an output path.
func (sm *StateManager) Checksum(output string) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sum, ok := sm.state.Outputs[output]
	return sum, ok
}

// Checksums returns a copy of every recorded output checksum.
func (sm *StateManager) Checksums() map[string]string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make(map[string]string, len(sm.state.Outputs))
	for k, v := range sm.state.Outputs {
		out[k] = v
	}
	return out
}

// RecordOutput stores the checksum of a written output.
func (sm *StateManager) RecordOutput(output, checksum string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state.Outputs[output] = checksum
}

// Outputs returns the recorded output paths, sorted.
func (sm *StateManager) Outputs() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	paths := make([]string, 0, len(sm.state.Outputs))
	for p := range sm.state.Outputs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FinishBuild stores the outcome of a build and bumps the build count.
func (sm *StateManager) FinishBuild(record types.BuildRecord) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state.BuildCount++
	sm.state.LastBuild = &record
}

// Snapshot returns a copy of the manifest.
func (sm *StateManager) Snapshot() types.BuildState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	cp := sm.state
	cp.Outputs = make(map[string]string, len(sm.state.Outputs))
	for k, v := range sm.state.Outputs {
		cp.Outputs[k] = v
	}
	if sm.state.LastBuild != nil {
		last := *sm.state.LastBuild
		cp.LastBuild = &last
	}
	return cp
}

// Remove deletes the manifest and resets the in-memory copy.
func (sm *StateManager) Remove() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.state = emptyState()
	if err := os.Remove(sm.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
