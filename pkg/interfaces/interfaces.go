// Package interfaces provides abstractions for dependency injection and testability
package interfaces

import (
	"context"
	"time"

	"github.com/webvy/webvy/pkg/types"
)

//go:generate mockgen -destination=../mocks/mocks.go -package=mocks github.com/webvy/webvy/pkg/interfaces StateStore,Notifier,Watcher

// StateStore persists the build manifest between runs.
type StateStore interface {
	Load() error
	Save() error
	Checksums() map[string]string
	RecordOutput(output, checksum string)
	FinishBuild(record types.BuildRecord)
	Remove() error
}

// Notifier reports rebuild outcomes to the user.
type Notifier interface {
	NotifyBuildStart(site string, changed int)
	NotifyBuildSuccess(site string, pages int, duration time.Duration)
	NotifyBuildFailure(site string, err error)
}

// ChangeType classifies a file change.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
)

// FileChange represents a changed file
type FileChange struct {
	Path string
	Type ChangeType
}

// FileChangeCallback receives one settled batch of changes.
type FileChangeCallback func(changes []FileChange)

// Watcher reports settled batches of file changes until ctx ends.
type Watcher interface {
	Run(ctx context.Context, callback FileChangeCallback) error
	Close() error
}
