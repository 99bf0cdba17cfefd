// Package watcher watches the site's input directories and reports
// settled batches of changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/webvy/webvy/pkg/interfaces"
	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/utils"
)

// Config configures a Watcher.
type Config struct {
	// Root is the project root; exclusions match paths relative to it.
	Root string
	// Paths are watched recursively. Missing paths are skipped.
	Paths []string
	// Files are watched individually through their parent directory.
	Files    []string
	Exclude  []string
	Settling time.Duration
}

// Watcher is a recursive fsnotify watcher that debounces events: a batch
// is delivered once no event arrived for the settling delay.
type Watcher struct {
	cfg     Config
	fs      *fsnotify.Watcher
	matcher *utils.PatternMatcher
	files   map[string]struct{}
	logger  logger.Logger

	mu      sync.Mutex
	pending map[string]interfaces.ChangeType
	timer   *time.Timer
}

// New creates a watcher and registers every directory under cfg.Paths.
func New(cfg Config, log logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.Settling <= 0 {
		cfg.Settling = 200 * time.Millisecond
	}

	matcher, err := utils.NewPatternMatcher(cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid exclusion: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		fs:      fw,
		matcher: matcher,
		files:   make(map[string]struct{}),
		logger:  log,
		pending: make(map[string]interfaces.ChangeType),
	}

	for _, p := range cfg.Paths {
		if !utils.DirectoryExists(p) {
			log.Debug("Skipping missing watch path", logger.WithField("path", p))
			continue
		}
		if err := w.addTree(p); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		w.files[abs] = struct{}{}
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			log.Warn("Failed to watch file", logger.WithField("path", f), logger.WithError(err))
		}
	}
	return w, nil
}

// Watched returns the watched directories.
func (w *Watcher) Watched() []string {
	list := w.fs.WatchList()
	sort.Strings(list)
	return list
}

func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.excluded(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", logger.WithField("path", path), logger.WithError(err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return nil
}

func (w *Watcher) excluded(path string) bool {
	rel := path
	if w.cfg.Root != "" {
		if r, err := filepath.Rel(w.cfg.Root, path); err == nil {
			rel = r
		}
	}
	return w.matcher.Match(filepath.ToSlash(rel))
}

// relevant filters events from directories registered for single files.
func (w *Watcher) relevant(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if _, ok := w.files[abs]; ok {
		return true
	}
	for _, root := range w.cfg.Paths {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(rootAbs, abs); err == nil && rel != ".." && !startsWithParent(rel) {
			return true
		}
	}
	return false
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// Run delivers settled batches to callback until ctx ends. The callback
// runs on Run's goroutine.
func (w *Watcher) Run(ctx context.Context, callback interfaces.FileChangeCallback) error {
	flush := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event, flush)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", logger.WithError(err))

		case <-flush:
			if batch := w.drain(); len(batch) > 0 {
				callback(batch)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, flush chan<- struct{}) {
	if w.excluded(event.Name) || !w.relevant(event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", logger.WithError(err))
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[event.Name] = changeType(event)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Settling, func() {
		select {
		case flush <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) drain() []interfaces.FileChange {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch := make([]interfaces.FileChange, 0, len(w.pending))
	for path, typ := range w.pending {
		batch = append(batch, interfaces.FileChange{Path: path, Type: typ})
	}
	w.pending = make(map[string]interfaces.ChangeType)
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func changeType(event fsnotify.Event) interfaces.ChangeType {
	switch {
	case event.Has(fsnotify.Create):
		return interfaces.ChangeCreated
	case event.Has(fsnotify.Remove):
		return interfaces.ChangeDeleted
	case event.Has(fsnotify.Rename):
		return interfaces.ChangeRenamed
	default:
		if _, err := os.Stat(event.Name); errors.Is(err, os.ErrNotExist) {
			return interfaces.ChangeDeleted
		}
		return interfaces.ChangeModified
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.fs.Close()
}
