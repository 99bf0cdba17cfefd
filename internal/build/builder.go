// Package build assembles the site pipeline from its processors and runs
// it, either once or on every settled batch of file changes.
package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/webvy/webvy/internal/engine"
	"github.com/webvy/webvy/internal/processor"
	"github.com/webvy/webvy/internal/site"
	"github.com/webvy/webvy/internal/watcher"
	"github.com/webvy/webvy/pkg/config"
	wcontext "github.com/webvy/webvy/pkg/context"
	"github.com/webvy/webvy/pkg/interfaces"
	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/types"
)

// ErrBuildFailed is returned when a run finished with failures.
var ErrBuildFailed = errors.New("build failed")

// Result is the outcome of one build.
type Result struct {
	Report *engine.Report
	Site   *site.Site
	Record types.BuildRecord
}

// Builder runs the standard pipeline over one project. Pools are created
// once and shared by every run.
type Builder struct {
	projectRoot string
	configPath  string
	logger      logger.Logger
	state       interfaces.StateStore
	notifier    interfaces.Notifier
	newWatcher  WatcherFunc
	pools       *engine.Pools
	overrides   []func(*types.SiteConfig)

	mu     sync.RWMutex
	config *types.SiteConfig

	// buildMu serializes runs; watch rebuilds and config reloads may race.
	buildMu     sync.Mutex
	stateLoaded bool
	builds      int
}

// New creates a builder. config sizes the pools and tunes watch mode; the
// pipeline itself reads configPath on every run. Overrides are applied to
// the configuration each run loads.
func New(
	config *types.SiteConfig,
	projectRoot string,
	configPath string,
	log logger.Logger,
	deps Dependencies,
	overrides ...func(*types.SiteConfig),
) *Builder {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if deps.State == nil {
		panic("State dependency is required")
	}
	if deps.NewWatcher == nil {
		deps.NewWatcher = defaultWatcher
	}
	if config == nil {
		config = &types.SiteConfig{}
		config.ApplyDefaults()
	}

	if abs, err := filepath.Abs(projectRoot); err == nil {
		projectRoot = abs
	} else {
		log.Error(fmt.Sprintf("Failed to get absolute path for project root: %v", err))
	}
	if configPath == "" {
		configPath = types.DefaultConfigFile
	}

	sizes := engine.PoolSizes{Compute: config.Build.ComputeThreads, IO: config.Build.IOThreads}
	return &Builder{
		projectRoot: projectRoot,
		configPath:  configPath,
		logger:      log,
		state:       deps.State,
		notifier:    deps.Notifier,
		newWatcher:  deps.NewWatcher,
		pools:       engine.NewPools(sizes, log),
		overrides:   overrides,
		config:      config,
	}
}

// Close stops the shared pools.
func (b *Builder) Close() {
	b.pools.Close()
}

// Pools returns the shared worker pools.
func (b *Builder) Pools() *engine.Pools {
	return b.pools
}

// Config returns the configuration the builder currently holds.
func (b *Builder) Config() *types.SiteConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

func (b *Builder) setConfig(cfg *types.SiteConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = cfg
}

// Builds returns the number of completed runs.
func (b *Builder) Builds() int {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()
	return b.builds
}

func (b *Builder) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.projectRoot, p)
}

// Build runs a fresh pipeline once, records the outcome in the build state
// and saves it. The result is returned even when the run failed.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx = wcontext.EnrichContext(ctx)
	log := logger.WithContext(ctx, b.logger)
	started := time.Now()

	if !b.stateLoaded {
		if err := b.state.Load(); err != nil {
			log.Warn("Failed to load build state, starting fresh", logger.WithError(err))
		}
		b.stateLoaded = true
	}

	cfg := b.Config()
	s := site.New(b.projectRoot, b.configPath)
	s.SetPrevious(b.state.Checksums())

	p := engine.NewStandard(s, b.pools, b.logger, engine.WithPollInterval(cfg.Build.PollInterval()))
	procs := processor.Defaults(processor.Options{
		Logger:    b.logger,
		Recorder:  b.state,
		Overrides: b.overrides,
	})
	if err := processor.RegisterAll(p, procs...); err != nil {
		return nil, fmt.Errorf("failed to assemble pipeline: %w", err)
	}

	report := p.Run(ctx)
	result := &Result{Report: report, Site: s, Record: newRecord(report, s, started)}

	b.state.FinishBuild(result.Record)
	if err := b.state.Save(); err != nil {
		log.Warn("Failed to save build state", logger.WithError(err))
	}
	b.builds++

	if report.Err != nil {
		return result, fmt.Errorf("%w: %w", ErrBuildFailed, report.Err)
	}
	if report.Failed() {
		return result, fmt.Errorf("%w: %d failure(s)", ErrBuildFailed, result.Record.Failures)
	}
	return result, nil
}

func newRecord(report *engine.Report, s *site.Site, started time.Time) types.BuildRecord {
	record := types.BuildRecord{
		Status:    types.BuildStatusSucceeded,
		RunID:     report.RunID,
		StartedAt: started,
		Duration:  time.Since(started),
		Failures:  report.UnitsFailed() + int(report.TasksFailed()),
	}
	for _, ph := range report.Phases {
		record.Failures += ph.CommandsFailed
	}
	if report.Err != nil {
		record.Failures++
	}
	if record.Failures > 0 {
		record.Status = types.BuildStatusFailed
	}

	for _, r := range s.Results() {
		switch {
		case r.Static:
		case r.Skipped:
			record.PagesSkipped++
		default:
			record.PagesWritten++
		}
	}
	return record
}

// WatchConfig returns the watcher configuration for cfg: the content,
// templates and static dirs, with cfg's exclusions.
func (b *Builder) WatchConfig(cfg *types.SiteConfig) watcher.Config {
	return watcher.Config{
		Root: b.projectRoot,
		Paths: []string{
			b.resolve(cfg.Files.Content),
			b.resolve(cfg.Files.Templates),
			b.resolve(cfg.Files.Static),
		},
		Exclude:  cfg.Watch.Exclude,
		Settling: cfg.Watch.SettlingDelay(),
	}
}

// Watch builds once, then rebuilds on every settled batch of changes and
// on configuration reloads until ctx ends. Changing the watched directories
// requires a restart.
func (b *Builder) Watch(ctx context.Context) error {
	if _, err := b.Build(ctx); err != nil {
		b.logger.Warn("Initial build failed, watching for changes", logger.WithError(err))
	}

	cfg := b.Config()
	w, err := b.newWatcher(b.WatchConfig(cfg), b.logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			b.logger.Debug("Failed to close watcher", logger.WithError(err))
		}
	}()

	reload := config.NewReloadManager(b.resolve(b.configPath), b.logger)
	reload.SetDebouncePeriod(cfg.Watch.SettlingDelay())
	reload.AddCallback(func(next *types.SiteConfig, err error) {
		if err != nil {
			b.logger.Error("Configuration reload failed, keeping previous configuration", logger.WithError(err))
			return
		}
		b.setConfig(next)
		b.rebuild(ctx, []interfaces.FileChange{{Path: b.configPath, Type: interfaces.ChangeModified}})
	})
	if err := reload.StartWatching(); err != nil {
		b.logger.Warn("Configuration hot reload disabled", logger.WithError(err))
	} else {
		defer func() { _ = reload.StopWatching() }()
	}

	b.logger.Info("Watching for changes", logger.WithField("root", b.projectRoot))
	return w.Run(ctx, func(changes []interfaces.FileChange) {
		b.rebuild(ctx, changes)
	})
}

func (b *Builder) rebuild(ctx context.Context, changes []interfaces.FileChange) {
	if ctx.Err() != nil {
		return
	}
	name := b.siteName()
	b.logger.Info(fmt.Sprintf("Rebuilding after %d change(s)", len(changes)))
	for _, c := range changes {
		b.logger.Debug("Changed", logger.WithField("path", c.Path), logger.WithField("type", string(c.Type)))
	}
	if b.notifier != nil {
		b.notifier.NotifyBuildStart(name, len(changes))
	}

	result, err := b.Build(ctx)
	if err != nil {
		b.logger.Error("Rebuild failed", logger.WithError(err))
		if b.notifier != nil {
			b.notifier.NotifyBuildFailure(name, err)
		}
		return
	}

	b.logger.Success(fmt.Sprintf("Rebuilt %d page(s)", result.Record.PagesWritten),
		logger.WithField("skipped", result.Record.PagesSkipped),
		logger.WithField("duration", result.Record.Duration.String()))
	if b.notifier != nil {
		b.notifier.NotifyBuildSuccess(name, result.Record.PagesWritten, result.Record.Duration)
	}
}

func (b *Builder) siteName() string {
	if title := b.Config().Site.Title; title != "" {
		return title
	}
	return filepath.Base(b.projectRoot)
}
