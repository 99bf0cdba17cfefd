package build

import (
	"github.com/webvy/webvy/internal/watcher"
	"github.com/webvy/webvy/pkg/interfaces"
	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/notifier"
	"github.com/webvy/webvy/pkg/state"
	"github.com/webvy/webvy/pkg/types"
)

// WatcherFunc creates the file watcher used by Watch.
type WatcherFunc func(cfg watcher.Config, log logger.Logger) (interfaces.Watcher, error)

// Dependencies are the collaborators a Builder needs. State is required;
// a nil Notifier disables notifications.
type Dependencies struct {
	State      interfaces.StateStore
	Notifier   interfaces.Notifier
	NewWatcher WatcherFunc
}

// Factory creates default implementations of dependencies.
type Factory struct {
	projectRoot string
	logger      logger.Logger
	config      *types.SiteConfig
}

// NewFactory creates a new dependency factory
func NewFactory(projectRoot string, log logger.Logger, config *types.SiteConfig) *Factory {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Factory{
		projectRoot: projectRoot,
		logger:      log,
		config:      config,
	}
}

// CreateDefaults creates all default dependencies.
func (f *Factory) CreateDefaults() Dependencies {
	deps := Dependencies{
		State:      f.createStateStore(),
		NewWatcher: defaultWatcher,
	}
	if f.config != nil && f.config.Notifications.Enabled {
		deps.Notifier = f.createNotifier()
	}
	return deps
}

// CreateWithOverrides creates dependencies with specific overrides.
// Non-nil override values replace the defaults.
func (f *Factory) CreateWithOverrides(overrides Dependencies) Dependencies {
	deps := f.CreateDefaults()

	if overrides.State != nil {
		deps.State = overrides.State
	}
	if overrides.Notifier != nil {
		deps.Notifier = overrides.Notifier
	}
	if overrides.NewWatcher != nil {
		deps.NewWatcher = overrides.NewWatcher
	}
	return deps
}

func (f *Factory) createStateStore() interfaces.StateStore {
	return state.NewStateManager(f.projectRoot, f.logger)
}

func (f *Factory) createNotifier() interfaces.Notifier {
	return notifier.New(notifier.Config{Enabled: true, Sound: true}, f.logger)
}

func defaultWatcher(cfg watcher.Config, log logger.Logger) (interfaces.Watcher, error) {
	w, err := watcher.New(cfg, log)
	if err != nil {
		return nil, err
	}
	return w, nil
}
