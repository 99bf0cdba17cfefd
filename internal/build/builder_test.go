package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webvy/webvy/internal/watcher"
	"github.com/webvy/webvy/pkg/interfaces"
	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/mocks"
	"github.com/webvy/webvy/pkg/state"
	"github.com/webvy/webvy/pkg/types"
)

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return root
}

func smallSite() map[string]string {
	return map[string]string{
		"blog.toml":           "[site]\ntitle = \"Blog\"\n",
		"content/_index.md":   "+++\ntitle = \"Home\"\n+++\nWelcome",
		"content/about.md":    "+++\ntitle = \"About\"\n+++\nAbout me",
		"templates/index.html": "{{.Site.Title}}:{{.Content}}",
		"templates/page.html":  "{{.Title}}:{{.Content}}",
	}
}

func testConfig() *types.SiteConfig {
	cfg := &types.SiteConfig{}
	cfg.ApplyDefaults()
	cfg.Site.Title = "Blog"
	cfg.Build.ComputeThreads = 2
	cfg.Build.IOThreads = 2
	cfg.Build.PollIntervalMs = 5
	return cfg
}

func newBuilder(t *testing.T, root string, deps Dependencies, overrides ...func(*types.SiteConfig)) *Builder {
	t.Helper()
	log := logger.NewNopLogger()
	if deps.State == nil {
		deps.State = state.NewStateManager(root, log)
	}
	b := New(testConfig(), root, types.DefaultConfigFile, log, deps, overrides...)
	t.Cleanup(b.Close)
	return b
}

func TestFactory_CreateDefaults(t *testing.T) {
	cfg := testConfig()
	deps := NewFactory(t.TempDir(), nil, cfg).CreateDefaults()

	assert.IsType(t, &state.StateManager{}, deps.State)
	assert.NotNil(t, deps.NewWatcher)
	assert.Nil(t, deps.Notifier, "notifications are off by default")

	cfg.Notifications.Enabled = true
	deps = NewFactory(t.TempDir(), nil, cfg).CreateDefaults()
	assert.NotNil(t, deps.Notifier)
}

func TestFactory_CreateWithOverrides(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStateStore(ctrl)
	notify := mocks.NewMockNotifier(ctrl)

	deps := NewFactory(t.TempDir(), nil, testConfig()).CreateWithOverrides(Dependencies{
		State:    store,
		Notifier: notify,
	})
	assert.Same(t, store, deps.State)
	assert.Same(t, notify, deps.Notifier)
	assert.NotNil(t, deps.NewWatcher)
}

func TestNew_RequiresState(t *testing.T) {
	assert.Panics(t, func() {
		New(nil, t.TempDir(), "", nil, Dependencies{})
	})
}

func TestBuilder_Build(t *testing.T) {
	root := writeSite(t, smallSite())
	b := newBuilder(t, root, Dependencies{})

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.BuildStatusSucceeded, result.Record.Status)
	assert.Equal(t, 2, result.Record.PagesWritten)
	assert.Equal(t, 0, result.Record.PagesSkipped)
	assert.NotEmpty(t, result.Record.RunID)

	data, err := os.ReadFile(filepath.Join(root, "public", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "Blog:<p>Welcome</p>\n", string(data))

	// unchanged outputs are skipped on the next run
	result, err = b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Record.PagesWritten)
	assert.Equal(t, 2, result.Record.PagesSkipped)
	assert.Equal(t, 2, b.Builds())

	saved := state.NewStateManager(root, nil)
	require.NoError(t, saved.Load())
	snap := saved.Snapshot()
	assert.Equal(t, 2, snap.BuildCount)
	assert.Contains(t, snap.Outputs, "about.html")
}

func TestBuilder_BuildRecordsIntoStateStore(t *testing.T) {
	root := writeSite(t, smallSite())
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStateStore(ctrl)

	var record types.BuildRecord
	store.EXPECT().Load().Return(errors.New("corrupt"))
	store.EXPECT().Checksums().Return(nil)
	store.EXPECT().RecordOutput(gomock.Any(), gomock.Any()).Times(2)
	store.EXPECT().FinishBuild(gomock.Any()).Do(func(r types.BuildRecord) { record = r })
	store.EXPECT().Save().Return(errors.New("read-only"))

	b := newBuilder(t, root, Dependencies{State: store})
	result, err := b.Build(context.Background())
	require.NoError(t, err, "state errors do not fail the build")
	assert.Equal(t, result.Record, record)
	assert.Equal(t, 2, record.PagesWritten)
}

func TestBuilder_BuildFailure(t *testing.T) {
	files := smallSite()
	files["templates/page.html"] = "{{.Missing.Field}}"
	root := writeSite(t, files)
	b := newBuilder(t, root, Dependencies{})

	result, err := b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBuildFailed))
	require.NotNil(t, result)
	assert.Equal(t, types.BuildStatusFailed, result.Record.Status)
	assert.Equal(t, 1, result.Record.Failures)
	assert.Equal(t, 1, result.Record.PagesWritten, "other pages are still written")
}

func TestBuilder_Overrides(t *testing.T) {
	files := smallSite()
	files["content/wip.md"] = "+++\ntitle = \"WIP\"\ndraft = true\n+++\nSoon"
	root := writeSite(t, files)
	b := newBuilder(t, root, Dependencies{}, func(cfg *types.SiteConfig) { cfg.Build.Drafts = true })

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Record.PagesWritten)
	assert.FileExists(t, filepath.Join(root, "public", "wip.html"))
}

func TestBuilder_WatchConfig(t *testing.T) {
	root := t.TempDir()
	b := newBuilder(t, root, Dependencies{})

	cfg := testConfig()
	cfg.Watch.Exclude = []string{"**/*.tmp"}
	cfg.Watch.SettlingDelayMs = 50

	wc := b.WatchConfig(cfg)
	assert.Equal(t, b.projectRoot, wc.Root)
	assert.Equal(t, []string{
		filepath.Join(b.projectRoot, "content"),
		filepath.Join(b.projectRoot, "templates"),
		filepath.Join(b.projectRoot, "static"),
	}, wc.Paths)
	assert.Equal(t, []string{"**/*.tmp"}, wc.Exclude)
	assert.Equal(t, int64(50), wc.Settling.Milliseconds())
}

func TestBuilder_WatchRebuildsOnChanges(t *testing.T) {
	root := writeSite(t, smallSite())
	ctrl := gomock.NewController(t)
	w := mocks.NewMockWatcher(ctrl)
	notify := mocks.NewMockNotifier(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got watcher.Config
	newWatcher := func(cfg watcher.Config, _ logger.Logger) (interfaces.Watcher, error) {
		got = cfg
		return w, nil
	}

	w.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cb interfaces.FileChangeCallback) error {
			cb([]interfaces.FileChange{{Path: "content/about.md", Type: interfaces.ChangeModified}})
			cancel()
			// cancelled watches do not rebuild
			cb([]interfaces.FileChange{{Path: "content/about.md", Type: interfaces.ChangeModified}})
			return nil
		})
	w.EXPECT().Close().Return(nil)
	gomock.InOrder(
		notify.EXPECT().NotifyBuildStart("Blog", 1),
		notify.EXPECT().NotifyBuildSuccess("Blog", 0, gomock.Any()),
	)

	b := newBuilder(t, root, Dependencies{Notifier: notify, NewWatcher: newWatcher})
	require.NoError(t, b.Watch(ctx))

	assert.Equal(t, 2, b.Builds())
	assert.Contains(t, got.Paths, filepath.Join(b.projectRoot, "content"))
}

func TestBuilder_WatchNotifiesFailure(t *testing.T) {
	root := writeSite(t, smallSite())
	ctrl := gomock.NewController(t)
	w := mocks.NewMockWatcher(ctrl)
	notify := mocks.NewMockNotifier(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cb interfaces.FileChangeCallback) error {
			path := filepath.Join(root, "templates", "page.html")
			require.NoError(t, os.WriteFile(path, []byte("{{.Missing.Field}}"), 0o644))
			cb([]interfaces.FileChange{{Path: "templates/page.html", Type: interfaces.ChangeModified}})
			cancel()
			return nil
		})
	w.EXPECT().Close().Return(nil)
	notify.EXPECT().NotifyBuildStart("Blog", 1)
	notify.EXPECT().NotifyBuildFailure("Blog", gomock.Any()).Do(func(_ string, err error) {
		assert.True(t, errors.Is(err, ErrBuildFailed))
	})

	b := newBuilder(t, root, Dependencies{
		Notifier: notify,
		NewWatcher: func(watcher.Config, logger.Logger) (interfaces.Watcher, error) {
			return w, nil
		},
	})
	require.NoError(t, b.Watch(ctx))
}

func TestBuilder_WatchWatcherError(t *testing.T) {
	root := writeSite(t, smallSite())
	b := newBuilder(t, root, Dependencies{
		NewWatcher: func(watcher.Config, logger.Logger) (interfaces.Watcher, error) {
			return nil, errors.New("too many open files")
		},
	})

	err := b.Watch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many open files")
	assert.Equal(t, 1, b.Builds(), "the initial build still runs")
}
