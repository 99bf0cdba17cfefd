package processor

import (
	"context"
	"fmt"
	"os"

	"github.com/webvy/webvy/internal/engine"
	"github.com/webvy/webvy/internal/site"
	"github.com/webvy/webvy/pkg/config"
	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/types"
	"github.com/webvy/webvy/pkg/utils"
)

// ConfigProcessor loads the site configuration and registers the page
// types of the content tree.
type ConfigProcessor struct {
	manager   *config.Manager
	logger    logger.Logger
	overrides []func(*types.SiteConfig)
}

// NewConfigProcessor creates a configuration processor. Overrides run on
// the configuration after it is loaded, or on the defaults when loading
// fails.
func NewConfigProcessor(log logger.Logger, overrides ...func(*types.SiteConfig)) *ConfigProcessor {
	return &ConfigProcessor{
		manager:   config.NewManager(),
		logger:    log,
		overrides: overrides,
	}
}

func (c *ConfigProcessor) Name() string { return "config" }

func (c *ConfigProcessor) Register(p *Pipeline) error {
	if err := addUnits(p, engine.PhasePreload, unit{name: "read_config", fn: c.readConfig}); err != nil {
		return err
	}
	return addUnits(p, engine.PhaseLoad,
		unit{name: "apply_config", fn: c.applyConfig},
		unit{name: "init_page_types", fn: c.initPageTypes, after: []string{"apply_config"}},
	)
}

func (c *ConfigProcessor) readConfig(ctx context.Context, s *site.Site, d *Deferred) error {
	path := s.ConfigPath()

	d.Spawn(ctx, "read_config", func(ctx context.Context, scope *Scope) error {
		logger.WithContext(ctx, c.logger).Info("Reading configuration", logger.WithField("path", path))

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read configuration: %w", err)
		}
		cfg, err := c.manager.ParseConfig(data, config.FormatFor(path))
		if err != nil {
			return err
		}

		scope.Enqueue(func(s *site.Site) { s.SetConfig(cfg) })
		return nil
	})
	return nil
}

func (c *ConfigProcessor) applyConfig(ctx context.Context, s *site.Site, _ *Deferred) error {
	if !s.ConfigLoaded() {
		logger.WithContext(ctx, c.logger).Warn("No configuration loaded, using defaults",
			logger.WithField("path", s.ConfigPath()))
	}
	if len(c.overrides) > 0 {
		s.UpdateConfig(func(cfg *types.SiteConfig) {
			for _, o := range c.overrides {
				o(cfg)
			}
		})
	}
	return nil
}

// initPageTypes registers the root types directly and discovers one
// section per first-level content directory in the background.
func (c *ConfigProcessor) initPageTypes(ctx context.Context, s *site.Site, d *Deferred) error {
	s.AddTypes(
		site.TypeBinding{Type: site.TypeIndex},
		site.TypeBinding{Type: site.TypePage},
	)

	dir := s.ContentDir()
	d.Spawn(ctx, "read_sections", func(ctx context.Context, scope *Scope) error {
		sections, err := utils.ListDirectories(dir)
		if err != nil {
			return fmt.Errorf("list sections: %w", err)
		}

		bindings := make([]site.TypeBinding, 0, len(sections)*2)
		for _, name := range sections {
			bindings = append(bindings,
				site.TypeBinding{Section: name, Type: site.TypeSection},
				site.TypeBinding{Section: name, Type: site.TypePost},
			)
		}
		logger.WithContext(ctx, c.logger).Debug("Discovered sections",
			logger.WithField("count", len(sections)))

		scope.Enqueue(func(s *site.Site) { s.AddTypes(bindings...) })
		return nil
	})
	return nil
}
