// Package config handles site configuration loading and management
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/webvy/webvy/pkg/types"
	"github.com/webvy/webvy/pkg/utils"
)

// Format identifies a configuration file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// FormatFor picks the syntax from the file extension. Unknown extensions
// are treated as TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// LoadConfig reads, parses, defaults and validates a configuration file.
func (m *Manager) LoadConfig(path string) (*types.SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return m.ParseConfig(data, FormatFor(path))
}

// ParseConfig decodes data in the given format, applies defaults and
// validates the result.
func (m *Manager) ParseConfig(data []byte, format Format) (*types.SiteConfig, error) {
	var cfg types.SiteConfig

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	cfg.ApplyDefaults()
	if err := m.ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig validates a configuration
func (m *Manager) ValidateConfig(cfg *types.SiteConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: configuration is nil", ErrInvalidConfig)
	}

	if cfg.Files.Content == "" {
		return fmt.Errorf("%w: files.content is empty", ErrInvalidConfig)
	}
	if cfg.Files.Output == "" {
		return fmt.Errorf("%w: files.output is empty", ErrInvalidConfig)
	}
	if filepath.Clean(cfg.Files.Content) == filepath.Clean(cfg.Files.Output) {
		return fmt.Errorf("%w: files.content and files.output must differ", ErrInvalidConfig)
	}

	if cfg.Build.ComputeThreads < 0 {
		return fmt.Errorf("%w: build.compute_threads must not be negative", ErrInvalidConfig)
	}
	if cfg.Build.IOThreads < 0 {
		return fmt.Errorf("%w: build.io_threads must not be negative", ErrInvalidConfig)
	}
	if cfg.Build.PollIntervalMs < 0 {
		return fmt.Errorf("%w: build.poll_interval_ms must not be negative", ErrInvalidConfig)
	}

	if _, err := utils.NewPatternMatcher(cfg.Watch.Exclude); err != nil {
		return fmt.Errorf("%w: watch.exclude: %v", ErrInvalidConfig, err)
	}

	return nil
}

// GetDefaultConfig returns the configuration written by "webvy init".
func (m *Manager) GetDefaultConfig() *types.SiteConfig {
	cfg := &types.SiteConfig{
		Site: types.SiteInfo{
			Title:   "My webvy site",
			BaseURL: "/",
		},
		Build: types.BuildConfig{
			ExcerptDelimiter: types.DefaultExcerptDelimiter,
		},
		Watch: types.WatchConfig{
			Exclude: defaultExclusions(),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// EncodeConfig serializes cfg in the given format.
func (m *Manager) EncodeConfig(cfg *types.SiteConfig, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(cfg, "", "  ")
	case FormatYAML:
		return yaml.Marshal(cfg)
	default:
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to encode TOML config: %w", err)
		}
		return buf.Bytes(), nil
	}
}

// WriteConfig writes cfg to path, choosing the format from its extension.
func (m *Manager) WriteConfig(path string, cfg *types.SiteConfig) error {
	data, err := m.EncodeConfig(cfg, FormatFor(path))
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func defaultExclusions() []string {
	return []string{
		".git",
		".webvy",
		"*.swp",
		"*~",
		".DS_Store",
	}
}
