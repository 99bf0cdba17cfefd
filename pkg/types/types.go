// Package types provides configuration and build record types for webvy
package types

import (
	"time"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// BuildStatus represents the outcome of a build
type BuildStatus string

const (
	BuildStatusIdle      BuildStatus = "idle"
	BuildStatusBuilding  BuildStatus = "building"
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
)

// Default locations and tunables.
const (
	DefaultConfigFile       = "blog.toml"
	DefaultContentDir       = "content"
	DefaultOutputDir        = "public"
	DefaultTemplatesDir     = "templates"
	DefaultStaticDir        = "static"
	DefaultPollIntervalMs   = 100
	DefaultSettlingDelayMs  = 200
	DefaultExcerptDelimiter = "<!-- excerpt -->"
)

// SiteConfig is the root site configuration, read from blog.toml.
type SiteConfig struct {
	Site          SiteInfo           `toml:"site" json:"site" yaml:"site"`
	Files         FilesConfig        `toml:"files" json:"files" yaml:"files"`
	Build         BuildConfig        `toml:"build" json:"build" yaml:"build"`
	Watch         WatchConfig        `toml:"watch" json:"watch" yaml:"watch"`
	Notifications NotificationConfig `toml:"notifications" json:"notifications" yaml:"notifications"`
}

// SiteInfo is exposed to templates as .Site.
type SiteInfo struct {
	Title       string `toml:"title" json:"title" yaml:"title"`
	BaseURL     string `toml:"base_url" json:"base_url" yaml:"base_url"`
	Author      string `toml:"author" json:"author" yaml:"author"`
	Description string `toml:"description" json:"description" yaml:"description"`
}

// FilesConfig locates the site's input and output directories. Relative
// paths resolve against the project root.
type FilesConfig struct {
	Content   string `toml:"content" json:"content" yaml:"content"`
	Output    string `toml:"output" json:"output" yaml:"output"`
	Templates string `toml:"templates" json:"templates" yaml:"templates"`
	Static    string `toml:"static" json:"static" yaml:"static"`
}

// BuildConfig tunes the pipeline.
type BuildConfig struct {
	Drafts           bool   `toml:"drafts" json:"drafts" yaml:"drafts"`
	ComputeThreads   int    `toml:"compute_threads" json:"compute_threads" yaml:"compute_threads"`
	IOThreads        int    `toml:"io_threads" json:"io_threads" yaml:"io_threads"`
	PollIntervalMs   int    `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`
	ExcerptDelimiter string `toml:"excerpt_delimiter" json:"excerpt_delimiter" yaml:"excerpt_delimiter"`
}

// PollInterval returns the barrier poll interval.
func (b BuildConfig) PollInterval() time.Duration {
	if b.PollIntervalMs <= 0 {
		return DefaultPollIntervalMs * time.Millisecond
	}
	return time.Duration(b.PollIntervalMs) * time.Millisecond
}

// WatchConfig configures rebuild-on-change.
type WatchConfig struct {
	SettlingDelayMs int      `toml:"settling_delay_ms" json:"settling_delay_ms" yaml:"settling_delay_ms"`
	Exclude         []string `toml:"exclude" json:"exclude" yaml:"exclude"`
}

// SettlingDelay returns the debounce window for file events.
func (w WatchConfig) SettlingDelay() time.Duration {
	if w.SettlingDelayMs <= 0 {
		return DefaultSettlingDelayMs * time.Millisecond
	}
	return time.Duration(w.SettlingDelayMs) * time.Millisecond
}

// NotificationConfig toggles desktop notifications in watch mode.
type NotificationConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// ApplyDefaults fills every unset field with its default.
func (c *SiteConfig) ApplyDefaults() {
	if c.Files.Content == "" {
		c.Files.Content = DefaultContentDir
	}
	if c.Files.Output == "" {
		c.Files.Output = DefaultOutputDir
	}
	if c.Files.Templates == "" {
		c.Files.Templates = DefaultTemplatesDir
	}
	if c.Files.Static == "" {
		c.Files.Static = DefaultStaticDir
	}
	if c.Build.PollIntervalMs <= 0 {
		c.Build.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.Watch.SettlingDelayMs <= 0 {
		c.Watch.SettlingDelayMs = DefaultSettlingDelayMs
	}
}

// BuildRecord is the persisted outcome of one build.
type BuildRecord struct {
	Status       BuildStatus   `json:"status"`
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	PagesWritten int           `json:"pages_written"`
	PagesSkipped int           `json:"pages_skipped"`
	Failures     int           `json:"failures"`
}

// BuildState is the persisted build manifest.
type BuildState struct {
	Version    string            `json:"version"`
	BuildCount int               `json:"build_count"`
	LastBuild  *BuildRecord      `json:"last_build,omitempty"`
	Outputs    map[string]string `json:"outputs"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
