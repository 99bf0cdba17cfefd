package types_test

import (
	"testing"
	"time"

	"github.com/webvy/webvy/pkg/types"
)

func TestSiteConfig_ApplyDefaults(t *testing.T) {
	cfg := &types.SiteConfig{}
	cfg.Files.Output = "dist"
	cfg.ApplyDefaults()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"content", cfg.Files.Content, types.DefaultContentDir},
		{"output keeps explicit value", cfg.Files.Output, "dist"},
		{"templates", cfg.Files.Templates, types.DefaultTemplatesDir},
		{"static", cfg.Files.Static, types.DefaultStaticDir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	if cfg.Build.PollIntervalMs != types.DefaultPollIntervalMs {
		t.Errorf("expected default poll interval, got %d", cfg.Build.PollIntervalMs)
	}
}

func TestBuildConfig_PollInterval(t *testing.T) {
	tests := []struct {
		ms   int
		want time.Duration
	}{
		{0, 100 * time.Millisecond},
		{-5, 100 * time.Millisecond},
		{25, 25 * time.Millisecond},
	}
	for _, tt := range tests {
		got := types.BuildConfig{PollIntervalMs: tt.ms}.PollInterval()
		if got != tt.want {
			t.Errorf("PollInterval(%d) = %v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestWatchConfig_SettlingDelay(t *testing.T) {
	if got := (types.WatchConfig{}).SettlingDelay(); got != 200*time.Millisecond {
		t.Errorf("expected default settling delay, got %v", got)
	}
	if got := (types.WatchConfig{SettlingDelayMs: 50}).SettlingDelay(); got != 50*time.Millisecond {
		t.Errorf("expected 50ms, got %v", got)
	}
}
