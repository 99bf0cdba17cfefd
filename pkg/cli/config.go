package cli

// Config holds all CLI configuration. Flags bind to it and WEBVY_*
// environment variables override unset flags.
type Config struct {
	ConfigFile  string
	ProjectRoot string
	Verbosity   string
	Drafts      bool
	Version     string
}

// NewConfig creates a new CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		ProjectRoot: ".",
		Verbosity:   "info",
		Version:     "dev",
	}
}
