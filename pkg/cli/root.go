// Package cli provides the command-line interface for webvy
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/webvy/webvy/internal/build"
	"github.com/webvy/webvy/pkg/config"
	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/types"
	"github.com/webvy/webvy/pkg/utils"
)

// CLI encapsulates the command-line interface without global state.
type CLI struct {
	config   *Config
	viper    *viper.Viper
	rootCmd  *cobra.Command
	logger   logger.Logger
	output   io.Writer
	errorOut io.Writer
	reported bool
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(config *Config) *CLI {
	if config == nil {
		config = NewConfig()
	}

	cli := &CLI{
		config:   config,
		viper:    viper.New(),
		output:   os.Stdout,
		errorOut: os.Stderr,
	}

	cli.setupCommands()
	return cli
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(config *Config, output, errorOut io.Writer) *CLI {
	cli := NewCLI(config)
	cli.output = output
	cli.errorOut = errorOut
	cli.rootCmd.SetOut(output)
	cli.rootCmd.SetErr(errorOut)
	return cli
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	c.reported = false
	err := c.rootCmd.ExecuteContext(ctx)
	if err != nil && !c.reported {
		c.printError(err.Error())
	}
	return err
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "webvy",
		Short: "A staged static site generator",
		Long: `webvy builds a static site from markdown content, html templates and
static files. Every build runs five phases (preload, load, process,
post-process, write); background work started in a phase finishes before
the next one begins.`,

		PersistentPreRunE: c.initializeConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("webvy v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newBuildCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newValidateCmd())
	c.rootCmd.AddCommand(c.newInitCmd())
	c.rootCmd.AddCommand(c.newCleanCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", "", "config file (default: <root>/blog.toml)")
	flags.StringVar(&c.config.ProjectRoot, "root", c.config.ProjectRoot, "project root directory")
	flags.StringVarP(&c.config.Verbosity, "verbosity", "v", c.config.Verbosity, "log level (debug, info, warn, error)")
	flags.BoolVar(&c.config.Drafts, "drafts", false, "include draft pages")
}

// initializeConfig layers WEBVY_* environment variables under the flags
// and creates the logger.
func (c *CLI) initializeConfig(cmd *cobra.Command, _ []string) error {
	c.viper.SetEnvPrefix("WEBVY")
	c.viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.viper.AutomaticEnv()
	if err := c.viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	c.config.ConfigFile = c.viper.GetString("config")
	c.config.ProjectRoot = c.viper.GetString("root")
	c.config.Verbosity = c.viper.GetString("verbosity")
	c.config.Drafts = c.viper.GetBool("drafts")

	if c.output == io.Writer(os.Stdout) {
		c.logger = logger.CreateLogger("", c.config.Verbosity)
	} else {
		c.logger = logger.CreateLoggerWithOutput("", c.config.Verbosity, c.output)
	}
	return nil
}

// Helper methods for user-facing output

func (c *CLI) printSuccess(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.GreenString("[webvy]"), message)
}

func (c *CLI) printError(message string) {
	c.reported = true
	fmt.Fprintf(c.errorOut, "%s %s\n", color.RedString("[webvy]"), message)
}

func (c *CLI) printInfo(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.CyanString("[webvy]"), message)
}

func (c *CLI) printWarning(message string) {
	fmt.Fprintf(c.output, "%s %s\n", color.YellowString("[webvy]"), message)
}

func (c *CLI) projectRoot() string {
	if abs, err := filepath.Abs(c.config.ProjectRoot); err == nil {
		return abs
	}
	return c.config.ProjectRoot
}

func (c *CLI) getConfigPath() string {
	if c.config.ConfigFile != "" {
		if abs, err := filepath.Abs(c.config.ConfigFile); err == nil {
			return abs
		}
		return c.config.ConfigFile
	}
	return filepath.Join(c.projectRoot(), types.DefaultConfigFile)
}

// loadSiteConfig reads the configuration file. A missing file yields the
// defaults.
func (c *CLI) loadSiteConfig() (*types.SiteConfig, error) {
	path := c.getConfigPath()
	if !utils.FileExists(path) {
		c.printWarning(fmt.Sprintf("No configuration at %s, using defaults", path))
		cfg := &types.SiteConfig{}
		cfg.ApplyDefaults()
		return cfg, nil
	}

	cfg, err := config.NewManager().LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (c *CLI) newBuilder(cfg *types.SiteConfig) *build.Builder {
	root := c.projectRoot()
	deps := build.NewFactory(root, c.logger, cfg).CreateDefaults()

	var overrides []func(*types.SiteConfig)
	if c.config.Drafts {
		overrides = append(overrides, func(cfg *types.SiteConfig) { cfg.Build.Drafts = true })
	}
	return build.New(cfg, root, c.getConfigPath(), c.logger, deps, overrides...)
}
