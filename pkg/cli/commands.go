package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/webvy/webvy/internal/build"
	"github.com/webvy/webvy/pkg/config"
	"github.com/webvy/webvy/pkg/state"
	"github.com/webvy/webvy/pkg/utils"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the site once",
		Long:  `Run the pipeline once and write the site to the output directory.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context())
		},
	}
}

func (c *CLI) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long:  `Check that the configuration file parses and its values are usable.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate()
		},
	}
}

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the output directory and build state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runClean()
		},
	}
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of webvy",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "webvy v%s\n", c.config.Version)
		},
	}
}

// Implementation functions

func (c *CLI) runBuild(ctx context.Context) error {
	cfg, err := c.loadSiteConfig()
	if err != nil {
		c.printError(err.Error())
		return err
	}

	b := c.newBuilder(cfg)
	defer b.Close()

	sizes := b.Pools().Sizes()
	c.printInfo(fmt.Sprintf("Building %s (compute %d, io %d)", c.projectRoot(), sizes.Compute, sizes.IO))

	result, err := b.Build(ctx)
	if result != nil {
		c.printSummary(result)
	}
	if err != nil {
		c.printError(err.Error())
		return err
	}

	c.printSuccess(fmt.Sprintf("Wrote %d page(s), %d unchanged, in %s",
		result.Record.PagesWritten, result.Record.PagesSkipped, result.Record.Duration.Round(time.Millisecond)))
	return nil
}

func (c *CLI) printSummary(result *build.Result) {
	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tMODE\tUNITS\tFAILED\tTASKS\tCOMMANDS\tDURATION")
	fmt.Fprintln(w, "-----\t----\t-----\t------\t-----\t--------\t--------")

	for _, ph := range result.Report.Phases {
		failed := ph.UnitsFailed + int(ph.TasksFailed) + ph.CommandsFailed
		failedCol := color.GreenString("%d", failed)
		if failed > 0 {
			failedCol = color.RedString("%d", failed)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\t%s\n",
			ph.Name,
			ph.Mode,
			ph.Units,
			failedCol,
			ph.TasksSpawned,
			ph.CommandsApplied,
			ph.Duration.Round(time.Microsecond),
		)
	}
	w.Flush()
}

func (c *CLI) runValidate() error {
	path := c.getConfigPath()
	if !utils.FileExists(path) {
		err := fmt.Errorf("configuration not found: %s", path)
		c.printError(err.Error())
		return err
	}

	cfg, err := config.NewManager().LoadConfig(path)
	if err != nil {
		c.printError(fmt.Sprintf("Configuration is invalid: %v", err))
		return err
	}

	var warnings []string
	root := c.projectRoot()
	dirs := []struct{ name, path string }{
		{"content", cfg.Files.Content},
		{"templates", cfg.Files.Templates},
	}
	for _, d := range dirs {
		if !utils.DirectoryExists(resolve(root, d.path)) {
			warnings = append(warnings, fmt.Sprintf("%s directory %q does not exist", d.name, d.path))
		}
	}

	if len(warnings) > 0 {
		c.printWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Fprintf(c.output, "  ⚠ %s\n", warn)
		}
	}

	c.printSuccess(fmt.Sprintf("Configuration is valid: %s", path))
	return nil
}

func (c *CLI) runClean() error {
	cfg, err := c.loadSiteConfig()
	if err != nil {
		c.printError(err.Error())
		return err
	}

	root := c.projectRoot()
	output := resolve(root, cfg.Files.Output)
	if filepath.Clean(output) == filepath.Clean(root) {
		return errors.New("refusing to remove the project root; check files.output")
	}

	if err := os.RemoveAll(output); err != nil {
		return fmt.Errorf("failed to remove output directory: %w", err)
	}
	if err := state.NewStateManager(root, c.logger).Remove(); err != nil {
		return fmt.Errorf("failed to remove build state: %w", err)
	}

	c.printSuccess("Cleaned output directory and build state")
	return nil
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
