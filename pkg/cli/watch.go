package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webvy/webvy/pkg/process"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Build the site and rebuild it on every change",
		Long: `Build once, then watch the content, templates and static directories and
the configuration file. Every settled batch of changes runs a fresh
pipeline; worker pools are shared between runs. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context())
		},
	}
}

func (c *CLI) runWatch(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := c.loadSiteConfig()
	if err != nil {
		c.printError(err.Error())
		return err
	}

	b := c.newBuilder(cfg)
	pm := process.NewManager(c.logger)
	pm.RegisterShutdownHandler(b.Close)
	pm.RegisterShutdownHandler(func() { c.printInfo("Shutting down gracefully...") })

	ctx = pm.Start(ctx)
	c.printInfo(fmt.Sprintf("Starting webvy v%s", c.config.Version))
	c.printInfo(fmt.Sprintf("Watching %s, press Ctrl+C to stop", c.projectRoot()))

	err = b.Watch(ctx)
	pm.Stop()
	if err != nil {
		c.printError(err.Error())
		return err
	}

	c.printSuccess(fmt.Sprintf("Stopped after %d build(s)", b.Builds()))
	return nil
}
