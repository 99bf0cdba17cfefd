// Command webvy builds and watches static sites.
package main

import (
	"context"
	"os"

	"github.com/webvy/webvy/pkg/cli"
)

var version = "dev"

func main() {
	cfg := cli.NewConfig()
	cfg.Version = version

	if err := cli.NewCLI(cfg).ExecuteContext(context.Background(), os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
