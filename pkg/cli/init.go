package cli

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/webvy/webvy/pkg/config"
	"github.com/webvy/webvy/pkg/types"
	"github.com/webvy/webvy/pkg/utils"
)

func (c *CLI) newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a new site",
		Long: `Create a configuration file, a home page and the four base templates
(index, section, page, post). Without a directory the project root is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.projectRoot()
			if len(args) > 0 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				dir = abs
			}
			return c.runInit(dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files")

	return cmd
}

// scaffold maps paths relative to the site root to their initial content.
var scaffold = map[string]string{
	"content/_index.md": `+++
title = "Home"
+++
Welcome to your new site. Edit content/_index.md to change this page.
`,
	"templates/index.html": `<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Site.Title}}</title></head>
<body>
<h1>{{.Site.Title}}</h1>
{{.Content}}
<ul>
{{- range .Pages}}
  <li><a href="{{.FileName}}">{{.Title}}</a></li>
{{- end}}
</ul>
</body>
</html>
`,
	"templates/section.html": `<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Title}} | {{.Site.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{.Content}}
<ul>
{{- range .Pages}}
  <li><a href="{{.FileName}}">{{.Title}}</a>{{with .Date}} <time>{{.}}</time>{{end}}</li>
{{- end}}
</ul>
</body>
</html>
`,
	"templates/page.html": `<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Title}} | {{.Site.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{.Content}}
</body>
</html>
`,
	"templates/post.html": `<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Title}} | {{.Site.Title}}</title></head>
<body>
<article>
<h1>{{.Title}}</h1>
{{with .Date}}<time>{{.}}</time>{{end}}
{{.Content}}
</article>
</body>
</html>
`,
}

func (c *CLI) runInit(dir string, force bool) error {
	configPath := filepath.Join(dir, types.DefaultConfigFile)
	if c.config.ConfigFile != "" {
		configPath = c.getConfigPath()
	}

	if utils.FileExists(configPath) && !force {
		return fmt.Errorf("configuration already exists at %s. Use --force to overwrite", configPath)
	}

	manager := config.NewManager()
	if err := manager.WriteConfig(configPath, manager.GetDefaultConfig()); err != nil {
		return err
	}
	c.printSuccess(fmt.Sprintf("Created configuration at %s", configPath))

	files := make([]string, 0, len(scaffold))
	for rel := range scaffold {
		files = append(files, rel)
	}
	sort.Strings(files)

	for _, rel := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if utils.FileExists(path) && !force {
			c.printWarning(fmt.Sprintf("Keeping existing %s", rel))
			continue
		}
		if err := utils.WriteFileAtomic(path, []byte(scaffold[rel]), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
		c.printInfo(fmt.Sprintf("Created %s", rel))
	}

	c.printInfo("Run 'webvy build' to generate the site")
	return nil
}
