package processor

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/russross/blackfriday/v2"

	"github.com/webvy/webvy/internal/engine"
	"github.com/webvy/webvy/internal/matter"
	"github.com/webvy/webvy/internal/site"
	"github.com/webvy/webvy/pkg/logger"
)

const markdownExt = ".md"

// ContentProcessor reads markdown sources and turns them into pages.
type ContentProcessor struct {
	logger logger.Logger
}

// NewContentProcessor creates a content processor.
func NewContentProcessor(log logger.Logger) *ContentProcessor {
	return &ContentProcessor{logger: log}
}

func (c *ContentProcessor) Name() string { return "content" }

func (c *ContentProcessor) Register(p *Pipeline) error {
	if err := addUnits(p, engine.PhaseLoad, unit{name: "read_content", fn: c.readContent}); err != nil {
		return err
	}
	return addUnits(p, engine.PhaseProcess,
		unit{name: "parse_markdown", fn: c.parseMarkdown},
		unit{name: "extract_front_matter", fn: c.extractFrontMatter, after: []string{"parse_markdown"}},
		unit{name: "render_markdown", fn: c.renderMarkdown, after: []string{"parse_markdown"}},
		unit{name: "index_sections", fn: c.indexSections, after: []string{"parse_markdown"}},
	)
}

// readContent walks the content dir in one task and reads every markdown
// file in a nested task of its own.
func (c *ContentProcessor) readContent(ctx context.Context, s *site.Site, d *Deferred) error {
	dir := s.ContentDir()

	d.Spawn(ctx, "read_content", func(ctx context.Context, scope *Scope) error {
		logger.WithContext(ctx, c.logger).Info("Reading markdown content from disk",
			logger.WithField("dir", dir))

		files, err := listMarkdown(dir)
		if err != nil {
			return err
		}
		for _, rel := range files {
			scope.Spawn("read "+rel, func(ctx context.Context, scope *Scope) error {
				body, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
				if err != nil {
					return fmt.Errorf("read %s: %w", rel, err)
				}
				src := site.Source{Path: rel, Body: string(body)}
				scope.Enqueue(func(s *site.Site) { s.AddSource(src) })
				return nil
			})
		}
		return nil
	})
	return nil
}

func listMarkdown(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(p), markdownExt) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content: %w", err)
	}
	return out, nil
}

// parseMarkdown splits every source into front matter, excerpt and body
// across the compute pool.
func (c *ContentProcessor) parseMarkdown(ctx context.Context, s *site.Site, d *Deferred) error {
	sources := s.Sources()
	log := logger.WithContext(ctx, c.logger)
	log.Info("Parsing markdown content", logger.WithField("pages", len(sources)))

	parser := matter.NewParser(matter.DefaultDelimiter)
	if delim := s.Config().Build.ExcerptDelimiter; delim != "" {
		parser = parser.WithExcerpt(delim)
	}

	pages := make([]*site.Page, len(sources))
	err := d.Compute().ForEach(ctx, len(sources), func(_ context.Context, i int) error {
		src := sources[i]
		data, ok := parser.Parse(src.Body)
		if !ok {
			log.Warn("Skipping page without front matter", logger.WithField("path", src.Path))
			return nil
		}
		excerpt, hasExcerpt := data.Excerpt()
		pages[i] = &site.Page{
			Path:       src.Path,
			Section:    site.SectionKey(src.Path),
			Matter:     data.Matter(),
			Markdown:   data.Content(),
			Excerpt:    excerpt,
			HasExcerpt: hasExcerpt,
		}
		return nil
	})

	parsed := pages[:0]
	for _, p := range pages {
		if p != nil {
			parsed = append(parsed, p)
		}
	}
	s.AddPages(parsed...)
	return err
}

// OutputName maps a content file name to its output file name.
func OutputName(rel string) string {
	base := path.Base(rel)
	if strings.Contains(base, "_index") {
		return "index.html"
	}
	return strings.TrimSuffix(base, markdownExt) + ".html"
}

func (c *ContentProcessor) extractFrontMatter(ctx context.Context, s *site.Site, _ *Deferred) error {
	for _, page := range s.Pages() {
		title, _ := matter.String(page.Matter, "title")
		date, _ := matter.String(page.Matter, "date")
		draft, _ := matter.Bool(page.Matter, "draft")
		name := OutputName(page.Path)

		s.UpdatePage(page, func(p *site.Page) {
			p.Title = title
			p.Date = date
			p.Draft = draft
			p.FileName = name
		})
	}
	return nil
}

func (c *ContentProcessor) renderMarkdown(ctx context.Context, s *site.Site, d *Deferred) error {
	pages := s.Pages()
	return d.Compute().ForEach(ctx, len(pages), func(_ context.Context, i int) error {
		page := pages[i]
		html := RenderMarkdown(page.Markdown)
		var excerpt template.HTML
		if page.HasExcerpt {
			excerpt = RenderMarkdown(page.Excerpt)
		}
		s.UpdatePage(page, func(p *site.Page) {
			p.HTML = html
			p.ExcerptHTML = excerpt
		})
		return nil
	})
}

// RenderMarkdown converts markdown to HTML with blackfriday's common
// extensions.
func RenderMarkdown(md string) template.HTML {
	out := blackfriday.Run([]byte(md), blackfriday.WithExtensions(blackfriday.CommonExtensions))
	return template.HTML(out)
}

// indexSections assigns every page its type and files non-index pages
// under their directory.
func (c *ContentProcessor) indexSections(ctx context.Context, s *site.Site, _ *Deferred) error {
	pages := s.Pages()
	logger.WithContext(ctx, c.logger).Info("Indexing pages into sections",
		logger.WithField("pages", len(pages)))

	for _, page := range pages {
		typ := site.Classify(page.Path)
		if typ == site.TypePage || typ == site.TypePost {
			s.IndexPage(page.Section, page)
		}
		s.UpdatePage(page, func(p *site.Page) {
			p.Type = typ
			p.Typed = true
		})
	}
	return nil
}
