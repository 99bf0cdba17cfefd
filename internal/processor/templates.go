package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"sort"

	sprig "github.com/go-task/slim-sprig/v3"

	"github.com/webvy/webvy/internal/engine"
	"github.com/webvy/webvy/internal/site"
	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/types"
	"github.com/webvy/webvy/pkg/utils"
)

// TemplateProcessor loads the template set, picks a template for every
// page, renders the pages and writes them to the output dir.
type TemplateProcessor struct {
	logger   logger.Logger
	recorder Recorder
}

// NewTemplateProcessor creates a template processor. recorder may be nil.
func NewTemplateProcessor(log logger.Logger, recorder Recorder) *TemplateProcessor {
	return &TemplateProcessor{logger: log, recorder: recorder}
}

func (t *TemplateProcessor) Name() string { return "templates" }

func (t *TemplateProcessor) Register(p *Pipeline) error {
	if err := addUnits(p, engine.PhaseLoad, unit{name: "load_templates", fn: t.loadTemplates}); err != nil {
		return err
	}
	if err := addUnits(p, engine.PhasePostProcess, unit{name: "assign_templates", fn: t.assignTemplates}); err != nil {
		return err
	}
	return addUnits(p, engine.PhaseWrite, unit{name: "render_pages", fn: t.renderPages})
}

// FuncMap returns the functions available to templates.
func FuncMap() template.FuncMap {
	funcs := sprig.FuncMap()
	funcs["safe"] = func(s string) template.HTML { return template.HTML(s) }
	return funcs
}

// ParseTemplates parses every file under dir into one set. Templates are
// named by their slash-separated path relative to dir.
func ParseTemplates(dir string) (*template.Template, error) {
	files, err := utils.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	set := template.New("").Funcs(FuncMap())
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", rel, err)
		}
		if _, err := set.New(rel).Parse(string(data)); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", rel, err)
		}
	}
	return set, nil
}

func (t *TemplateProcessor) loadTemplates(ctx context.Context, s *site.Site, d *Deferred) error {
	dir := s.TemplatesDir()
	if !utils.DirectoryExists(dir) {
		logger.WithContext(ctx, t.logger).Warn("No templates directory, pages are written without layout",
			logger.WithField("dir", dir))
		return nil
	}

	d.Spawn(ctx, "load_templates", func(ctx context.Context, scope *Scope) error {
		set, err := ParseTemplates(dir)
		if err != nil {
			return err
		}
		scope.Enqueue(func(s *site.Site) { s.SetTemplates(set) })
		return nil
	})
	return nil
}

// TemplateFor returns "<section>/<type>.html" when the set defines it,
// otherwise "<type>.html".
func TemplateFor(s *site.Site, p *site.Page) string {
	base := p.Type.Template()
	if p.Section != "" {
		if scoped := path.Join(p.Section, base); s.HasTemplate(scoped) {
			return scoped
		}
	}
	return base
}

func (t *TemplateProcessor) assignTemplates(ctx context.Context, s *site.Site, _ *Deferred) error {
	for _, page := range s.Pages() {
		if !page.Typed || page.Template != "" {
			continue
		}
		name := TemplateFor(s, page)
		s.UpdatePage(page, func(p *site.Page) { p.Template = name })
	}
	return nil
}

// PageData is the context every template executes with.
type PageData struct {
	Site    types.SiteInfo
	Page    *site.Page
	Content template.HTML
	Title   string
	Date    string
	Section string
	Pages   []*site.Page
}

func (t *TemplateProcessor) renderPages(ctx context.Context, s *site.Site, d *Deferred) error {
	log := logger.WithContext(ctx, t.logger)
	cfg := s.Config()
	set := s.Templates()

	var (
		outputs []site.Output
		errs    []error
		drafts  int
	)
	for _, page := range s.Pages() {
		if page.Draft && !cfg.Build.Drafts {
			drafts++
			continue
		}
		data, err := t.render(s, set, page, cfg.Build.Drafts)
		if err != nil {
			log.Error("Failed to render page", logger.WithField("path", page.Path), logger.WithError(err))
			errs = append(errs, err)
			continue
		}
		outputs = append(outputs, site.Output{
			Path:     page.OutputPath(),
			Data:     data,
			Checksum: utils.Checksum(data),
		})
	}
	log.Info("Rendered pages",
		logger.WithField("pages", len(outputs)),
		logger.WithField("drafts_skipped", drafts))

	s.AddOutputs(outputs...)
	t.spawnWrites(ctx, s, d, outputs)
	return errors.Join(errs...)
}

func (t *TemplateProcessor) render(s *site.Site, set *template.Template, p *site.Page, drafts bool) ([]byte, error) {
	if set == nil || set.Lookup(p.Template) == nil {
		return []byte(p.HTML), nil
	}

	var listed []*site.Page
	switch p.Type {
	case site.TypeIndex:
		listed = s.Section("")
	case site.TypeSection:
		listed = s.Section(p.Section)
	}
	if !drafts {
		kept := listed[:0]
		for _, lp := range listed {
			if !lp.Draft {
				kept = append(kept, lp)
			}
		}
		listed = kept
	}

	var buf bytes.Buffer
	err := set.ExecuteTemplate(&buf, p.Template, PageData{
		Site:    s.Config().Site,
		Page:    p,
		Content: p.HTML,
		Title:   p.Title,
		Date:    p.Date,
		Section: p.Section,
		Pages:   listed,
	})
	if err != nil {
		return nil, fmt.Errorf("render %s with %s: %w", p.Path, p.Template, err)
	}
	return buf.Bytes(), nil
}

type writeJob struct {
	out      site.Output
	target   string
	previous string
}

// spawnWrites creates the output directories in one task and writes every
// output in a nested task. Unchanged outputs that still exist on disk are
// skipped. Each successful write records its checksum from a pinned task.
func (t *TemplateProcessor) spawnWrites(ctx context.Context, s *site.Site, d *Deferred, outputs []site.Output) {
	if len(outputs) == 0 {
		return
	}
	outDir := s.OutputDir()
	jobs := make([]writeJob, len(outputs))
	for i, out := range outputs {
		prev, _ := s.Previous(out.Path)
		jobs[i] = writeJob{
			out:      out,
			target:   filepath.Join(outDir, filepath.FromSlash(out.Path)),
			previous: prev,
		}
	}

	d.Spawn(ctx, "write_pages", func(ctx context.Context, scope *Scope) error {
		log := logger.WithContext(ctx, t.logger)
		log.Info("Writing rendered content to disk", logger.WithField("dir", outDir))

		dirs := make(map[string]struct{})
		for _, j := range jobs {
			dirs[filepath.Dir(j.target)] = struct{}{}
		}
		sorted := make([]string, 0, len(dirs))
		for dir := range dirs {
			sorted = append(sorted, dir)
		}
		sort.Strings(sorted)
		for _, dir := range sorted {
			if err := utils.EnsureDirectory(dir); err != nil {
				log.Error("Error creating directory", logger.WithField("dir", dir), logger.WithError(err))
			}
		}

		for _, j := range jobs {
			scope.Spawn("write "+j.out.Path, func(ctx context.Context, scope *Scope) error {
				return t.write(scope, j)
			})
		}
		return nil
	})
}

func (t *TemplateProcessor) write(scope *Scope, j writeJob) error {
	result := site.WriteResult{Path: j.out.Path, Checksum: j.out.Checksum}

	if j.previous == j.out.Checksum && utils.FileExists(j.target) {
		result.Skipped = true
	} else if err := utils.WriteFileAtomic(j.target, j.out.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", j.out.Path, err)
	}

	scope.Enqueue(func(s *site.Site) { s.AddResult(result) })
	if t.recorder != nil {
		scope.SpawnPinned("record_state", func(context.Context, *Scope) error {
			t.recorder.RecordOutput(result.Path, result.Checksum)
			return nil
		})
	}
	return nil
}
