// Package site holds the shared state a build pipeline mutates: the loaded
// configuration, markdown sources, parsed pages, the section index, the
// template set and the outputs produced by the write phase.
//
// Every method takes the site lock, so work units in parallel phases may
// call them concurrently. Commands applied at phase barriers see no
// concurrent work unit.
package site

import (
	"html/template"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/webvy/webvy/pkg/types"
)

// PageType classifies a page by its position in the content tree.
type PageType int

const (
	TypeIndex PageType = iota
	TypeSection
	TypePage
	TypePost
)

func (t PageType) String() string {
	switch t {
	case TypeIndex:
		return "index"
	case TypeSection:
		return "section"
	case TypePage:
		return "page"
	case TypePost:
		return "post"
	default:
		return "unknown"
	}
}

// Template returns the base template file name for the type.
func (t PageType) Template() string {
	return t.String() + ".html"
}

// Classify returns the page type of a content file from its path relative
// to the content dir.
func Classify(rel string) PageType {
	dir := path.Dir(filepath.ToSlash(rel))
	root := dir == "."
	index := path.Base(rel) == "_index.md"

	switch {
	case index && root:
		return TypeIndex
	case index:
		return TypeSection
	case root:
		return TypePage
	default:
		return TypePost
	}
}

// SectionKey returns the section a content file belongs to: its parent
// directory, or "" at the root.
func SectionKey(rel string) string {
	dir := path.Dir(filepath.ToSlash(rel))
	if dir == "." {
		return ""
	}
	return dir
}

// TypeBinding is a page type available in a section. Section is "" for
// the root.
type TypeBinding struct {
	Section string
	Type    PageType
}

// Source is a markdown file as read from disk.
type Source struct {
	Path string // slash-separated, relative to the content dir
	Body string
}

// Page is a parsed content file.
type Page struct {
	Path        string
	Section     string
	Matter      map[string]any
	Markdown    string
	Excerpt     string
	HasExcerpt  bool
	Title       string
	Date        string
	Draft       bool
	FileName    string
	Type        PageType
	Typed       bool
	Template    string
	HTML        template.HTML
	ExcerptHTML template.HTML
}

// OutputPath is the page's path relative to the output dir.
func (p *Page) OutputPath() string {
	dir := path.Dir(p.Path)
	if dir == "." {
		return p.FileName
	}
	return path.Join(dir, p.FileName)
}

// Output is a rendered file waiting to be written.
type Output struct {
	Path     string
	Data     []byte
	Checksum string
}

// WriteResult is the outcome of writing one output.
type WriteResult struct {
	Path     string
	Checksum string
	Skipped  bool
	Static   bool
}

// Site is the pipeline's shared state.
type Site struct {
	mu sync.RWMutex

	root       string
	configPath string
	config     *types.SiteConfig
	loaded     bool

	types     []TypeBinding
	sources   []Source
	pages     []*Page
	sections  map[string][]*Page
	templates *template.Template
	outputs   []Output
	results   []WriteResult
	previous  map[string]string
}

// New creates an empty site rooted at root. The configuration defaults
// until SetConfig is called.
func New(root, configPath string) *Site {
	cfg := &types.SiteConfig{}
	cfg.ApplyDefaults()
	return &Site{
		root:       root,
		configPath: configPath,
		config:     cfg,
		sections:   make(map[string][]*Page),
		previous:   make(map[string]string),
	}
}

// Root returns the project root.
func (s *Site) Root() string { return s.root }

// ConfigPath returns the configuration file path, resolved against the root.
func (s *Site) ConfigPath() string { return s.Resolve(s.configPath) }

// Resolve joins a relative path onto the project root.
func (s *Site) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, p)
}

// SetConfig replaces the configuration and marks it loaded.
func (s *Site) SetConfig(cfg *types.SiteConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	s.loaded = true
}

// UpdateConfig applies fn to a copy of the configuration and stores the
// copy. It does not change ConfigLoaded.
func (s *Site) UpdateConfig(fn func(*types.SiteConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.config
	fn(&cp)
	s.config = &cp
}

// Config returns the current configuration.
func (s *Site) Config() *types.SiteConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// ConfigLoaded reports whether a configuration file was applied.
func (s *Site) ConfigLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ContentDir returns the resolved content directory.
func (s *Site) ContentDir() string { return s.Resolve(s.Config().Files.Content) }

// OutputDir returns the resolved output directory.
func (s *Site) OutputDir() string { return s.Resolve(s.Config().Files.Output) }

// TemplatesDir returns the resolved templates directory.
func (s *Site) TemplatesDir() string { return s.Resolve(s.Config().Files.Templates) }

// StaticDir returns the resolved static directory.
func (s *Site) StaticDir() string { return s.Resolve(s.Config().Files.Static) }

// AddTypes registers page types.
func (s *Site) AddTypes(bindings ...TypeBinding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, bindings...)
}

// Types returns the registered page types.
func (s *Site) Types() []TypeBinding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TypeBinding(nil), s.types...)
}

// HasSection reports whether a section was registered.
func (s *Site) HasSection(section string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.types {
		if b.Section == section && b.Type == TypeSection {
			return true
		}
	}
	return false
}

// AddSource appends a markdown source.
func (s *Site) AddSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, src)
}

// Sources returns the loaded sources ordered by path.
func (s *Site) Sources() []Source {
	s.mu.RLock()
	out := append([]Source(nil), s.sources...)
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// AddPages appends parsed pages.
func (s *Site) AddPages(pages ...*Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, pages...)
}

// Pages returns the parsed pages ordered by path.
func (s *Site) Pages() []*Page {
	s.mu.RLock()
	out := append([]*Page(nil), s.pages...)
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Page returns the page with the given content path.
func (s *Site) Page(rel string) (*Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pages {
		if p.Path == rel {
			return p, true
		}
	}
	return nil, false
}

// UpdatePage runs fn on p under the site lock.
func (s *Site) UpdatePage(p *Page, fn func(*Page)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(p)
}

// IndexPage files p under its section.
func (s *Site) IndexPage(section string, p *Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[section] = append(s.sections[section], p)
}

// Section returns the pages filed under section, ordered by path.
func (s *Site) Section(section string) []*Page {
	s.mu.RLock()
	out := append([]*Page(nil), s.sections[section]...)
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Sections returns the indexed section keys, sorted.
func (s *Site) Sections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.sections))
	for k := range s.sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetTemplates stores the parsed template set.
func (s *Site) SetTemplates(t *template.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = t
}

// Templates returns the template set, or nil when none was loaded.
func (s *Site) Templates() *template.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templates
}

// HasTemplate reports whether the set defines name.
func (s *Site) HasTemplate(name string) bool {
	t := s.Templates()
	return t != nil && t.Lookup(name) != nil
}

// AddOutputs appends rendered outputs.
func (s *Site) AddOutputs(outs ...Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = append(s.outputs, outs...)
}

// Outputs returns the rendered outputs.
func (s *Site) Outputs() []Output {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Output(nil), s.outputs...)
}

// AddResult records a write outcome.
func (s *Site) AddResult(r WriteResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

// Results returns write outcomes ordered by path.
func (s *Site) Results() []WriteResult {
	s.mu.RLock()
	out := append([]WriteResult(nil), s.results...)
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// SetPrevious seeds the checksums recorded by the last build.
func (s *Site) SetPrevious(checksums map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous = make(map[string]string, len(checksums))
	for k, v := range checksums {
		s.previous[k] = v
	}
}

// Previous returns the checksum recorded for output by the last build.
func (s *Site) Previous(output string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.previous[output]
	return sum, ok
}
