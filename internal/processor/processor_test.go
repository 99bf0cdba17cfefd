package processor

import (
	"context"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webvy/webvy/internal/engine"
	"github.com/webvy/webvy/internal/site"
	"github.com/webvy/webvy/pkg/logger"
	"github.com/webvy/webvy/pkg/types"
)

type mapRecorder map[string]string

func (m mapRecorder) RecordOutput(output, checksum string) { m[output] = checksum }

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

func sampleSite() map[string]string {
	return map[string]string{
		"blog.toml": "[site]\ntitle = \"Blog\"\n\n[build]\nexcerpt_delimiter = \"<!-- more -->\"\n",

		"content/_index.md":      "+++\ntitle = \"Home\"\n+++\nWelcome",
		"content/about.md":       "+++\ntitle = \"About\"\n+++\nAbout *me*",
		"content/posts/_index.md": "+++\ntitle = \"Posts\"\n+++\n",
		"content/posts/first.md": "+++\ntitle = \"First\"\ndate = 2024-01-02\n+++\nIntro\n<!-- more -->\nHello *world*\n",
		"content/posts/draft.md": "+++\ntitle = \"Draft\"\ndraft = true\n+++\nunfinished",
		"content/posts/bare.md":  "no front matter here",
		"content/notes.txt":      "ignored",

		"templates/index.html":       "{{.Site.Title | upper}}|{{range .Pages}}{{.Title}};{{end}}|{{.Content}}",
		"templates/page.html":        "page:{{.Title}}:{{.Content}}",
		"templates/post.html":        "post:{{.Title}}",
		"templates/section.html":     "{{range .Pages}}{{.Title}},{{end}}",
		"templates/posts/post.html":  "custom:{{.Title}}:{{.Date}}:{{.Content}}",

		"static/css/site.css": "body{}",
	}
}

func runSite(t *testing.T, root string, rec Recorder, prev map[string]string, overrides ...func(*types.SiteConfig)) (*site.Site, *engine.Report) {
	t.Helper()
	log := logger.NewNopLogger()

	s := site.New(root, types.DefaultConfigFile)
	s.SetPrevious(prev)

	pools := engine.NewPools(engine.SizesFor(4), log)
	t.Cleanup(pools.Close)

	p := engine.NewStandard(s, pools, log, engine.WithPollInterval(5*time.Millisecond))
	require.NoError(t, RegisterAll(p, Defaults(Options{Logger: log, Recorder: rec, Overrides: overrides})...))

	report := p.Run(context.Background())
	require.NotNil(t, report)
	require.NoError(t, report.Err)
	return s, report
}

func readOutput(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "public", filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestBuild_WritesSite(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, sampleSite())

	s, report := runSite(t, root, nil, nil)
	assert.False(t, report.Failed(), "unexpected failures: %+v", report.Phases)
	assert.True(t, s.ConfigLoaded())

	assert.Equal(t, "BLOG|About;|<p>Welcome</p>\n", readOutput(t, root, "index.html"))
	assert.Equal(t, "page:About:<p>About <em>me</em></p>\n", readOutput(t, root, "about.html"))
	assert.Equal(t, "First,", readOutput(t, root, "posts/index.html"))
	assert.Equal(t, "custom:First:2024-01-02:<p>Hello <em>world</em></p>\n", readOutput(t, root, "posts/first.html"))
	assert.Equal(t, "body{}", readOutput(t, root, "css/site.css"))

	_, err := os.Stat(filepath.Join(root, "public", "posts", "draft.html"))
	assert.True(t, os.IsNotExist(err), "drafts must not be written")
	_, err = os.Stat(filepath.Join(root, "public", "posts", "bare.html"))
	assert.True(t, os.IsNotExist(err), "pages without front matter are skipped")

	first, ok := s.Page("posts/first.md")
	require.True(t, ok)
	assert.Equal(t, site.TypePost, first.Type)
	assert.Equal(t, "posts/post.html", first.Template)
	assert.Equal(t, template.HTML("<p>Intro</p>\n"), first.ExcerptHTML)

	assert.Len(t, s.Results(), 5)
	assert.True(t, s.HasSection("posts"))
}

func TestBuild_PageTypesAndSections(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, sampleSite())

	s, _ := runSite(t, root, nil, nil)

	want := map[string]site.PageType{
		"_index.md":       site.TypeIndex,
		"about.md":        site.TypePage,
		"posts/_index.md": site.TypeSection,
		"posts/first.md":  site.TypePost,
		"posts/draft.md":  site.TypePost,
	}
	for path, typ := range want {
		p, ok := s.Page(path)
		require.True(t, ok, path)
		assert.Equal(t, typ, p.Type, path)
	}

	about, _ := s.Page("about.md")
	assert.Equal(t, "page.html", about.Template)

	var titles []string
	for _, p := range s.Section("posts") {
		titles = append(titles, p.Title)
	}
	assert.Equal(t, []string{"Draft", "First"}, titles)
}

func TestBuild_DraftsOverride(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, sampleSite())

	_, report := runSite(t, root, nil, nil, func(cfg *types.SiteConfig) { cfg.Build.Drafts = true })
	assert.False(t, report.Failed())

	assert.Equal(t, "custom:Draft::<p>unfinished</p>\n", readOutput(t, root, "posts/draft.html"))
	assert.Equal(t, "Draft,First,", readOutput(t, root, "posts/index.html"))
}

func TestBuild_SkipsUnchangedOutputs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, sampleSite())

	rec := mapRecorder{}
	_, _ = runSite(t, root, rec, nil)
	require.Contains(t, rec, "posts/first.html")
	require.NotContains(t, rec, "css/site.css")

	s, report := runSite(t, root, mapRecorder{}, map[string]string(rec))
	assert.False(t, report.Failed())

	for _, r := range s.Results() {
		if r.Static {
			continue
		}
		assert.True(t, r.Skipped, "%s should be skipped", r.Path)
	}

	// removed outputs are rewritten even when the checksum matches
	require.NoError(t, os.Remove(filepath.Join(root, "public", "about.html")))
	s, _ = runSite(t, root, nil, map[string]string(rec))
	for _, r := range s.Results() {
		if r.Path == "about.html" {
			assert.False(t, r.Skipped)
		}
	}
	assert.Contains(t, readOutput(t, root, "about.html"), "page:About")
}

func TestBuild_MissingConfigUsesDefaults(t *testing.T) {
	root := t.TempDir()
	files := sampleSite()
	delete(files, "blog.toml")
	writeTree(t, root, files)

	s, report := runSite(t, root, nil, nil)

	assert.False(t, s.ConfigLoaded())
	ph, ok := report.Phase(engine.PhasePreload)
	require.True(t, ok)
	assert.Equal(t, int64(1), ph.TasksFailed)
	assert.Equal(t, 0, report.UnitsFailed())

	// no excerpt delimiter configured, so the marker stays in the body
	assert.True(t, strings.HasPrefix(readOutput(t, root, "posts/first.html"), "custom:First:"))
	assert.Equal(t, "|About;|<p>Welcome</p>\n", readOutput(t, root, "index.html"))
}

func TestBuild_WithoutTemplates(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"content/about.md": "+++\ntitle = \"About\"\n+++\nPlain",
	})

	_, report := runSite(t, root, nil, nil)
	assert.Equal(t, 0, report.UnitsFailed())
	assert.Equal(t, "<p>Plain</p>\n", readOutput(t, root, "about.html"))
}

func TestBuild_TemplateErrorFailsUnit(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"content/about.md":    "+++\ntitle = \"About\"\n+++\nPlain",
		"content/other.md":    "+++\ntitle = \"Other\"\n+++\nFine",
		"templates/page.html": "{{.Missing.Field}}",
	})

	_, report := runSite(t, root, nil, nil)
	ph, ok := report.Phase(engine.PhaseWrite)
	require.True(t, ok)
	assert.Equal(t, 1, ph.UnitsFailed)
}

func TestOutputName(t *testing.T) {
	tests := map[string]string{
		"_index.md":        "index.html",
		"posts/_index.md":  "index.html",
		"about.md":         "about.html",
		"posts/a.b.md":     "a.b.html",
	}
	for in, want := range tests {
		assert.Equal(t, want, OutputName(in), in)
	}
}

func TestTemplateFor(t *testing.T) {
	s := site.New(t.TempDir(), "")
	set := template.Must(template.New("post.html").Parse("x"))
	template.Must(set.New("news/post.html").Parse("y"))
	s.SetTemplates(set)

	assert.Equal(t, "news/post.html", TemplateFor(s, &site.Page{Section: "news", Type: site.TypePost}))
	assert.Equal(t, "post.html", TemplateFor(s, &site.Page{Section: "blog", Type: site.TypePost}))
	assert.Equal(t, "index.html", TemplateFor(s, &site.Page{Type: site.TypeIndex}))
}

func TestRenderMarkdown(t *testing.T) {
	html := string(RenderMarkdown("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<table>")
}

func TestFuncMap(t *testing.T) {
	funcs := FuncMap()
	assert.Contains(t, funcs, "safe")
	assert.Contains(t, funcs, "upper")
}

func TestTemplateProcessor_RegistersUnitsByPhase(t *testing.T) {
	log := logger.NewNopLogger()
	pools := engine.NewPools(engine.PoolSizes{Compute: 1, IO: 1}, log)
	t.Cleanup(pools.Close)
	p := engine.NewStandard(site.New(t.TempDir(), types.DefaultConfigFile), pools, log)

	require.NoError(t, NewTemplateProcessor(log, nil).Register(p))

	assert.Equal(t, []string{"load_templates"}, p.Units(engine.PhaseLoad))
	assert.Equal(t, []string{"assign_templates"}, p.Units(engine.PhasePostProcess))
	assert.Equal(t, []string{"render_pages"}, p.Units(engine.PhaseWrite))
	assert.Empty(t, p.Units(engine.PhaseProcess))
}
