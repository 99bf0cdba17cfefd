package matter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ExtractsTable(t *testing.T) {
	page := "+++\n[thing]\nkey = true+++\nOther text"

	data, ok := NewParser("").Parse(page)
	require.True(t, ok)

	thing, found := data.Get("thing")
	require.True(t, found)
	assert.Equal(t, map[string]any{"key": true}, thing)
	assert.Equal(t, "Other text", data.Content())

	_, hasExcerpt := data.Excerpt()
	assert.False(t, hasExcerpt)
}

func TestParse_ExtractsAllData(t *testing.T) {
	parser := NewParser(DefaultDelimiter).WithExcerpt("<!-- excerpt -->")
	page := "+++\n[thing]\nkey = true+++\nOther text\n<!-- excerpt -->\nEverything else I don't want to include.\n\nA Paragraph\n"

	data, ok := parser.Parse(page)
	require.True(t, ok)

	thing, _ := data.Get("thing")
	assert.Equal(t, map[string]any{"key": true}, thing)

	excerpt, hasExcerpt := data.Excerpt()
	assert.True(t, hasExcerpt)
	assert.Equal(t, "Other text", excerpt)
	assert.Equal(t, "Everything else I don't want to include.\n\nA Paragraph", data.Content())
}

func TestParse_NoFrontMatter(t *testing.T) {
	_, ok := NewParser("").Parse("Everything else I don't want to include.\n\nA Paragraph\n")
	assert.False(t, ok)
}

func TestParse_InvalidMatterKeepsContent(t *testing.T) {
	data, ok := NewParser("").Parse("+++\nthis is = = not toml\n+++\n\nBody\n")
	require.True(t, ok)
	assert.Nil(t, data.Matter())
	assert.Equal(t, "Body", data.Content())

	_, found := data.Get("anything")
	assert.False(t, found)
}

func TestParse_UnclosedMatter(t *testing.T) {
	page := "+++\ntitle = \"x\"\n"
	data, ok := NewParser("").Parse(page)
	require.True(t, ok)
	assert.Equal(t, "+++\ntitle = \"x\"", data.Content())
}

func TestParse_ExcerptDelimiterMissing(t *testing.T) {
	parser := NewParser("").WithExcerpt("<!-- more -->")
	data, ok := parser.Parse("+++\n+++\nJust a body\n")
	require.True(t, ok)

	_, hasExcerpt := data.Excerpt()
	assert.False(t, hasExcerpt)
	assert.Equal(t, "Just a body", data.Content())
}

func TestWithExcerpt_DoesNotMutateReceiver(t *testing.T) {
	base := NewParser("")
	_ = base.WithExcerpt("<!-- excerpt -->")

	data, ok := base.Parse("+++\n+++\nA\n<!-- excerpt -->\nB")
	require.True(t, ok)
	_, hasExcerpt := data.Excerpt()
	assert.False(t, hasExcerpt)
}

func TestParsedData_TypedGetters(t *testing.T) {
	page := "+++\ntitle = \"Hello\"\ndate = 2024-03-01\ndraft = true\nweight = 5\n+++\nbody"
	data, ok := NewParser("").Parse(page)
	require.True(t, ok)

	tests := []struct {
		key  string
		want string
	}{
		{"title", "Hello"},
		{"date", "2024-03-01"},
		{"weight", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, found := data.GetString(tt.key)
			require.True(t, found)
			assert.Equal(t, tt.want, got)
		})
	}

	draft, found := data.GetBool("draft")
	assert.True(t, found)
	assert.True(t, draft)

	_, found = data.GetBool("title")
	assert.False(t, found)

	_, found = data.GetString("missing")
	assert.False(t, found)
}

func TestParse_CustomDelimiter(t *testing.T) {
	data, ok := NewParser("---").Parse("---\ntitle = \"t\"\n---\ncontent")
	require.True(t, ok)
	title, _ := data.GetString("title")
	assert.Equal(t, "t", title)
	assert.Equal(t, "content", data.Content())
}
