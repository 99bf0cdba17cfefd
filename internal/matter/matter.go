// Package matter splits a page into TOML front matter, an optional
// excerpt and the remaining content.
package matter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultDelimiter fences the front matter block.
const DefaultDelimiter = "+++"

// Parser extracts front matter fenced by a delimiter.
type Parser struct {
	delimiter string
	excerpt   string
}

// NewParser returns a parser using delimiter, or DefaultDelimiter when
// delimiter is empty.
func NewParser(delimiter string) *Parser {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &Parser{delimiter: delimiter}
}

// WithExcerpt returns a copy of p that splits content on delimiter. The
// text before the first occurrence becomes the excerpt.
func (p *Parser) WithExcerpt(delimiter string) *Parser {
	cp := *p
	cp.excerpt = delimiter
	return &cp
}

// ParsedData is the result of Parse.
type ParsedData struct {
	matter     map[string]any
	excerpt    string
	hasExcerpt bool
	content    string
}

// Parse returns false when page does not start with the delimiter.
// Invalid TOML yields nil matter; the content is still returned. A page
// with no closing delimiter keeps the whole page as content.
func (p *Parser) Parse(page string) (*ParsedData, bool) {
	rest, ok := strings.CutPrefix(page, p.delimiter)
	if !ok {
		return nil, false
	}

	data := &ParsedData{}
	raw, body, closed := strings.Cut(rest, p.delimiter)

	var table map[string]any
	if err := toml.Unmarshal([]byte(raw), &table); err == nil {
		data.matter = table
	}

	if !closed {
		data.content = strings.TrimSpace(page)
		return data, true
	}

	if p.excerpt != "" {
		if excerpt, content, found := strings.Cut(body, p.excerpt); found {
			data.excerpt = strings.TrimSpace(excerpt)
			data.hasExcerpt = true
			data.content = strings.TrimSpace(content)
			return data, true
		}
	}

	data.content = strings.TrimSpace(body)
	return data, true
}

// Get returns a top-level front matter value.
func (d *ParsedData) Get(key string) (any, bool) {
	if d.matter == nil {
		return nil, false
	}
	v, ok := d.matter[key]
	return v, ok
}

// GetString returns a top-level value rendered as a string.
func (d *ParsedData) GetString(key string) (string, bool) {
	return String(d.matter, key)
}

// GetBool returns a top-level boolean value.
func (d *ParsedData) GetBool(key string) (value, ok bool) {
	return Bool(d.matter, key)
}

// String renders m[key] as a string. Strings are returned as-is, without
// TOML quoting; offset date-times use RFC 3339.
func String(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case time.Time:
		return t.Format(time.RFC3339), true
	case fmt.Stringer:
		return t.String(), true
	default:
		b, err := toml.Marshal(map[string]any{"v": t})
		if err != nil {
			return "", false
		}
		_, s, _ := strings.Cut(strings.TrimSpace(string(b)), "= ")
		return s, true
	}
}

// Bool returns m[key] when it is a boolean.
func Bool(m map[string]any, key string) (value, ok bool) {
	b, ok := m[key].(bool)
	return b, ok
}

// Matter returns the decoded front matter, or nil if it was missing or
// invalid.
func (d *ParsedData) Matter() map[string]any { return d.matter }

// Excerpt returns the excerpt and whether one was found.
func (d *ParsedData) Excerpt() (string, bool) { return d.excerpt, d.hasExcerpt }

// Content returns the trimmed page body.
func (d *ParsedData) Content() string { return d.content }
