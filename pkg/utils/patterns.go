package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// PatternMatcher matches slash-separated paths against glob patterns.
// "*" stops at "/", "**" crosses directories, "?" is one character and
// "[...]" / "[!...]" are character classes.
type PatternMatcher struct {
	patterns []string
	regexps  []*regexp.Regexp
}

// NewPatternMatcher compiles patterns, expanded with ExpandPattern.
func NewPatternMatcher(patterns []string) (*PatternMatcher, error) {
	pm := &PatternMatcher{}
	for _, pattern := range patterns {
		for _, expanded := range ExpandPattern(NormalizePattern(pattern)) {
			re, err := compileGlob(expanded)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", pattern, err)
			}
			pm.patterns = append(pm.patterns, expanded)
			pm.regexps = append(pm.regexps, re)
		}
	}
	return pm, nil
}

// Match checks if a path matches any pattern
func (pm *PatternMatcher) Match(path string) bool {
	path = filepath.ToSlash(path)
	for _, re := range pm.regexps {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Filter returns the paths that match none of the patterns.
func (pm *PatternMatcher) Filter(paths []string) []string {
	var kept []string
	for _, p := range paths {
		if !pm.Match(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

// globMeta lists the bytes a backslash escapes.
const globMeta = `*?[]\\`

func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			b.WriteString("(?:.*/)?")
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i += 2
		case c == '*':
			b.WriteString("[^/]*")
			i++
		case c == '?':
			b.WriteString("[^/]")
			i++
		case c == '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				i++
				continue
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 2
		case c == '\\' && i+1 < len(pattern):
			b.WriteString(regexp.QuoteMeta(pattern[i+1 : i+2]))
			i += 2
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	b.WriteString("$")
	return regexp.Compile(b.String())
}

// IsGlobPattern checks if a string contains glob wildcards
func IsGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// NormalizePattern converts separators to "/" and strips a leading "./"
// and a trailing "/". A backslash before a glob metacharacter is an
// escape and is kept.
func NormalizePattern(pattern string) string {
	if strings.ContainsRune(pattern, '\\') {
		var b strings.Builder
		for i := 0; i < len(pattern); i++ {
			c := pattern[i]
			if c != '\\' {
				b.WriteByte(c)
				continue
			}
			if i+1 < len(pattern) && strings.IndexByte(globMeta, pattern[i+1]) >= 0 {
				b.WriteString(pattern[i : i+2])
				i++
				continue
			}
			b.WriteByte('/')
		}
		pattern = b.String()
	}
	pattern = strings.TrimPrefix(pattern, "./")
	return strings.TrimSuffix(pattern, "/")
}

// ExpandPattern returns pattern plus the variants that also match the
// contents of a matching directory and, for relative patterns, matches at
// any depth.
func ExpandPattern(pattern string) []string {
	if pattern == "" {
		return nil
	}
	patterns := []string{pattern, pattern + "/**"}
	if !strings.HasPrefix(pattern, "**") && !strings.HasPrefix(pattern, "/") {
		patterns = append(patterns, "**/"+pattern, "**/"+pattern+"/**")
	}
	return patterns
}

// MatchGlob matches a single path against a single pattern.
func MatchGlob(pattern, path string) (bool, error) {
	re, err := compileGlob(NormalizePattern(pattern))
	if err != nil {
		return false, err
	}
	return re.MatchString(filepath.ToSlash(path)), nil
}
