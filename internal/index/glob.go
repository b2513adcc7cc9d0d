package index

import (
	"fmt"
	"regexp"
	"strings"
)

// globToRegexp translates a glob pattern to an anchored regexp. Supported
// wildcards are `*` (any run within a path segment), `**` (any run across
// segments), and `?` (one character). Brace expansion and character classes
// are not supported; other characters match literally.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				// "**/" matches zero or more whole segments.
				if i+2 < len(runes) && runes[i+2] == '/' {
					b.WriteString(`(?:.*/)?`)
					i += 2
				} else {
					b.WriteString(`.*`)
					i++
				}
			} else {
				b.WriteString(`[^/]*`)
			}
		case '?':
			b.WriteString(`[^/]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}

	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return re, nil
}

// patternSet is a compiled list of glob patterns.
type patternSet []*regexp.Regexp

// compilePatterns compiles glob patterns, failing on the first invalid one.
func compilePatterns(patterns []string) (patternSet, error) {
	set := make(patternSet, 0, len(patterns))
	for _, p := range patterns {
		re, err := globToRegexp(p)
		if err != nil {
			return nil, err
		}
		set = append(set, re)
	}
	return set, nil
}

// matches reports whether any pattern matches the slash-separated path.
func (s patternSet) matches(path string) bool {
	for _, re := range s {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
