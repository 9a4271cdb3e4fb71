package datauri

import (
	"fmt"
	"regexp"
)

// DefaultPattern recognizes SVG data URI preamble with optional UTF-8 charset.
const DefaultPattern = `data:image/svg\+xml(;(charset=)?utf-8)?,`

// Patterns is an ordered list of expressions identifying SVG data URIs.
type Patterns []*regexp.Regexp

// Compile compiles expressions in order. With no expressions DefaultPattern
// is used.
func Compile(exprs ...string) (Patterns, error) {
	if len(exprs) == 0 {
		exprs = []string{DefaultPattern}
	}
	patterns := make(Patterns, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("bad data URI pattern %q: %w", expr, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// Default returns patterns containing only DefaultPattern.
func Default() Patterns {
	return Patterns{regexp.MustCompile(DefaultPattern)}
}

// Match reports whether any of the patterns matches text.
func (p Patterns) Match(text string) bool {
	for _, re := range p {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Strip removes the first occurrence of the first matching pattern from text.
// Text is returned unchanged when nothing matches.
func (p Patterns) Strip(text string) string {
	for _, re := range p {
		if loc := re.FindStringIndex(text); loc != nil {
			return text[:loc[0]] + text[loc[1]:]
		}
	}
	return text
}

// Strings returns source expressions in order.
func (p Patterns) Strings() []string {
	res := make([]string, 0, len(p))
	for _, re := range p {
		res = append(res, re.String())
	}
	return res
}
