// Package datauri handles SVG data URIs embedded into stylesheets: percent
// encoding and decoding of the payload and recognition of the data URI
// preamble.
package datauri

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Prefix is written in front of every rewritten payload.
const Prefix = "data:image/svg+xml;charset=utf-8,"

// encoder escapes characters which break SVG inside CSS string or url().
// Replacement is done in a single pass, so "%" inserted by other
// replacements is never escaped twice.
var encoder = strings.NewReplacer(
	`"`, `'`,
	`%`, `%25`,
	`<`, `%3C`,
	`>`, `%3E`,
	`&`, `%26`,
	`#`, `%23`,
)

// matches what JavaScript considers whitespace, not only ASCII
var whitespaceRun = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)

// Encode percent-escapes SVG markup for use in a double quoted data URI.
// Double quotes are turned into single ones and whitespace runs are
// collapsed into a single space.
func Encode(svg string) string {
	return whitespaceRun.ReplaceAllString(encoder.Replace(svg), " ")
}

// Decode percent-decodes payload. When payload is not properly encoded
// (malformed escape sequence or escapes producing invalid UTF-8) it returns
// payload unchanged and false.
func Decode(payload string) (string, bool) {
	decoded, err := url.PathUnescape(payload)
	if err != nil || !utf8.ValidString(decoded) {
		return payload, false
	}
	return decoded, true
}

// EscapeHash replaces every "#" with "%23". Unescaped "#" starts URI fragment
// and truncates SVG in Firefox while Chrome tolerates it.
func EscapeHash(s string) string {
	return strings.ReplaceAll(s, "#", "%23")
}
