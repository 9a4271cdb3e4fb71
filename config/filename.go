package config

import (
	"strings"
	"unicode"
)

// CleanFileName removes characters not allowed in file names on current
// platform. Result is never empty.
func CleanFileName(in string) string {
	out := strings.TrimLeft(strings.Map(func(sym rune) rune {
		if unicode.IsControl(sym) || strings.ContainsRune(forbiddenChars, sym) {
			return -1
		}
		return sym
	}, in), leadingChars)
	if len(out) == 0 {
		out = "_bad_file_name_"
	}
	return out
}
