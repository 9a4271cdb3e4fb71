// Package debug produces readable dumps of parsed structures for debug logs.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter accumulates indented lines, one level of depth is two spaces.
type TreeWriter struct {
	w     *strings.Builder
	limit int
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

// WithLimit makes TextBlock cut values longer than n bytes. Zero means no
// limit.
func (tw *TreeWriter) WithLimit(n int) *TreeWriter {
	tw.limit = max(n, 0)
	return tw
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes label and quoted value.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value, tw.limit))
	tw.w.WriteByte('\n')
}

func (tw *TreeWriter) indent(depth int) {
	tw.w.WriteString(strings.Repeat("  ", max(depth, 0)))
}

func encodeText(raw string, limit int) string {
	if raw == "" {
		return raw
	}
	if limit == 0 || len(raw) <= limit {
		return strconv.Quote(raw)
	}
	cut := limit
	for cut > 0 && !isRuneStart(raw[cut]) {
		cut--
	}
	return strconv.Quote(raw[:cut]) + fmt.Sprintf("...(%d bytes)", len(raw))
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
