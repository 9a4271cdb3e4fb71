package css

import (
	"io"
	"strings"
)

// Declaration is a single "property: value" pair of a rule. Only Value may be
// changed, everything else is kept for information.
type Declaration struct {
	Property  string // property name as written (custom properties included)
	Value     string // value without surrounding whitespace and !important
	Important bool   // declaration has !important flag
	Line      int    // 1-based line number in source
}

// segment is either verbatim source text or a declaration value.
type segment struct {
	raw  string
	decl *Declaration
}

// Stylesheet is a lossless representation of CSS text. Anything which is not
// a declaration value (selectors, at-rules, comments, whitespace, property
// names and punctuation) is kept verbatim, so serialized stylesheet is equal
// to the source except for changed declaration values.
type Stylesheet struct {
	segments []segment
	Warnings []string // problems noticed while parsing
}

// Declarations returns all declarations in source order including ones
// nested in at-rules and nested rules.
func (s *Stylesheet) Declarations() []*Declaration {
	var decls []*Declaration
	for _, seg := range s.segments {
		if seg.decl != nil {
			decls = append(decls, seg.decl)
		}
	}
	return decls
}

// Walk calls fn for every declaration in source order.
func (s *Stylesheet) Walk(fn func(decl *Declaration)) {
	for _, seg := range s.segments {
		if seg.decl != nil {
			fn(seg.decl)
		}
	}
}

// WriteTo writes the stylesheet to w, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, seg := range s.segments {
		text := seg.raw
		if seg.decl != nil {
			text = seg.decl.Value
		}
		n, err := io.WriteString(w, text)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func (s *Stylesheet) appendRaw(text string) {
	if text == "" {
		return
	}
	if n := len(s.segments); n > 0 && s.segments[n-1].decl == nil {
		s.segments[n-1].raw += text
		return
	}
	s.segments = append(s.segments, segment{raw: text})
}

func (s *Stylesheet) appendDecl(decl *Declaration) {
	s.segments = append(s.segments, segment{decl: decl})
}
