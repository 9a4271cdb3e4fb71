package css

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser splits CSS stylesheets into verbatim text and declarations.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

type token struct {
	tt   css.TokenType
	text string
}

// Parse parses CSS text into a Stylesheet. It never fails, malformed input
// is kept verbatim and noted in Stylesheet.Warnings.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Warnings: make([]string, 0),
	}

	// Log parsing start with source identifier if provided
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	lexer := css.NewLexer(parse.NewInput(bytes.NewReader(data)))
	var tokens []token
	for {
		tt, text := lexer.Next()
		if tt == css.ErrorToken {
			if err := lexer.Err(); err != nil && err != io.EOF {
				p.log.Debug("CSS lexer error", zap.Error(err))
				sheet.Warnings = append(sheet.Warnings, "lexer error: "+err.Error())
			}
			break
		}
		tokens = append(tokens, token{tt: tt, text: string(text)})
	}

	b := &builder{sheet: sheet, line: 1}

	// depth counts open blocks, nesting counts open parenthesis and brackets
	// inside of which block delimiters have no meaning
	depth, nesting, start := 0, 0, 0
	for i, t := range tokens {
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			nesting++
		case css.RightParenthesisToken, css.RightBracketToken:
			if nesting > 0 {
				nesting--
			}
		case css.LeftBraceToken:
			if nesting > 0 {
				continue
			}
			// selector or at-rule prelude
			b.raw(tokens[start : i+1])
			start = i + 1
			depth++
		case css.SemicolonToken:
			if nesting > 0 {
				continue
			}
			if depth > 0 {
				b.statement(tokens[start:i])
			} else {
				b.raw(tokens[start:i])
			}
			b.raw(tokens[i : i+1])
			start = i + 1
		case css.RightBraceToken:
			if nesting > 0 {
				continue
			}
			if depth > 0 {
				b.statement(tokens[start:i])
				depth--
			} else {
				b.raw(tokens[start:i])
				sheet.Warnings = append(sheet.Warnings, fmt.Sprintf("unexpected '}' at line %d", b.line))
			}
			b.raw(tokens[i : i+1])
			start = i + 1
		}
	}
	if depth > 0 {
		b.statement(tokens[start:])
		sheet.Warnings = append(sheet.Warnings, fmt.Sprintf("%d block(s) not closed at the end of stylesheet", depth))
	} else {
		b.raw(tokens[start:])
	}
	b.flush()

	if len(sheet.Warnings) > 0 {
		p.log.Debug("CSS parsed with warnings", zap.Strings("warnings", sheet.Warnings))
	}
	p.log.Debug("CSS parsed", zap.Int("declarations", b.decls), zap.Int("lines", b.line))
	return sheet
}

// builder accumulates verbatim text between declaration values.
type builder struct {
	sheet *Stylesheet
	buf   strings.Builder
	line  int
	decls int
}

func (b *builder) raw(tokens []token) {
	for _, t := range tokens {
		b.buf.WriteString(t.text)
		b.line += strings.Count(t.text, "\n")
	}
}

func (b *builder) flush() {
	b.sheet.appendRaw(b.buf.String())
	b.buf.Reset()
}

// statement handles block content terminated by ";" or "}". When it looks
// like a declaration its value becomes a separate segment.
func (b *builder) statement(tokens []token) {
	name := skipInsignificant(tokens, 0)
	if name == len(tokens) || (tokens[name].tt != css.IdentToken && tokens[name].tt != css.CustomPropertyNameToken) {
		b.raw(tokens)
		return
	}
	colon := skipInsignificant(tokens, name+1)
	if colon == len(tokens) || tokens[colon].tt != css.ColonToken {
		b.raw(tokens)
		return
	}

	first := colon + 1
	for first < len(tokens) && tokens[first].tt == css.WhitespaceToken {
		first++
	}
	last := trimTrailingSpace(tokens, first, len(tokens))

	important := false
	if bang, ok := importantStart(tokens, first, last); ok {
		important = true
		last = trimTrailingSpace(tokens, first, bang)
	}

	b.raw(tokens[:name])
	decl := &Declaration{
		Property:  tokens[name].text,
		Important: important,
		Line:      b.line,
	}
	b.raw(tokens[name:first])

	var value strings.Builder
	for _, t := range tokens[first:last] {
		value.WriteString(t.text)
	}
	decl.Value = value.String()

	b.flush()
	b.sheet.appendDecl(decl)
	b.decls++
	b.line += strings.Count(decl.Value, "\n")

	b.raw(tokens[last:])
}

// skipInsignificant returns index of the first token at or after i which is
// neither whitespace nor comment.
func skipInsignificant(tokens []token, i int) int {
	for i < len(tokens) && (tokens[i].tt == css.WhitespaceToken || tokens[i].tt == css.CommentToken) {
		i++
	}
	return i
}

// trimTrailingSpace returns end of tokens[from:to] without trailing whitespace.
func trimTrailingSpace(tokens []token, from, to int) int {
	for to > from && tokens[to-1].tt == css.WhitespaceToken {
		to--
	}
	return to
}

// importantStart checks if tokens[from:to] ends with "!important" and
// returns index of "!".
func importantStart(tokens []token, from, to int) (int, bool) {
	if to <= from || tokens[to-1].tt != css.IdentToken || !strings.EqualFold(tokens[to-1].text, "important") {
		return 0, false
	}
	i := trimTrailingSpace(tokens, from, to-1)
	if i <= from || tokens[i-1].tt != css.DelimToken || tokens[i-1].text != "!" {
		return 0, false
	}
	return i - 1, true
}
