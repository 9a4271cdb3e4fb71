package css

import (
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// NodeType is a kind of property value node.
type NodeType int

const (
	WordNode     NodeType = iota // identifiers, numbers, hashes, operators
	StringNode                   // quoted string, Value has no quotes
	FunctionNode                 // name(...) or plain parenthesis when Value is empty
	SpaceNode                    // whitespace between nodes
	DivNode                      // "," "/" ":"
	CommentNode                  // Value has no comment markers
)

// String returns the name of the node type.
func (t NodeType) String() string {
	switch t {
	case WordNode:
		return "word"
	case StringNode:
		return "string"
	case FunctionNode:
		return "function"
	case SpaceNode:
		return "space"
	case DivNode:
		return "div"
	case CommentNode:
		return "comment"
	default:
		return "unknown"
	}
}

// Node is a single element of a parsed property value. All texts are kept
// exactly as they appear in the source so serialized value is byte to byte
// identical to the parsed one unless nodes were changed.
type Node struct {
	Type     NodeType
	Value    string
	Quote    byte   // StringNode: quote character
	Unclosed bool   // StringNode, FunctionNode and CommentNode without closing part
	Before   string // FunctionNode: whitespace after opening parenthesis
	After    string // FunctionNode: whitespace before closing parenthesis
	Nodes    []*Node
}

// IsURL reports whether node is url() function with some content.
func (n *Node) IsURL() bool {
	return n.Type == FunctionNode && strings.EqualFold(n.Value, "url") && len(n.Nodes) > 0
}

// SetPayload replaces content of url() function with a quoted string and
// drops whitespace around it.
func (n *Node) SetPayload(value string, quote byte) {
	n.Nodes[0] = &Node{Type: StringNode, Value: value, Quote: quote}
	n.Before, n.After = "", ""
}

// String serializes node back to CSS text.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	switch n.Type {
	case StringNode:
		sb.WriteByte(n.Quote)
		sb.WriteString(n.Value)
		if !n.Unclosed {
			sb.WriteByte(n.Quote)
		}
	case FunctionNode:
		sb.WriteString(n.Value)
		sb.WriteByte('(')
		sb.WriteString(n.Before)
		for _, c := range n.Nodes {
			c.write(sb)
		}
		sb.WriteString(n.After)
		if !n.Unclosed {
			sb.WriteByte(')')
		}
	case CommentNode:
		sb.WriteString("/*")
		sb.WriteString(n.Value)
		if !n.Unclosed {
			sb.WriteString("*/")
		}
	default:
		sb.WriteString(n.Value)
	}
}

// WalkAction tells Walk what to do after visiting a node.
type WalkAction int

const (
	Descend      WalkAction = iota // visit children of a function node
	SkipChildren                   // do not look inside
)

// ValueTree is a parsed property value.
type ValueTree struct {
	Nodes []*Node
}

// ParseValue splits property value into nodes. It never fails: anything
// lexer does not recognize ends up in word nodes as is.
func ParseValue(value string) *ValueTree {
	root := &Node{Type: FunctionNode}
	stack := []*Node{root}

	lexer := css.NewLexer(parse.NewInputString(value))
	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			break
		}
		text := string(data)
		cur := stack[len(stack)-1]

		switch tt {
		case css.FunctionToken:
			fn := &Node{Type: FunctionNode, Value: strings.TrimSuffix(text, "("), Unclosed: true}
			cur.Nodes = append(cur.Nodes, fn)
			stack = append(stack, fn)
		case css.LeftParenthesisToken:
			fn := &Node{Type: FunctionNode, Unclosed: true}
			cur.Nodes = append(cur.Nodes, fn)
			stack = append(stack, fn)
		case css.RightParenthesisToken:
			if len(stack) == 1 {
				cur.Nodes = append(cur.Nodes, &Node{Type: WordNode, Value: text})
				continue
			}
			closeFunction(cur)
			stack = stack[:len(stack)-1]
		case css.URLToken, css.BadURLToken:
			cur.Nodes = append(cur.Nodes, parseURL(text))
		case css.StringToken, css.BadStringToken:
			cur.Nodes = append(cur.Nodes, parseString(text))
		case css.WhitespaceToken:
			cur.Nodes = append(cur.Nodes, &Node{Type: SpaceNode, Value: text})
		case css.CommaToken, css.ColonToken:
			cur.Nodes = append(cur.Nodes, &Node{Type: DivNode, Value: text})
		case css.DelimToken:
			if text == "/" {
				cur.Nodes = append(cur.Nodes, &Node{Type: DivNode, Value: text})
			} else {
				cur.Nodes = append(cur.Nodes, &Node{Type: WordNode, Value: text})
			}
		case css.CommentToken:
			cur.Nodes = append(cur.Nodes, parseComment(text))
		default:
			cur.Nodes = append(cur.Nodes, &Node{Type: WordNode, Value: text})
		}
	}
	// value ended inside of a function
	for len(stack) > 1 {
		fn := stack[len(stack)-1]
		moveSpaces(fn)
		stack = stack[:len(stack)-1]
	}
	return &ValueTree{Nodes: root.Nodes}
}

// Walk visits nodes depth first in source order.
func (t *ValueTree) Walk(fn func(n *Node) WalkAction) {
	walkNodes(t.Nodes, fn)
}

func walkNodes(nodes []*Node, fn func(n *Node) WalkAction) {
	for _, n := range nodes {
		if fn(n) == SkipChildren {
			continue
		}
		if n.Type == FunctionNode {
			walkNodes(n.Nodes, fn)
		}
	}
}

// WriteTo writes serialized value to w, implementing io.WriterTo.
func (t *ValueTree) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.String())
	return int64(n), err
}

// String serializes value back to CSS text.
func (t *ValueTree) String() string {
	var sb strings.Builder
	for _, n := range t.Nodes {
		n.write(&sb)
	}
	return sb.String()
}

func closeFunction(fn *Node) {
	fn.Unclosed = false
	moveSpaces(fn)
}

// moveSpaces turns leading and trailing whitespace of function arguments
// into Before and After.
func moveSpaces(fn *Node) {
	if len(fn.Nodes) > 0 && fn.Nodes[0].Type == SpaceNode {
		fn.Before = fn.Nodes[0].Value
		fn.Nodes = fn.Nodes[1:]
	}
	if len(fn.Nodes) > 0 && fn.Nodes[len(fn.Nodes)-1].Type == SpaceNode {
		fn.After = fn.Nodes[len(fn.Nodes)-1].Value
		fn.Nodes = fn.Nodes[:len(fn.Nodes)-1]
	}
}

// parseURL converts url token (whole "url(...)" text) into function node
// with a single string or word child.
func parseURL(text string) *Node {
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return &Node{Type: WordNode, Value: text}
	}
	fn := &Node{Type: FunctionNode, Value: text[:open]}

	inner := text[open+1:]
	if s, found := strings.CutSuffix(inner, ")"); found {
		inner = s
	} else {
		fn.Unclosed = true
	}

	content := strings.TrimLeft(inner, whitespace)
	fn.Before = inner[:len(inner)-len(content)]
	trimmed := strings.TrimRight(content, whitespace)
	fn.After = content[len(trimmed):]
	content = trimmed

	switch {
	case content == "":
		// url() with nothing inside
	case (content[0] == '"' || content[0] == '\'') && stringEnd(content) == len(content):
		fn.Nodes = []*Node{parseString(content)}
	default:
		fn.Nodes = []*Node{{Type: WordNode, Value: content}}
	}
	return fn
}

const whitespace = " \t\n\r\f"

// stringEnd returns index right after the string starting at s[0] or -1 if
// string is not terminated.
func stringEnd(s string) int {
	quote := s[0]
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return -1
}

func parseString(text string) *Node {
	quote := text[0]
	n := &Node{Type: StringNode, Quote: quote}
	if len(text) >= 2 && text[len(text)-1] == quote && stringEnd(text) == len(text) {
		n.Value = text[1 : len(text)-1]
	} else {
		n.Value = text[1:]
		n.Unclosed = true
	}
	return n
}

func parseComment(text string) *Node {
	inner := strings.TrimPrefix(text, "/*")
	if s, found := strings.CutSuffix(inner, "*/"); found && len(text) >= 4 {
		return &Node{Type: CommentNode, Value: s}
	}
	return &Node{Type: CommentNode, Value: inner, Unclosed: true}
}
