package css

import (
	"fmt"

	"inlinesvg/utils/debug"
)

// payloads in dumps are cut to keep debug logs readable
const dumpTextLimit = 64

// Dump returns readable tree of the value for debugging.
func (t *ValueTree) Dump() string {
	tw := debug.NewTreeWriter().WithLimit(dumpTextLimit)
	tw.Line(0, "value (%d nodes)", len(t.Nodes))
	dumpNodes(tw, 1, t.Nodes)
	return tw.String()
}

func dumpNodes(tw *debug.TreeWriter, depth int, nodes []*Node) {
	for _, n := range nodes {
		switch n.Type {
		case FunctionNode:
			if n.Unclosed {
				tw.Line(depth, "%s %q unclosed", n.Type, n.Value)
			} else {
				tw.Line(depth, "%s %q", n.Type, n.Value)
			}
			dumpNodes(tw, depth+1, n.Nodes)
		case StringNode:
			tw.TextBlock(depth, fmt.Sprintf("%s %c", n.Type, n.Quote), n.Value)
		default:
			tw.TextBlock(depth, n.Type.String(), n.Value)
		}
	}
}
