package debug

import "testing"

func TestTreeWriter(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		build func(tw *TreeWriter)
		want  string
	}{
		{
			name:  "empty",
			build: func(*TreeWriter) {},
			want:  "",
		},
		{
			name: "formatted lines",
			build: func(tw *TreeWriter) {
				tw.Line(0, "value")
				tw.Line(1, "function %q", "url")
				tw.Line(2, "%s = %d", "nodes", 2)
			},
			want: "value\n  function \"url\"\n    nodes = 2\n",
		},
		{
			name: "negative depth",
			build: func(tw *TreeWriter) {
				tw.Line(-1, "root")
			},
			want: "root\n",
		},
		{
			name: "text blocks",
			build: func(tw *TreeWriter) {
				tw.TextBlock(0, "empty", "")
				tw.TextBlock(1, "quoted", `fill="#fff"`)
				tw.TextBlock(2, "multiline", "<svg>\n</svg>")
			},
			want: "empty: \n  quoted: \"fill=\\\"#fff\\\"\"\n    multiline: \"<svg>\\n</svg>\"\n",
		},
		{
			name:  "image-set value",
			limit: 12,
			build: func(tw *TreeWriter) {
				tw.Line(0, "value")
				tw.Line(1, "function %q", "image-set")
				tw.Line(2, "function %q", "url")
				tw.TextBlock(3, "string", "data:image/svg+xml,<svg/>")
				tw.Line(2, "div %q", ",")
				tw.Line(2, "function %q", "url")
				tw.TextBlock(3, "string", "a.png")
			},
			want: "value\n" +
				"  function \"image-set\"\n" +
				"    function \"url\"\n" +
				"      string: \"data:image/s\"...(25 bytes)\n" +
				"    div \",\"\n" +
				"    function \"url\"\n" +
				"      string: \"a.png\"\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter().WithLimit(tt.limit)
			tt.build(tw)
			if got := tw.String(); got != tt.want {
				t.Errorf("String() =\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestEncodeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"empty", "", 0, ""},
		{"plain", "hello", 0, `"hello"`},
		{"escapes", "a\tb\\c", 0, `"a\tb\\c"`},
		{"short value", "short", 10, `"short"`},
		{"exact value", "exact", 5, `"exact"`},
		{"long value", "<svg viewBox>", 4, `"<svg"...(13 bytes)`},
		{"cut inside rune", "яя", 3, `"я"...(4 bytes)`},
		{"cut before first rune", "яя", 1, `""...(4 bytes)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeText(tt.input, tt.limit); got != tt.want {
				t.Errorf("encodeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTreeWriter_NegativeLimit(t *testing.T) {
	tw := NewTreeWriter().WithLimit(-1)
	if tw.limit != 0 {
		t.Errorf("limit = %d, want 0", tw.limit)
	}
}
