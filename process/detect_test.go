package process

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"inlinesvg/state"
)

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		file string
		make func(path string)
		want bool
	}{
		{
			name: "stylesheet",
			file: "style.css",
			make: func(path string) { writeFile(t, path, sampleCSS) },
		},
		{
			name: "zip extension but invalid content",
			file: "test.zip",
			make: func(path string) { writeFile(t, path, "not a real zip file") },
		},
		{
			name: "empty file",
			file: "empty.zip",
			make: func(path string) { writeFile(t, path, "") },
		},
		{
			name: "valid zip",
			file: "test.dat",
			make: func(path string) {
				makeZip(t, path, []zipEntry{{name: "a.css", content: "a{}", method: fixzip.Deflate}})
			},
			want: true,
		},
		{
			name: "epub",
			file: "book.epub",
			make: func(path string) {
				makeZip(t, path, []zipEntry{
					{name: "mimetype", content: "application/epub+zip", method: fixzip.Store},
					{name: "OEBPS/style.css", content: "a{}", method: fixzip.Deflate},
				})
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			tt.make(path)
			got, err := isArchiveFile(path)
			if err != nil {
				t.Fatalf("isArchiveFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("isArchiveFile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsArchiveFile_NonExistent(t *testing.T) {
	if _, err := isArchiveFile("/nonexistent/file.zip"); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestIsStylesheet(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"style.css", true},
		{"OEBPS/Style.CSS", true},
		{"style.css.bak", false},
		{"css", false},
		{"index.html", false},
	}
	for _, tt := range tests {
		if got := isStylesheet(tt.name); got != tt.want {
			t.Errorf("isStylesheet(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDetectCharset(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		want     string
		identity bool
	}{
		{"plain ascii", []byte("a { b: c }"), "utf-8", true},
		{"utf-8 text", []byte("/* привет */ a { b: c }"), "utf-8", true},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "a{}"...), "utf-8", true},
		{"utf-16le bom", []byte{0xFF, 0xFE, 'a', 0, '{', 0, '}', 0}, "utf-16le", false},
		{"charset rule", []byte(`@charset "windows-1251"; a { b: c }`), "windows-1251", false},
		{"charset rule utf-8", []byte(`@charset "UTF-8"; a { b: c }`), "utf-8", true},
		{"charset rule utf-16", []byte(`@charset "utf-16"; a { b: c }`), "utf-8", true},
		{"unknown charset rule", []byte(`@charset "no-such-thing"; a { b: c }`), "utf-8", true},
		{"malformed charset rule", []byte(`@charset 'koi8-r'; a { b: c }`), "utf-8", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, name := detectCharset(tt.data)
			if name != tt.want {
				t.Errorf("detectCharset() name = %q, want %q", name, tt.want)
			}
			if (enc == nil) != tt.identity {
				t.Errorf("detectCharset() encoding = %v, identity expected %v", enc, tt.identity)
			}
		})
	}
}

func TestDecodeStylesheet(t *testing.T) {
	text := "@charset \"windows-1251\";\n/* привет */ a { b: c }"
	cp1251, err := charmap.Windows1251.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatalf("encode sample: %v", err)
	}
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("/* привет */ a{}"))
	if err != nil {
		t.Fatalf("encode sample: %v", err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf-8", []byte("/* привет */ a{}"), "/* привет */ a{}"},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "a{}"...), "a{}"},
		{"windows-1251", cp1251, text},
		{"utf-16le bom", utf16, "/* привет */ a{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, restore, err := decodeStylesheet(tt.data)
			if err != nil {
				t.Fatalf("decodeStylesheet() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("decodeStylesheet() = %q, want %q", got, tt.want)
			}
			back, err := restore(got)
			if err != nil {
				t.Fatalf("restore() error = %v", err)
			}
			if !bytes.Equal(back, tt.data) {
				t.Errorf("restore() = %v, want %v", back, tt.data)
			}
		})
	}
}

func TestProcessFile_KeepsEncoding(t *testing.T) {
	ctx, env := setupTestEnv(t)
	b := newBatch(t, env)

	text := "@charset \"windows-1251\";\n/* значок */\n" + sampleCSS
	data, err := charmap.Windows1251.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatalf("encode sample: %v", err)
	}
	src := filepath.Join(t.TempDir(), "style.css")
	dst := t.TempDir()
	if err := os.WriteFile(src, data, 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	if err := b.processFile(ctx, src, "style.css", dst); err != nil {
		t.Fatalf("processFile() error = %v", err)
	}
	out, err := os.ReadFile(filepath.Join(dst, "style.css"))
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(out)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !bytes.HasPrefix(decoded, []byte("@charset \"windows-1251\";\n/* значок */\n")) {
		t.Errorf("encoding was not kept:\n%s", decoded)
	}
	checkOptimized(t, string(decoded))
}

func TestBuildOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		nodirs bool
		want   string
	}{
		{"single file", "style.css", false, filepath.Join("out", "style.css")},
		{"nested keep dirs", filepath.Join("a", "b", "style.css"), false, filepath.Join("out", "a", "b", "style.css")},
		{"nested no dirs", filepath.Join("a", "b", "style.css"), true, filepath.Join("out", "style.css")},
		{"archive", filepath.Join("books", "book.epub"), false, filepath.Join("out", "books", "book.epub")},
		{"hidden name", ".style.css", false, filepath.Join("out", "style.css")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &state.LocalEnv{NoDirs: tt.nodirs}
			if got := buildOutputPath(tt.src, "out", env); got != tt.want {
				t.Errorf("buildOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntryName(t *testing.T) {
	log := zaptest.NewLogger(t)

	raw, err := charmap.CodePage866.NewEncoder().String("стиль.css")
	if err != nil {
		t.Fatalf("encode name: %v", err)
	}

	if got := entryName(nil, raw, log); got != raw {
		t.Errorf("name without code page changed: %q", got)
	}
	if got := entryName(charmap.CodePage866, "style.css", log); got != "style.css" {
		t.Errorf("valid name changed: %q", got)
	}
	if got := entryName(charmap.CodePage866, raw, log); got != "стиль.css" {
		t.Errorf("entryName() = %q, want стиль.css", got)
	}
}
