package archive

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/multierr"
)

func isCSS(name string) bool {
	return strings.HasSuffix(name, ".css")
}

func readZip(t *testing.T, path string) ([]string, map[string]string, map[string]uint16) {
	t.Helper()

	r, err := fixzip.OpenReader(path)
	if err != nil {
		t.Fatalf("unable to open result: %v", err)
	}
	defer r.Close()

	var names []string
	contents := make(map[string]string)
	methods := make(map[string]uint16)
	for _, f := range r.File {
		names = append(names, f.Name)
		methods[f.Name] = f.Method
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		contents[f.Name] = string(data)
	}
	return names, contents, methods
}

func TestRewrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "book.epub")
	dst := filepath.Join(dir, "out.epub")

	makeZip(t, src, []testEntry{
		{name: "mimetype", content: "application/epub+zip", method: fixzip.Store},
		{name: "OEBPS/"},
		{name: "OEBPS/style.css", content: "a { color: red }", method: fixzip.Deflate},
		{name: "OEBPS/broken.css", content: "b { color: blue }", method: fixzip.Deflate},
		{name: "OEBPS/index.xhtml", content: "<html/>", method: fixzip.Deflate},
	})

	errBroken := errors.New("broken")
	changed, err := Rewrite(src, dst, isCSS, func(name string, data []byte) ([]byte, error) {
		if strings.Contains(name, "broken") {
			return nil, errBroken
		}
		return []byte(strings.ToUpper(string(data))), nil
	})

	if changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}
	errs := multierr.Errors(err)
	if len(errs) != 1 {
		t.Fatalf("expected single entry error, got %v", err)
	}
	var ee *EntryError
	if !errors.As(errs[0], &ee) || ee.Name != "OEBPS/broken.css" || !errors.Is(ee, errBroken) {
		t.Errorf("unexpected entry error %#v", errs[0])
	}

	names, contents, methods := readZip(t, dst)
	want := []string{"mimetype", "OEBPS/", "OEBPS/style.css", "OEBPS/broken.css", "OEBPS/index.xhtml"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("entries = %v, want %v", names, want)
	}
	if methods["mimetype"] != fixzip.Store {
		t.Errorf("mimetype must stay uncompressed, method = %d", methods["mimetype"])
	}
	if methods["OEBPS/style.css"] != fixzip.Deflate {
		t.Errorf("rewritten entry lost compression, method = %d", methods["OEBPS/style.css"])
	}
	if got := contents["OEBPS/style.css"]; got != "A { COLOR: RED }" {
		t.Errorf("rewritten entry = %q", got)
	}
	if got := contents["OEBPS/broken.css"]; got != "b { color: blue }" {
		t.Errorf("failed entry was not kept: %q", got)
	}
	if got := contents["mimetype"]; got != "application/epub+zip" {
		t.Errorf("copied entry = %q", got)
	}
}

func TestRewrite_NothingSelected(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.zip")
	dst := filepath.Join(dir, "out.zip")
	makeZip(t, src, []testEntry{{name: "a.txt", content: "a"}})

	changed, err := Rewrite(src, dst, isCSS, func(name string, data []byte) ([]byte, error) {
		t.Errorf("unexpected call for %s", name)
		return data, nil
	})
	if err != nil || changed != 0 {
		t.Fatalf("Rewrite() = %d, %v", changed, err)
	}
	_, contents, _ := readZip(t, dst)
	if contents["a.txt"] != "a" {
		t.Errorf("unexpected content %q", contents["a.txt"])
	}
}

func TestRewrite_BadSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := Rewrite(filepath.Join(dir, "missing.zip"), filepath.Join(dir, "out.zip"), isCSS, nil); err == nil {
		t.Error("expected error for missing source")
	}
	if _, err := Rewrite(filepath.Join(dir, "missing.zip"), filepath.Join(dir, "no", "such", "out.zip"), isCSS, nil); err == nil {
		t.Error("expected error for bad destination")
	}
}
