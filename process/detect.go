package process

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// enough for filetype to recognize any of the archive signatures
const headerSize = 262

var (
	utf8BOM       = []byte{0xEF, 0xBB, 0xBF}
	charsetPrefix = []byte(`@charset "`)
)

// isArchiveFile checks file content (not extension) for zip signature. EPUB
// books are zip archives too.
func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	kind, err := filetype.Match(head[:n])
	if err != nil {
		return false, err
	}
	return kind.Extension == "zip" || kind.Extension == "epub", nil
}

func isStylesheet(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".css")
}

// detectCharset determines stylesheet encoding. Byte order mark wins, then
// @charset rule, then content is checked for being valid UTF-8. Returned
// encoding is nil for UTF-8 - such text needs no conversion.
func detectCharset(data []byte) (encoding.Encoding, string) {
	enc, name, certain := charset.DetermineEncoding(data, "text/css")
	if !certain {
		if e, n, ok := charsetRule(data); ok {
			enc, name = e, n
		} else if utf8.Valid(data) {
			name = "utf-8"
		}
	}
	if name == "utf-8" {
		return nil, name
	}
	return enc, name
}

// charsetRule looks at @charset rule, which must be the very first thing in
// the stylesheet.
func charsetRule(data []byte) (encoding.Encoding, string, bool) {
	if !bytes.HasPrefix(data, charsetPrefix) {
		return nil, "", false
	}
	rest := data[len(charsetPrefix):]
	end := bytes.Index(rest, []byte(`";`))
	if end <= 0 {
		return nil, "", false
	}
	enc, name := charset.Lookup(string(rest[:end]))
	if enc == nil {
		return nil, "", false
	}
	// stylesheet which could be read as ASCII cannot be in UTF-16
	if strings.HasPrefix(name, "utf-16") {
		return nil, "utf-8", true
	}
	return enc, name, true
}

// decodeStylesheet converts stylesheet into UTF-8 text without byte order
// mark. Returned function performs reverse conversion.
func decodeStylesheet(data []byte) ([]byte, func([]byte) ([]byte, error), error) {
	enc, _ := detectCharset(data)
	if enc == nil {
		if bytes.HasPrefix(data, utf8BOM) {
			return data[len(utf8BOM):], func(out []byte) ([]byte, error) {
				return append(bytes.Clone(utf8BOM), out...), nil
			}, nil
		}
		return data, func(out []byte) ([]byte, error) { return out, nil }, nil
	}

	text, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, nil, err
	}
	bom := bytes.HasPrefix(text, utf8BOM)
	if bom {
		text = text[len(utf8BOM):]
	}
	return text, func(out []byte) ([]byte, error) {
		if bom {
			out = append(bytes.Clone(utf8BOM), out...)
		}
		return enc.NewEncoder().Bytes(out)
	}, nil
}
