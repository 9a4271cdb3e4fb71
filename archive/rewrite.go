package archive

import (
	"fmt"
	"io"
	"os"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/multierr"
)

// TransformFunc returns new content for archive entry.
type TransformFunc func(name string, data []byte) ([]byte, error)

// EntryError reports archive entry which could not be transformed. Such
// entry is kept in the resulting archive unchanged.
type EntryError struct {
	Name string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("zip entry %q: %v", e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Rewrite copies archive src into new archive dst preserving order of
// entries. Files selected by match are passed through fn and stored with
// their new content, everything else is copied without recompression.
// Failures of fn do not stop processing, they are returned combined after
// the whole archive has been written, every one of them as *EntryError.
// Any other error aborts the rewrite.
func Rewrite(src, dst string, match func(name string) bool, fn TransformFunc) (changed int, err error) {

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("unable to create target file (%s): %w", dst, err)
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()

	w := fixzip.NewWriter(out)

	var failed error
	werr := Walk(src, nil, func(_ string, f *fixzip.File) error {
		if f.FileInfo().IsDir() || match == nil || !match(f.Name) {
			return copyEntry(w, f)
		}

		data, err := readEntry(f)
		if err != nil {
			return fmt.Errorf("unable to read zip entry %q: %w", f.Name, err)
		}
		res, err := fn(f.Name, data)
		if err != nil {
			failed = multierr.Append(failed, &EntryError{Name: f.Name, Err: err})
			return copyEntry(w, f)
		}

		ew, err := w.CreateHeader(&fixzip.FileHeader{
			Name:     f.Name,
			Comment:  f.Comment,
			Method:   f.Method,
			Modified: f.Modified,
		})
		if err != nil {
			return fmt.Errorf("unable to create zip entry %q: %w", f.Name, err)
		}
		if _, err := ew.Write(res); err != nil {
			return fmt.Errorf("unable to write zip entry %q: %w", f.Name, err)
		}
		changed++
		return nil
	})
	if werr != nil {
		return changed, multierr.Append(werr, w.Close())
	}
	if err := w.Close(); err != nil {
		return changed, fmt.Errorf("unable to finalize archive (%s): %w", dst, err)
	}
	return changed, failed
}

func copyEntry(w *fixzip.Writer, f *fixzip.File) error {
	// unset data descriptor flag
	f.Flags &= ^fixzip.FlagDataDescriptor
	if err := w.CopyFile(f); err != nil {
		return fmt.Errorf("unable to copy zip entry %q: %w", f.Name, err)
	}
	return nil
}

func readEntry(f *fixzip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
