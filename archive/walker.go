// Package archive builds Walk and Rewrite abstractions on top of zip archives.
package archive

import (
	"fmt"
	"path"
	"strings"

	fixzip "github.com/hidez8891/zip"
)

// WalkFunc is called by Walk for every selected entry of archive.
// Returning error stops the walk.
type WalkFunc func(archive string, file *fixzip.File) error

// Walk visits entries of archive in the order they are stored. Only entries
// accepted by match are visited, nil match accepts everything including
// directories. Archive is checked as a whole before the first call: if any
// entry name is absolute or climbs up with "..", walkFn is never called
// (Zip Slip).
func Walk(archive string, match func(name string) bool, walkFn WalkFunc) error {
	r, err := fixzip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := checkNames(r.File); err != nil {
		return err
	}

	for _, f := range r.File {
		if match == nil || match(f.Name) {
			if err := walkFn(archive, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkNames(files []*fixzip.File) error {
	for _, f := range files {
		if !isSafePath(f.Name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
	}
	return nil
}

// isSafePath accepts relative names without ".." elements. Both kinds of
// slashes separate elements, archives made on Windows sometimes use
// backslashes.
func isSafePath(name string) bool {
	name = strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(name) {
		return false
	}
	return !strings.Contains("/"+name+"/", "/../")
}
