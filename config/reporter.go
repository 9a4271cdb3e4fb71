package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	fixzip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
	"go.uber.org/multierr"

	"inlinesvg/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty debug report. When configured destination cannot be
// created report goes to temporary directory.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{file: f}, nil
}

// Report collects everything needed to troubleshoot a run: configuration,
// logs, failed inputs and produced stylesheets. Archive is written on Close.
// Nil Report is valid and ignores all calls.
type Report struct {
	mu      sync.Mutex
	file    *os.File
	entries []*entry
	scratch string // holds copies made by StoreCopy
}

type entry struct {
	name   string
	origin string    // path as it was passed in
	path   string    // file to read when archive is written
	data   []byte    // used instead of path when set
	stamp  time.Time // zero for files, their modification time is used
	temp   bool      // path points into scratch
}

// Name returns absolute path of the report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store remembers file to be put into report as is at the time of Close.
// Storing the same path under the same name twice has no effect.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	abs := path
	if p, err := filepath.Abs(path); err == nil {
		abs = p
	}
	if e := r.lookup(name); e != nil && e.path == abs {
		return
	}
	r.add(&entry{name: name, origin: path, path: abs})
}

// StoreData puts data into report under requested name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.add(&entry{name: name, data: bytes.Clone(data), stamp: time.Now()})
}

// StoreCopy snapshots regular file immediately, so later changes to it are
// not reflected in the report.
func (r *Report) StoreCopy(name, path string) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("unable to copy '%s' into report: not a regular file", path)
	}
	if len(r.scratch) == 0 {
		if r.scratch, err = os.MkdirTemp("", misc.GetAppName()+"-r-"); err != nil {
			return err
		}
	}
	dst := filepath.Join(r.scratch, strconv.Itoa(len(r.entries)))
	if err := snapshot(dst, path, info.ModTime()); err != nil {
		return err
	}
	r.add(&entry{name: name, origin: path, path: dst, temp: true})
	return nil
}

// Close writes report archive and removes snapshots made by StoreCopy.
func (r *Report) Close() (err error) {
	if r == nil || r.file == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.write()
	err = multierr.Append(err, r.file.Close())
	if len(r.scratch) > 0 {
		err = multierr.Append(err, os.RemoveAll(r.scratch))
	}
	return err
}

func (r *Report) lookup(name string) *entry {
	for _, e := range r.entries {
		if e.name == name {
			return e
		}
	}
	return nil
}

// add versions entry name when it is already taken.
func (r *Report) add(e *entry) {
	base := e.name
	for i := 1; r.lookup(e.name) != nil; i++ {
		e.name = base + "." + strconv.Itoa(i)
	}
	r.entries = append(r.entries, e)
}

func (r *Report) write() error {
	arc := fixzip.NewWriter(r.file)

	entries := make([]*entry, len(r.entries))
	copy(entries, r.entries)
	sort.Sort(entriesByName(entries))

	now := time.Now()
	manifest := new(bytes.Buffer)
	for _, e := range entries {
		stamp := e.stamp
		if stamp.IsZero() {
			stamp = now
		}
		source := e.origin
		if len(e.data) > 0 {
			source = fmt.Sprintf("(%d bytes)", len(e.data))
		}
		fmt.Fprintf(manifest, "%s\t%s\t%s\n", stamp.UTC().Format(time.RFC3339), e.name, source)
	}
	if err := addToArchive(arc, "MANIFEST", now, manifest); err != nil {
		return multierr.Append(err, arc.Close())
	}

	for _, e := range entries {
		if err := e.archive(arc); err != nil {
			return multierr.Append(err, arc.Close())
		}
	}
	return arc.Close()
}

// archive puts entry into report, files which disappeared are skipped.
func (e *entry) archive(arc *fixzip.Writer) error {
	if e.data != nil {
		return addToArchive(arc, e.name, e.stamp, bytes.NewReader(e.data))
	}
	info, err := os.Stat(e.path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(e.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return addToArchive(arc, e.name, info.ModTime(), f)
}

type entriesByName []*entry

func (s entriesByName) Len() int           { return len(s) }
func (s entriesByName) Less(i, j int) bool { return natural.Less(s[i].name, s[j].name) }
func (s entriesByName) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func addToArchive(arc *fixzip.Writer, name string, stamp time.Time, src io.Reader) error {
	w, err := arc.CreateHeader(&fixzip.FileHeader{Name: name, Method: fixzip.Deflate, Modified: stamp})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func snapshot(dst, src string, stamp time.Time) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		return multierr.Append(err, out.Close())
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, stamp, stamp)
}
