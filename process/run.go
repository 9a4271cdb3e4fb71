// Package process implements batch optimization of stylesheets found in
// files, directories and zip archives.
package process

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"inlinesvg/archive"
	"inlinesvg/optimize"
	"inlinesvg/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")
	env.Patterns = cmd.StringSlice("pattern")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	proc, err := env.Processor()
	if err != nil {
		return err
	}
	b := &batch{proc: proc, log: log}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)), zap.Int("files", b.files), zap.Object("stats", b.stats))
	}(time.Now())

	return b.process(ctx, src, dst)
}

// batch processes all inputs requested by a single command with the same
// Processor and collects totals.
type batch struct {
	proc  *optimize.Processor
	log   *zap.Logger
	files int
	stats optimize.Stats
}

// process determines the input type (directory, archive, or single
// stylesheet) and processes accordingly.
func (b *batch) process(ctx context.Context, src, dst string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := b.processDir(ctx, head, dst); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// only stylesheets under path inside archive will be processed
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := b.processArchive(ctx, head, filepath.ToSlash(tail), filepath.Base(head), dst); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if isStylesheet(head) && len(tail) == 0 {
			if err := b.processFile(ctx, head, filepath.Base(head), dst); err != nil {
				b.log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
			}
			break
		}
		return fmt.Errorf("input was not recognized as stylesheet or archive (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir walks directory tree finding stylesheets and archives and
// processes them in natural order.
func (b *batch) processDir(ctx context.Context, dir, dst string) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			b.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(paths, func(i, j int) bool {
		return natural.Less(paths[i], paths[j])
	})

	count := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		isArchive, err := isArchiveFile(path)
		if err != nil {
			b.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if isArchive {
			count++
			if err := b.processArchive(ctx, path, "", rel, dst); err != nil {
				b.log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			continue
		}
		if !isStylesheet(path) {
			b.log.Debug("Skipping file, not recognized as stylesheet or archive", zap.String("file", path))
			continue
		}

		count++
		if err := b.processFile(ctx, path, rel, dst); err != nil {
			b.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
	}
	if count == 0 {
		b.log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return nil
}

// processFile optimizes single stylesheet. "src" is part of the source path
// (always including file name) relative to the original path. "dst" is the
// destination directory.
func (b *batch) processFile(ctx context.Context, path, src, dst string) (rerr error) {
	env := state.EnvFromContext(ctx)

	var (
		outputName string
		stats      optimize.Stats
	)

	b.log.Info("Optimization starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			b.log.Error("Optimization ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("optimization panic: %v", r)
		} else if rerr == nil {
			b.log.Info("Optimization completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.Object("stats", stats))
		}
		if rerr != nil {
			b.keepSource(env, src, path)
		}
	}(time.Now())

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	outputName = buildOutputPath(src, dst, env)
	if err := prepareOutput(outputName, env, b.log); err != nil {
		return err
	}

	out, stats, err := b.optimize(ctx, data, src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputName, out, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	b.files++
	b.stats.Add(stats)
	env.Rpt.Store(fmt.Sprintf("result/%s", filepath.ToSlash(src)), outputName)
	return nil
}

// processArchive copies archive to destination optimizing stylesheets under
// "pathIn" and leaving everything else intact. Failure to process one of the
// stylesheets is logged and that stylesheet is copied unchanged.
func (b *batch) processArchive(ctx context.Context, path, pathIn, src, dst string) (rerr error) {
	env := state.EnvFromContext(ctx)

	outputName := buildOutputPath(src, dst, env)

	b.log.Info("Archive processing starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			b.log.Error("Archive processing ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("archive processing panic: %v", r)
		} else if rerr == nil {
			b.log.Info("Archive processing completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	if err := prepareOutput(outputName, env, b.log); err != nil {
		return err
	}

	// output may replace source archive, so it is assembled aside first
	tmp, err := os.CreateTemp(filepath.Dir(outputName), filepath.Base(outputName)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Close(); err != nil {
		return err
	}
	defer os.Remove(tmpName)

	match := func(name string) bool {
		return isStylesheet(name) && strings.HasPrefix(name, pathIn)
	}

	count := 0
	_, err = archive.Rewrite(path, tmpName, match, func(name string, data []byte) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		count++

		name = entryName(env.CodePage, name, b.log)
		out, stats, err := b.optimize(ctx, data, name)
		if err != nil {
			return nil, err
		}
		b.files++
		b.stats.Add(stats)
		b.log.Debug("Stylesheet in archive optimized", zap.String("archive", path), zap.String("file", name), zap.Object("stats", stats))
		return out, nil
	})

	for _, e := range multierr.Errors(err) {
		var ee *archive.EntryError
		if !errors.As(e, &ee) {
			return err
		}
		b.log.Error("Unable to process file in archive",
			zap.String("archive", path), zap.String("file", entryName(env.CodePage, ee.Name, b.log)), zap.Error(ee.Err))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if count == 0 {
		b.log.Debug("Nothing to process", zap.String("archive", path))
		return nil
	}

	if err := os.Rename(tmpName, outputName); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	env.Rpt.Store(fmt.Sprintf("result/%s", filepath.ToSlash(src)), outputName)
	return nil
}

// optimize rewrites stylesheet keeping its original encoding.
func (b *batch) optimize(ctx context.Context, data []byte, source string) ([]byte, optimize.Stats, error) {
	text, restore, err := decodeStylesheet(data)
	if err != nil {
		return nil, optimize.Stats{}, fmt.Errorf("unable to decode stylesheet: %w", err)
	}
	out, stats, err := b.proc.ProcessCSS(ctx, text, source)
	if err != nil {
		return nil, stats, err
	}
	if out, err = restore(out); err != nil {
		return nil, stats, fmt.Errorf("unable to encode stylesheet: %w", err)
	}
	return out, stats, nil
}

// keepSource puts copy of the failed input into debug report.
func (b *batch) keepSource(env *state.LocalEnv, src, path string) {
	if err := env.Rpt.StoreCopy(fmt.Sprintf("source/%s", filepath.ToSlash(src)), path); err != nil {
		b.log.Warn("Unable to store source in report", zap.String("file", path), zap.Error(err))
	}
}

// entryName converts archive entry name from forced code page for logging.
func entryName(cp encoding.Encoding, name string, log *zap.Logger) string {
	if cp == nil || utf8.ValidString(name) {
		return name
	}
	n, err := cp.NewDecoder().String(name)
	if err != nil {
		cpName, _ := ianaindex.IANA.Name(cp)
		log.Warn("Unable to convert archive name from specified encoding",
			zap.String("charset", cpName), zap.String("path", name), zap.Error(err))
		return name
	}
	return n
}
