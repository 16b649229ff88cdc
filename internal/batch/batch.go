// Package batch runs the numbered-copy and rename-to-directory jobs over a
// list of source directories or the subdirectories of a bulk directory.
//
// Both jobs validate every input directory before touching anything, check
// the context between files and never roll back work already done.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/michaelscutari/fsbatch/internal/entry"
	"github.com/michaelscutari/fsbatch/internal/resolve"
	"github.com/michaelscutari/fsbatch/internal/scan"
	"github.com/michaelscutari/fsbatch/internal/sortkey"
)

// Logger receives progress messages. Verbose messages are per-file detail.
type Logger interface {
	Info(format string, args ...any)
	Verbose(format string, args ...any)
	Warn(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)    {}
func (nopLogger) Verbose(string, ...any) {}
func (nopLogger) Warn(string, ...any)    {}

// Stats tracks aggregate counters and byte totals across a batch run.
type Stats struct {
	Total     int
	Done      int
	Unchanged int
	Failed    int
	Bytes     int64
}

// Sources selects the input directories of a run. Exactly one of Dirs and
// Bulk should be set.
type Sources struct {
	Dirs []string
	Bulk string
}

// Validate checks that every configured source is a directory.
func (s Sources) Validate() error {
	if s.Bulk != "" {
		return scan.CheckDirs(s.Bulk)
	}
	if len(s.Dirs) == 0 {
		return fmt.Errorf("no source directories given")
	}
	return scan.CheckDirs(s.Dirs...)
}

// resolveSources expands a bulk directory into its subdirectories sorted by
// numeric key.
func resolveSources(ctx context.Context, src Sources, log Logger, action string) ([]string, error) {
	if src.Bulk == "" {
		return src.Dirs, nil
	}
	log.Info("Now %s subdirectories in: '%s'", action, src.Bulk)
	dirs, err := scan.Subdirs(ctx, src.Bulk)
	if err != nil {
		return nil, err
	}
	dirs = sortkey.SortPaths(dirs, sortkey.Dirs)
	log.Verbose("Subdirectories in order:")
	for _, d := range dirs {
		log.Verbose("%s", d)
	}
	return dirs, nil
}

// ensureDest creates dest through fsys when missing.
func ensureDest(fsys resolve.FileSystem, dest string, log Logger) error {
	info, err := fsys.Lstat(dest)
	if err == nil {
		if !info.IsDir() {
			return &scan.PathError{Path: dest, Err: scan.ErrNotDirectory}
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return &scan.PathError{Path: dest, Err: fmt.Errorf("%w: %w", scan.ErrDestinationUncreatable, err)}
	}
	log.Info("The destination path does not exist. Creating directory...")
	if err := fsys.MkdirAll(dest, 0o755); err != nil {
		return &scan.PathError{Path: dest, Err: fmt.Errorf("%w: %w", scan.ErrDestinationUncreatable, err)}
	}
	log.Verbose("Created destination directory: '%s'", dest)
	return nil
}

func record(rec entry.Recorder, op entry.Operation) {
	if op.Time.IsZero() {
		op.Time = time.Now()
	}
	rec.Record(op)
}
