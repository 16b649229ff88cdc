package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/michaelscutari/fsbatch/internal/entry"
	"github.com/michaelscutari/fsbatch/internal/pathutil"
)

const tempPrefix = ".fsbatch-"

// NativeBackend transfers trees in-process. Files whose size and
// modification time already match are left untouched, and copies go
// through a temporary file renamed into place.
type NativeBackend struct {
	log Logger
	rec entry.Recorder
}

// NewNativeBackend creates a NativeBackend. A nil log or rec discards output.
func NewNativeBackend(log Logger, rec entry.Recorder) *NativeBackend {
	if log == nil {
		log = nopLogger{}
	}
	if rec == nil {
		rec = entry.Discard
	}
	return &NativeBackend{log: log, rec: rec}
}

func (b *NativeBackend) Name() string { return BackendNative }

type dirTime struct {
	path    string
	modTime time.Time
}

// Transfer copies src onto dst according to p. Per-file failures are
// collected and returned together once the walk finishes.
func (b *NativeBackend) Transfer(ctx context.Context, src, dst string, p Policy) (TransferStats, error) {
	var stats TransferStats
	var errs []error
	var dirs []dirTime

	src = pathutil.Normalize(src)
	dst = pathutil.Normalize(dst)

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == src {
				return err
			}
			errs = append(errs, err)
			return nil
		}
		if IsTempName(d.Name()) {
			return nil
		}

		rel := pathutil.Rel(src, path)
		target := dst
		if path != src {
			target = filepath.Join(dst, rel)
		}

		info, err := statFollow(path, d)
		if err != nil {
			errs = append(errs, err)
			return nil
		}

		if info.IsDir() {
			if d.Type()&fs.ModeSymlink != 0 {
				b.log.Warn("skipping symlinked directory %s", path)
				return nil
			}
			if err := b.ensureDir(target, p); err != nil {
				errs = append(errs, err)
				return fs.SkipDir
			}
			dirs = append(dirs, dirTime{path: target, modTime: info.ModTime()})
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		n, copied, err := b.transferFile(path, target, info, p)
		switch {
		case err != nil:
			errs = append(errs, err)
			b.record(entry.Operation{Kind: entry.OpCopy, Source: path, Target: target, Status: entry.StatusFailed, Message: err.Error()})
		case copied:
			stats.Copied++
			stats.Bytes += n
			b.record(entry.Operation{Kind: entry.OpCopy, Source: path, Target: target, Size: n, Status: entry.StatusDone})
			b.log.Verbose("Copied '%s' to '%s'", path, target)
		default:
			stats.Skipped++
		}
		return nil
	})
	if walkErr != nil {
		return stats, walkErr
	}

	if p.Purge {
		deleted, err := b.purge(ctx, src, dst)
		stats.Deleted += deleted
		if err != nil {
			errs = append(errs, err)
		}
	}

	// Children first so setting a parent's time is not undone.
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Chtimes(dirs[i].path, dirs[i].modTime, dirs[i].modTime)
	}

	return stats, errors.Join(errs...)
}

func (b *NativeBackend) record(op entry.Operation) {
	op.Time = time.Now()
	b.rec.Record(op)
}

func (b *NativeBackend) ensureDir(target string, p Policy) error {
	info, err := os.Lstat(target)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		if !p.Purge {
			return fmt.Errorf("%s exists and is not a directory", target)
		}
		if err := os.Remove(target); err != nil {
			return err
		}
		b.record(entry.Operation{Kind: entry.OpDelete, Target: target, Status: entry.StatusDone})
	}
	return os.MkdirAll(target, 0o755)
}

// transferFile reports whether target was written.
func (b *NativeBackend) transferFile(src, target string, info os.FileInfo, p Policy) (int64, bool, error) {
	existing, err := os.Lstat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return 0, false, err
	case existing.IsDir():
		if !p.Purge {
			return 0, false, fmt.Errorf("%s exists and is a directory", target)
		}
		if err := os.RemoveAll(target); err != nil {
			return 0, false, err
		}
		b.record(entry.Operation{Kind: entry.OpDelete, Target: target, Status: entry.StatusDone})
	default:
		if p.Overwrite == OverwriteNever {
			return 0, false, nil
		}
		if existing.Size() == info.Size() && existing.ModTime().Equal(info.ModTime()) {
			return 0, false, nil
		}
		if p.Overwrite == OverwriteKeepNewer && existing.ModTime().After(info.ModTime()) {
			b.log.Verbose("Kept newer '%s'", target)
			return 0, false, nil
		}
	}

	n, err := copyReplace(src, target, info)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (b *NativeBackend) purge(ctx context.Context, src, dst string) (int, error) {
	deleted := 0
	var errs []error
	err := filepath.WalkDir(dst, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == dst {
				return err
			}
			errs = append(errs, err)
			return nil
		}
		if path == dst || IsTempName(d.Name()) {
			return nil
		}
		counterpart := filepath.Join(src, pathutil.Rel(dst, path))
		if _, err := os.Lstat(counterpart); err == nil {
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			return nil
		}

		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
			return nil
		}
		deleted++
		b.record(entry.Operation{Kind: entry.OpDelete, Target: path, Status: entry.StatusDone})
		b.log.Verbose("Deleted '%s'", path)
		if d.IsDir() {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return deleted, errors.Join(errs...)
}

func statFollow(path string, d fs.DirEntry) (os.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		return os.Stat(path)
	}
	return d.Info()
}

// IsTempName reports whether name is a temporary file written by the
// native backend.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}

// copyReplace writes src to a temporary file next to target, copies mode and
// modification time, then renames it over target.
func copyReplace(src, target string, info os.FileInfo) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), tempPrefix+"*.tmp")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, in)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpName, info.Mode().Perm())
	}
	if err == nil {
		err = os.Chtimes(tmpName, info.ModTime(), info.ModTime())
	}
	if err == nil {
		err = os.Rename(tmpName, target)
	}
	if err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("copy %s to %s: %w", src, target, err)
	}
	return n, nil
}
