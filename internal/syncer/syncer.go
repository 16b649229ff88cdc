// Package syncer merges, copies or mirrors one directory tree onto another,
// optionally in both directions.
//
// Bulk transfers go through a Backend: the in-process NativeBackend or the
// RobocopyBackend. Merging first places differing same-name files next to
// their destination counterparts as name_1.ext, name_2.ext, ... and then
// lets the backend copy everything that is still missing.
package syncer

import (
	"bytes"
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
	"github.com/michaelscutari/fsbatch/internal/resolve"
)

// ErrOverlap is returned when one directory contains the other.
var ErrOverlap = errors.New("source and destination overlap")

// Logger receives progress messages.
type Logger interface {
	Info(format string, args ...any)
	Verbose(format string, args ...any)
	Warn(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)    {}
func (nopLogger) Verbose(string, ...any) {}
func (nopLogger) Warn(string, ...any)    {}

// Mode is the action performed by Run.
type Mode int

const (
	ModeMerge Mode = iota
	ModeCopy
	ModeMirror
)

func (m Mode) String() string {
	switch m {
	case ModeMerge:
		return "merge"
	case ModeCopy:
		return "copy"
	case ModeMirror:
		return "mirror"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "merge", "copy" or "mirror".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "merge":
		return ModeMerge, nil
	case "copy":
		return ModeCopy, nil
	case "mirror":
		return ModeMirror, nil
	}
	return 0, fmt.Errorf("unknown sync mode %q", s)
}

// Options modify a Run.
type Options struct {
	// ModTime keeps destination files that are newer than the source.
	ModTime bool
	// TwoWay repeats the action from destination to source afterwards.
	TwoWay bool
	// MaxProbes bounds the name_N candidates tried while merging.
	MaxProbes int
}

// Stats summarizes a Run.
type Stats struct {
	TransferStats
	Merged int
}

// Syncer runs sync actions through a Backend.
type Syncer struct {
	backend Backend
	fs      resolve.FileSystem
	log     Logger
	rec     entry.Recorder
}

// New creates a Syncer. A nil fsys uses the OS filesystem; a nil log or rec
// discards output.
func New(backend Backend, fsys resolve.FileSystem, log Logger, rec entry.Recorder) *Syncer {
	if fsys == nil {
		fsys = resolve.OSFileSystem{}
	}
	if log == nil {
		log = nopLogger{}
	}
	if rec == nil {
		rec = entry.Discard
	}
	return &Syncer{backend: backend, fs: fsys, log: log, rec: rec}
}

// Backend returns the backend in use.
func (s *Syncer) Backend() Backend { return s.backend }

// Run performs mode from src to dst, then from dst to src with TwoWay.
func (s *Syncer) Run(ctx context.Context, mode Mode, src, dst string, opts Options) (Stats, error) {
	var stats Stats
	src = pathutil.Normalize(src)
	dst = pathutil.Normalize(dst)
	if err := checkOverlap(src, dst); err != nil {
		return stats, err
	}

	dirs := [][2]string{{src, dst}}
	if opts.TwoWay {
		dirs = append(dirs, [2]string{dst, src})
	}
	for _, d := range dirs {
		s.log.Verbose("%s '%s' into '%s' (%s backend)", mode, d[0], d[1], s.backend.Name())
		st, err := s.runOnce(ctx, mode, d[0], d[1], opts)
		stats.TransferStats.add(st.TransferStats)
		stats.Merged += st.Merged
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Policy returns the transfer policy for a mode.
func (m Mode) Policy(modTime bool) Policy {
	p := Policy{Overwrite: OverwriteAlways}
	if modTime {
		p.Overwrite = OverwriteKeepNewer
	}
	switch m {
	case ModeMerge:
		p = Policy{Overwrite: OverwriteNever}
	case ModeMirror:
		p.Purge = true
	}
	return p
}

func (s *Syncer) runOnce(ctx context.Context, mode Mode, src, dst string, opts Options) (Stats, error) {
	var stats Stats
	if mode == ModeMerge {
		merged, err := s.mergeConflicts(ctx, src, dst, opts)
		stats.Merged = merged
		if err != nil {
			return stats, err
		}
	}
	st, err := s.backend.Transfer(ctx, src, dst, mode.Policy(opts.ModTime))
	stats.TransferStats = st
	if err != nil {
		return stats, fmt.Errorf("%s %s to %s: %w", mode, src, dst, err)
	}
	return stats, nil
}

// mergeConflicts copies every source file whose relative path is already a
// file in dst with different content to the first free name_N next to it.
// A file whose content already sits at the bare name or any existing name_N
// is skipped.
func (s *Syncer) mergeConflicts(ctx context.Context, src, dst string, opts Options) (int, error) {
	var resolverOpts []resolve.Option
	if opts.MaxProbes > 0 {
		resolverOpts = append(resolverOpts, resolve.WithMaxProbes(opts.MaxProbes))
	}
	merger := resolve.NewMerger(s.fs, resolverOpts...)
	maxProbes := resolve.DefaultMaxProbes
	if opts.MaxProbes > 0 {
		maxProbes = opts.MaxProbes
	}

	merged := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || IsTempName(d.Name()) {
			return nil
		}

		target := filepath.Join(dst, pathutil.Rel(src, path))
		info, err := s.fs.Lstat(target)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		e := entry.NewPathEntry(target)
		dup, err := hasCopy(s.fs, path, e, maxProbes)
		if err != nil {
			return err
		}
		if dup != "" {
			s.log.Verbose("Identical '%s' already at '%s'", path, dup)
			s.rec.Record(entry.Operation{Kind: entry.OpMerge, Source: path, Target: dup, Status: entry.StatusSkipped, Message: "identical content", Time: time.Now()})
			return nil
		}

		res, err := merger.Copy(path, e.Dir, e.Name, e.Ext)
		if err != nil {
			s.rec.Record(entry.Operation{Kind: entry.OpMerge, Source: path, Target: res.Target, Status: entry.StatusFailed, Message: err.Error(), Time: time.Now()})
			return err
		}
		merged++
		s.rec.Record(entry.Operation{Kind: entry.OpMerge, Source: path, Target: res.Target, Size: res.Bytes, Status: entry.StatusDone, Time: time.Now()})
		s.log.Verbose("Copied '%s' to '%s'", path, res.Target)
		return nil
	})
	return merged, err
}

// hasCopy returns the first existing file among target and its name_N
// variants whose content equals src, or "" if there is none.
func hasCopy(fsys resolve.FileSystem, src string, target entry.PathEntry, maxProbes int) (string, error) {
	counter := resolve.MergeCounter()
	for i := -1; i < maxProbes; i++ {
		candidate := counter.Candidate(target.Dir, target.Name, target.Ext, i)
		info, err := fsys.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		same, err := sameContent(src, candidate)
		if err != nil {
			return "", err
		}
		if same {
			return candidate, nil
		}
	}
	return "", nil
}

func sameContent(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	if ia.Size() != ib.Size() {
		return false, nil
	}

	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	bufA := make([]byte, 64*1024)
	bufB := make([]byte, 64*1024)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if errA != nil && !doneA {
			return false, errA
		}
		if errB != nil && !doneB {
			return false, errB
		}
		if doneA || doneB {
			return doneA && doneB, nil
		}
	}
}

func checkOverlap(a, b string) error {
	absA, err := filepath.Abs(a)
	if err != nil {
		return err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return err
	}
	if absA == absB || within(absA, absB) || within(absB, absA) {
		return fmt.Errorf("%w: %s and %s", ErrOverlap, a, b)
	}
	return nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
