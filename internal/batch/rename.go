package batch

import (
	"context"
	"fmt"

	"github.com/michaelscutari/fsbatch/internal/entry"
	"github.com/michaelscutari/fsbatch/internal/pathutil"
	"github.com/michaelscutari/fsbatch/internal/resolve"
	"github.com/michaelscutari/fsbatch/internal/scan"
)

// RenameOptions configures a rename-to-directory run.
type RenameOptions struct {
	Sources   Sources
	Counter   resolve.Counter
	Keep      bool // new name is "{old} {dir}" instead of "{dir}"
	Deep      bool
	DryRun    bool
	MaxProbes int
	Scan      *scan.ScanOptions
}

// Renamer renames every file after its immediate parent directory.
type Renamer struct {
	fs  resolve.FileSystem
	log Logger
	rec entry.Recorder
}

// NewRenamer creates a Renamer. A nil log or rec discards output.
func NewRenamer(fsys resolve.FileSystem, log Logger, rec entry.Recorder) *Renamer {
	if log == nil {
		log = nopLogger{}
	}
	if rec == nil {
		rec = entry.Discard
	}
	return &Renamer{fs: fsys, log: log, rec: rec}
}

// TargetBase returns the new base name for a file at path.
func TargetBase(path string, keep bool) string {
	e := entry.NewPathEntry(path)
	name := pathutil.ImmediateDir(e.Dir)
	if keep {
		name = e.Name + " " + name
	}
	return name
}

// Run executes the rename. The file list of each source is taken before the
// first rename in it. It stops at the first failed rename.
func (r *Renamer) Run(ctx context.Context, opts RenameOptions) (Stats, error) {
	var stats Stats

	if err := opts.Sources.Validate(); err != nil {
		return stats, err
	}
	fsys := r.fs
	if opts.DryRun {
		fsys = resolve.NewPlanFileSystem(fsys)
	}

	var resolverOpts []resolve.Option
	if opts.MaxProbes > 0 {
		resolverOpts = append(resolverOpts, resolve.WithMaxProbes(opts.MaxProbes))
	}
	renamer, err := resolve.NewRenamer(fsys, opts.Counter, resolverOpts...)
	if err != nil {
		return stats, err
	}

	r.log.Info("Starting operation...")
	sources, err := resolveSources(ctx, opts.Sources, r.log, "renaming")
	if err != nil {
		return stats, err
	}

	listOpts := scan.DefaultOptions().WithDeep(opts.Deep).WithErrorHandler(func(path string, err error) {
		r.log.Warn("skipping %s: %v", path, err)
	})
	if opts.Scan != nil {
		listOpts.ExcludePatterns = opts.Scan.ExcludePatterns
	}

	for _, source := range sources {
		r.log.Info("Now renaming files in: '%s'", source)
		files, err := scan.List(ctx, source, listOpts)
		if err != nil {
			return stats, err
		}
		stats.Total += len(files)

		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			e := entry.NewPathEntry(path)
			res, err := renamer.Rename(path, e.Dir, TargetBase(path, opts.Keep), e.Ext)
			op := entry.Operation{Kind: entry.OpRename, Source: path, Target: res.Target}
			if info, statErr := fsys.Lstat(res.Target); statErr == nil && err == nil {
				op.Size = info.Size()
			}
			if res.Probes > 1 {
				op.Message = probeMessage(res.Probes)
			}
			switch {
			case err != nil:
				stats.Failed++
				op.Status = entry.StatusFailed
				op.Message = err.Error()
				record(r.rec, op)
				return stats, err
			case res.Unchanged:
				stats.Unchanged++
				op.Status = entry.StatusUnchanged
				record(r.rec, op)
				r.log.Verbose("Unchanged '%s'", path)
			default:
				stats.Done++
				op.Status = entry.StatusDone
				if opts.DryRun {
					op.Status = entry.StatusPlanned
				}
				record(r.rec, op)
				r.log.Verbose("Renamed '%s' to '%s'", path, res.Target)
			}
		}
	}

	r.log.Info("Finished renaming files.")
	return stats, nil
}

func probeMessage(probes int) string {
	return fmt.Sprintf("name taken, %d counter candidate(s) tried", probes-1)
}
