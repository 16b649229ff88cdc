package batch

import (
	"context"
	"errors"

	"github.com/michaelscutari/fsbatch/internal/entry"
	"github.com/michaelscutari/fsbatch/internal/resolve"
	"github.com/michaelscutari/fsbatch/internal/scan"
	"github.com/michaelscutari/fsbatch/internal/sortkey"
)

// CopyOptions configures a numbered copy run.
type CopyOptions struct {
	Dest     string
	Sources  Sources
	Counter  resolve.Counter
	Override bool // drop the original name, keep only the counter label
	DryRun   bool
	Scan     *scan.ScanOptions
}

// Copier copies files from each source into one destination, naming them
// with a counter that runs across all sources in order.
type Copier struct {
	fs  resolve.FileSystem
	log Logger
	rec entry.Recorder
}

// NewCopier creates a Copier. A nil log or rec discards output.
func NewCopier(fsys resolve.FileSystem, log Logger, rec entry.Recorder) *Copier {
	if log == nil {
		log = nopLogger{}
	}
	if rec == nil {
		rec = entry.Discard
	}
	return &Copier{fs: fsys, log: log, rec: rec}
}

// Run executes the copy. It stops at the first failed copy.
func (c *Copier) Run(ctx context.Context, opts CopyOptions) (Stats, error) {
	var stats Stats

	if err := opts.Sources.Validate(); err != nil {
		return stats, err
	}
	fsys := c.fs
	if opts.DryRun {
		fsys = resolve.NewPlanFileSystem(fsys)
	}
	if err := ensureDest(fsys, opts.Dest, c.log); err != nil {
		return stats, err
	}

	c.log.Info("Starting operation...")
	sources, err := resolveSources(ctx, opts.Sources, c.log, "sorting")
	if err != nil {
		return stats, err
	}

	listOpts := scan.DefaultOptions()
	if opts.Scan != nil {
		listOpts.ExcludePatterns = opts.Scan.ExcludePatterns
	}

	seq := resolve.NewSequencer(opts.Counter, opts.Override)
	for _, source := range sources {
		c.log.Info("Now sorting files in: '%s'", source)
		files, err := scan.List(ctx, source, listOpts)
		if err != nil {
			return stats, err
		}
		files = sortkey.SortPaths(files, sortkey.Files)
		stats.Total += len(files)

		c.log.Info("Now copying files from: '%s' to: '%s'", source, opts.Dest)
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			target := seq.Next(opts.Dest, entry.NewPathEntry(path))
			n, err := fsys.CopyFile(path, target, false)
			op := entry.Operation{Kind: entry.OpCopy, Source: path, Target: target, Size: n, Status: entry.StatusDone}
			if opts.DryRun {
				op.Status = entry.StatusPlanned
			}
			if errors.Is(err, resolve.ErrSameFile) {
				stats.Unchanged++
				op.Status = entry.StatusUnchanged
				op.Message = resolve.ErrSameFile.Error()
				record(c.rec, op)
				c.log.Verbose("Unchanged '%s'", path)
				continue
			}
			if err != nil {
				stats.Failed++
				op.Status = entry.StatusFailed
				op.Message = err.Error()
				record(c.rec, op)
				return stats, &resolve.CommitError{Op: "copy", Source: path, Target: target, Err: err}
			}
			stats.Done++
			stats.Bytes += n
			record(c.rec, op)
			c.log.Verbose("Copied '%s' to '%s'", path, target)
		}
	}

	c.log.Info("Finished copying files.")
	return stats, nil
}
