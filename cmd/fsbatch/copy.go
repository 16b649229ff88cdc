package main

import (
	"time"

	"github.com/michaelscutari/fsbatch/internal/batch"
	"github.com/michaelscutari/fsbatch/internal/console"
	"github.com/michaelscutari/fsbatch/internal/entry"
	"github.com/michaelscutari/fsbatch/internal/resolve"
	"github.com/spf13/cobra"
)

var copyCmd = &cobra.Command{
	Use:   "copy DEST",
	Short: "Copy files from several folders into one, numbering them in order",
	Long: `Copy every file of each source folder into DEST. Files are sorted by the
number in their name, and a single counter runs across all sources, so the
files of the second source continue where the first left off.`,
	Args: cobra.ExactArgs(1),
	RunE: runCopy,
}

var (
	copySources  []string
	copyBulk     string
	copyOverride bool
	copyDryRun   bool
	copyExclude  []string
	copyCounter  counterFlags
)

func init() {
	copyCmd.Flags().StringArrayVarP(&copySources, "source", "s", nil, "Source folder (can be repeated; copied in the given order)")
	copyCmd.Flags().StringVarP(&copyBulk, "bulk", "b", "", "Use every subfolder of this folder as a source, in numeric order")
	copyCmd.Flags().BoolVarP(&copyOverride, "override", "o", false, "Drop the original file name and keep only the counter")
	copyCmd.Flags().BoolVar(&copyDryRun, "dry-run", false, "Show what would be copied without copying")
	copyCmd.Flags().StringArrayVarP(&copyExclude, "exclude", "e", nil, "Regex of paths to skip (can be repeated)")
	copyCounter.register(copyCmd, resolve.CopyCounter())
	copyCmd.MarkFlagsMutuallyExclusive("source", "bulk")
	copyCmd.MarkFlagsOneRequired("source", "bulk")
}

func runCopy(cmd *cobra.Command, args []string) error {
	scanOpts, err := scanOptions(cfg.Copy.Exclude, copyExclude)
	if err != nil {
		return err
	}
	opts := batch.CopyOptions{
		Dest:     args[0],
		Sources:  batch.Sources{Dirs: copySources, Bulk: copyBulk},
		Counter:  copyCounter.apply(cmd, cfg.Copy.Counter()),
		Override: boolFlag(cmd, "override", copyOverride, cfg.Copy.Override),
		DryRun:   copyDryRun,
		Scan:     scanOpts,
	}

	ctx, stop := signalContext()
	defer stop()

	var extra entry.Recorder
	if opts.DryRun {
		extra = out.PlanRecorder()
	}

	start := time.Now()
	var stats batch.Stats
	err = runJournaled("copy", commandArgs(cmd), extra, func(rec entry.Recorder) error {
		var runErr error
		stats, runErr = batch.NewCopier(resolve.OSFileSystem{}, out, rec).Run(ctx, opts)
		return runErr
	})
	if err == nil || stats.Total > 0 {
		out.Summary(console.Summary{
			Verb:      "Copied",
			Done:      stats.Done,
			Unchanged: stats.Unchanged,
			Failed:    stats.Failed,
			Bytes:     stats.Bytes,
			Elapsed:   time.Since(start),
			DryRun:    opts.DryRun,
		})
	}
	return reportRunError(err)
}
