package main

import (
	"time"

	"github.com/michaelscutari/fsbatch/internal/batch"
	"github.com/michaelscutari/fsbatch/internal/console"
	"github.com/michaelscutari/fsbatch/internal/entry"
	"github.com/michaelscutari/fsbatch/internal/resolve"
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename",
	Short: "Rename files after the folder that contains them",
	Long: `Rename every file in each source folder to the folder's name. When the
name is taken a counter is appended: "trip.jpg", "trip2.jpg", "trip3.jpg".
With --keep the old name is kept in front of the folder name.`,
	Args: cobra.NoArgs,
	RunE: runRename,
}

var (
	renameSources []string
	renameBulk    string
	renameDeep    bool
	renameKeep    bool
	renameDryRun  bool
	renameExclude []string
	renameCounter counterFlags
)

func init() {
	renameCmd.Flags().StringArrayVarP(&renameSources, "source", "s", nil, "Folder whose files are renamed (can be repeated)")
	renameCmd.Flags().StringVarP(&renameBulk, "bulk", "b", "", "Rename the files of every subfolder of this folder")
	renameCmd.Flags().BoolVarP(&renameDeep, "deep", "d", false, "Also rename files in nested folders, each after its own folder")
	renameCmd.Flags().BoolVarP(&renameKeep, "keep", "k", false, `Keep the old name: "{old} {folder}"`)
	renameCmd.Flags().BoolVar(&renameDryRun, "dry-run", false, "Show the new names without renaming")
	renameCmd.Flags().StringArrayVarP(&renameExclude, "exclude", "e", nil, "Regex of paths to skip (can be repeated)")
	renameCounter.register(renameCmd, resolve.RenameCounter())
	renameCmd.MarkFlagsMutuallyExclusive("source", "bulk")
	renameCmd.MarkFlagsOneRequired("source", "bulk")
}

func runRename(cmd *cobra.Command, args []string) error {
	scanOpts, err := scanOptions(cfg.Rename.Exclude, renameExclude)
	if err != nil {
		return err
	}
	opts := batch.RenameOptions{
		Sources:   batch.Sources{Dirs: renameSources, Bulk: renameBulk},
		Counter:   renameCounter.apply(cmd, cfg.Rename.Counter()),
		Keep:      boolFlag(cmd, "keep", renameKeep, cfg.Rename.Keep),
		Deep:      boolFlag(cmd, "deep", renameDeep, cfg.Rename.Deep),
		DryRun:    renameDryRun,
		MaxProbes: cfg.Resolve.MaxProbes,
		Scan:      scanOpts,
	}

	ctx, stop := signalContext()
	defer stop()

	var extra entry.Recorder
	if opts.DryRun {
		extra = out.PlanRecorder()
	}

	start := time.Now()
	var stats batch.Stats
	err = runJournaled("rename", commandArgs(cmd), extra, func(rec entry.Recorder) error {
		var runErr error
		stats, runErr = batch.NewRenamer(resolve.OSFileSystem{}, out, rec).Run(ctx, opts)
		return runErr
	})
	if err == nil || stats.Total > 0 {
		out.Summary(console.Summary{
			Verb:      "Renamed",
			Done:      stats.Done,
			Unchanged: stats.Unchanged,
			Failed:    stats.Failed,
			Elapsed:   time.Since(start),
			DryRun:    opts.DryRun,
		})
	}
	return reportRunError(err)
}
