package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/michaelscutari/fsbatch/internal/console"
	"github.com/michaelscutari/fsbatch/internal/entry"
	"github.com/michaelscutari/fsbatch/internal/journal"
	"github.com/michaelscutari/fsbatch/internal/scan"
	"github.com/michaelscutari/fsbatch/internal/syncer"
	"github.com/michaelscutari/fsbatch/internal/watch"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync SRC DEST",
	Short: "Merge, copy or mirror one folder onto another, optionally watching for changes",
	Long: `Run an initial action and/or keep two folders in sync while they change.

Initial actions:
  --merge   copy missing files; files that differ are placed next to their
            counterpart as name_1.ext, name_2.ext, ...
  --copy    copy everything, overwriting; extra destination files are kept
  --mirror  make DEST an exact copy of SRC, deleting extra files

Continuous modes (run until Ctrl+C):
  --sync    two-way mirror
  --asymc   one-way copy from SRC to DEST
  --asymi   one-way mirror from SRC to DEST`,
	Args: cobra.ExactArgs(2),
	RunE: runSync,
}

var (
	syncMerge    bool
	syncCopy     bool
	syncMirror   bool
	syncTwoWay   bool
	syncModTime  bool
	syncWatchAll bool
	syncAsymC    bool
	syncAsymI    bool
	syncBackend  string
	syncPython   bool
	syncDebounce time.Duration
)

func init() {
	f := syncCmd.Flags()
	f.BoolVarP(&syncMerge, "merge", "m", false, "Merge SRC into DEST, renaming conflicting files")
	f.BoolVarP(&syncCopy, "copy", "c", false, "Copy SRC into DEST, overwriting")
	f.BoolVarP(&syncMirror, "mirror", "i", false, "Mirror SRC to DEST, deleting extra files")
	f.BoolVarP(&syncWatchAll, "sync", "s", false, "Keep both folders mirrored while watching them")
	f.BoolVarP(&syncAsymC, "asymc", "a", false, "Watch SRC and copy changes to DEST")
	f.BoolVarP(&syncAsymI, "asymi", "y", false, "Watch SRC and mirror it to DEST")
	f.BoolVarP(&syncModTime, "time", "t", false, "Never overwrite a destination file newer than the source")
	f.BoolVarP(&syncTwoWay, "twoway", "w", false, "Run the initial action in both directions")
	f.StringVar(&syncBackend, "backend", syncer.BackendAuto, "Copy backend: auto, native or robocopy")
	f.BoolVarP(&syncPython, "python", "p", false, "Use the built-in copy backend (same as --backend native)")
	f.DurationVar(&syncDebounce, "debounce", watch.DefaultDebounce, "Quiet period before a watched change is synced")

	syncCmd.MarkFlagsMutuallyExclusive("merge", "copy", "mirror")
	syncCmd.MarkFlagsMutuallyExclusive("sync", "asymc", "asymi")
	syncCmd.MarkFlagsMutuallyExclusive("backend", "python")
	syncCmd.MarkFlagsOneRequired("merge", "copy", "mirror", "sync", "asymc", "asymi")
}

type syncSession struct {
	backendName string
	modTime     bool
	maxProbes   int
	mgr         *journal.Manager
	args        []string
}

func runSync(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]

	if err := scan.CheckDirs(src); err != nil {
		return reportRunError(err)
	}
	created, err := scan.EnsureDir(dst)
	if err != nil {
		return reportRunError(err)
	}
	if created {
		out.Info("Created destination directory: '%s'", dst)
	}

	s := &syncSession{
		backendName: cfg.Sync.Backend,
		modTime:     boolFlag(cmd, "time", syncModTime, cfg.Sync.ModTime),
		maxProbes:   cfg.Resolve.MaxProbes,
		args:        commandArgs(cmd),
	}
	if cmd.Flags().Changed("backend") {
		s.backendName = syncBackend
	}
	if syncPython {
		s.backendName = syncer.BackendNative
	}
	debounce := cfg.Sync.Debounce.Duration
	if cmd.Flags().Changed("debounce") {
		debounce = syncDebounce
	}

	ctx, stop := signalContext()
	defer stop()

	s.mgr, err = openJournal()
	if err != nil {
		return err
	}
	defer closeJournal(s.mgr)

	if mode, ok := initialMode(); ok {
		out.Info("Starting operation...")
		if err := s.run(ctx, mode, src, dst, syncTwoWay); err != nil {
			return reportRunError(err)
		}
	}

	if !syncWatchAll && !syncAsymC && !syncAsymI {
		return nil
	}
	return reportRunError(s.watch(ctx, src, dst, debounce))
}

func initialMode() (syncer.Mode, bool) {
	switch {
	case syncMerge:
		return syncer.ModeMerge, true
	case syncCopy:
		return syncer.ModeCopy, true
	case syncMirror:
		return syncer.ModeMirror, true
	}
	return 0, false
}

// run performs one journaled sync action.
func (s *syncSession) run(ctx context.Context, mode syncer.Mode, src, dst string, twoWay bool) error {
	start := time.Now()
	var stats syncer.Stats
	err := recordRun(s.mgr, "sync", s.args, nil, func(rec entry.Recorder) error {
		backend, err := syncer.SelectBackend(syncer.BackendConfig{
			Name:    s.backendName,
			Verbose: out.Level() >= console.LevelVerbose,
			Output:  os.Stdout,
			Log:     out,
			Rec:     rec,
		})
		if err != nil {
			return err
		}
		stats, err = syncer.New(backend, nil, out, rec).Run(ctx, mode, src, dst, syncer.Options{
			ModTime:   s.modTime,
			TwoWay:    twoWay,
			MaxProbes: s.maxProbes,
		})
		return err
	})
	if stats.Merged > 0 {
		out.Info("Placed %d differing file(s) next to their counterparts", stats.Merged)
	}
	out.Summary(console.Summary{
		Verb:    "Copied",
		Done:    stats.Copied,
		Skipped: stats.Skipped,
		Deleted: stats.Deleted,
		Bytes:   stats.Bytes,
		Elapsed: time.Since(start),
	})
	return err
}

func (s *syncSession) watch(ctx context.Context, src, dst string, debounce time.Duration) error {
	group := watch.NewGroup(
		watch.WithDebounce(debounce),
		watch.WithLogger(out),
		watch.WithIgnore(syncer.IsTempName),
	)

	onChange := func(mode syncer.Mode, from, to string) watch.Func {
		return func(ctx context.Context, root string, changed []string) error {
			out.Info("%d change(s) in '%s'; running %s into '%s'", len(changed), root, mode, to)
			for _, p := range changed {
				out.Verbose("changed: %s", p)
			}
			return s.run(ctx, mode, from, to, false)
		}
	}

	switch {
	case syncWatchAll:
		if err := group.Add(src, onChange(syncer.ModeMirror, src, dst)); err != nil {
			return err
		}
		if err := group.Add(dst, onChange(syncer.ModeMirror, dst, src)); err != nil {
			group.Close()
			return err
		}
	case syncAsymC:
		if err := group.Add(src, onChange(syncer.ModeCopy, src, dst)); err != nil {
			return err
		}
	case syncAsymI:
		if err := group.Add(src, onChange(syncer.ModeMirror, src, dst)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("no continuous mode selected")
	}

	out.Info("Watching '%s' and syncing to '%s'. Press Ctrl+C to stop.", src, dst)
	if err := group.Run(ctx); err != nil {
		return err
	}
	out.Info("Stopped watching.")
	return nil
}
