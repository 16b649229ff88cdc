package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/michaelscutari/fsbatch/internal/config"
	"github.com/michaelscutari/fsbatch/internal/console"
	"github.com/michaelscutari/fsbatch/internal/entry"
	"github.com/michaelscutari/fsbatch/internal/journal"
	"github.com/michaelscutari/fsbatch/internal/resolve"
	"github.com/michaelscutari/fsbatch/internal/scan"
	"github.com/spf13/cobra"
)

// silentError carries an exit status for a failure that was already
// reported.
type silentError struct{ err error }

func (e *silentError) Error() string { return e.err.Error() }
func (e *silentError) Unwrap() error { return e.err }

var (
	cfg *config.Config
	out *console.Reporter
)

func loadApp(cmd *cobra.Command, args []string) error {
	level := console.LevelNormal
	switch {
	case verbose:
		level = console.LevelVerbose
	case quiet:
		level = console.LevelQuiet
	}
	out = console.New(os.Stdout, os.Stderr, level)

	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	return err
}

// signalContext returns a context canceled on the first SIGINT/SIGTERM. A
// second signal exits immediately.
func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Fprintln(os.Stderr, "\nCanceling... (press Ctrl+C again to force)")
		cancel()
		<-sigCh
		os.Exit(130)
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func journalPath() string {
	switch {
	case journalDir != "":
		return journalDir
	case cfg.Journal.Dir != "":
		return cfg.Journal.Dir
	default:
		return journal.DefaultDir()
	}
}

// openJournal opens the journal for writing, or returns nil when journaling
// is disabled.
func openJournal() (*journal.Manager, error) {
	if noJournal || cfg.Journal.Disabled {
		return nil, nil
	}
	mgr := journal.NewManager(journalPath(), cfg.Journal.Retention)
	if err := mgr.Open(); err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return mgr, nil
}

// recordRun runs fn with a Recorder that writes to a new journal run when
// mgr is non-nil.
func recordRun(mgr *journal.Manager, command string, args []string, extra entry.Recorder, fn func(rec entry.Recorder) error) error {
	if mgr == nil {
		return fn(entry.Multi(extra))
	}
	run, err := mgr.Begin(command, args)
	if err != nil {
		out.Warn("journal unavailable: %v", err)
		return fn(entry.Multi(extra))
	}
	runErr := fn(entry.Multi(run, extra))
	meta, err := run.Finish(runErr)
	if err != nil {
		out.Warn("failed to finish journal run %s: %v", run.ID(), err)
	} else {
		out.Verbose("Journal: run %s (%s)", shortID(meta.ID), meta.Status)
	}
	return runErr
}

func closeJournal(mgr *journal.Manager) {
	if mgr == nil {
		return
	}
	if err := mgr.Close(); err != nil {
		out.Warn("failed to close journal: %v", err)
	}
}

// runJournaled opens the journal, records one run around fn and closes it.
func runJournaled(command string, args []string, extra entry.Recorder, fn func(rec entry.Recorder) error) error {
	mgr, err := openJournal()
	if err != nil {
		return err
	}
	defer closeJournal(mgr)
	return recordRun(mgr, command, args, extra, fn)
}

// counterFlags reads the shared counter flags over a configured counter.
type counterFlags struct {
	initial int
	step    int
	prefix  string
	suffix  string
}

func (f *counterFlags) register(cmd *cobra.Command, defaults resolve.Counter) {
	cmd.Flags().IntVarP(&f.initial, "initial", "i", defaults.Initial, "Initial counter value")
	cmd.Flags().IntVarP(&f.step, "step", "c", defaults.Step, "Counter step")
	cmd.Flags().StringVarP(&f.prefix, "prefix", "p", "", "Text placed before the counter")
	cmd.Flags().StringVarP(&f.suffix, "suffix", "u", "", "Text placed after the counter")
}

func (f *counterFlags) apply(cmd *cobra.Command, c resolve.Counter) resolve.Counter {
	flags := cmd.Flags()
	if flags.Changed("initial") {
		c.Initial = f.initial
	}
	if flags.Changed("step") {
		c.Step = f.step
	}
	if flags.Changed("prefix") {
		c.Prefix = f.prefix
	}
	if flags.Changed("suffix") {
		c.Suffix = f.suffix
	}
	return c
}

// boolFlag returns the flag value when set on the command line, else the
// configured value.
func boolFlag(cmd *cobra.Command, name string, flagVal, cfgVal bool) bool {
	if cmd.Flags().Changed(name) {
		return flagVal
	}
	return cfgVal
}

func scanOptions(patterns ...[]string) (*scan.ScanOptions, error) {
	opts := scan.DefaultOptions()
	for _, list := range patterns {
		for _, pattern := range list {
			if err := opts.AddExcludePattern(pattern); err != nil {
				return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
			}
		}
	}
	return opts, nil
}

// reportRunError prints validation failures according to the output level
// and turns cancellation into a clean exit.
func reportRunError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		out.Warn("operation canceled; files already processed were kept")
		return nil
	}
	if errors.Is(err, scan.ErrDestinationUncreatable) {
		return err
	}
	if paths := scan.InvalidPaths(err); len(paths) > 0 {
		switch out.Level() {
		case console.LevelVerbose:
			for _, p := range paths {
				out.Error("not a directory or does not exist: '%s'", p)
			}
		case console.LevelNormal:
			out.Error("%d path(s) are not valid directories; run with -v for details", len(paths))
		}
		return &silentError{err: err}
	}
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(start, end time.Time) string {
	if end.IsZero() {
		return "-"
	}
	return end.Sub(start).Round(time.Millisecond).String()
}

// commandArgs returns the raw arguments that followed the subcommand name.
func commandArgs(cmd *cobra.Command) []string {
	for i, a := range os.Args[1:] {
		if a == cmd.Name() {
			return os.Args[i+2:]
		}
	}
	return os.Args[1:]
}
