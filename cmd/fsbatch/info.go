package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/michaelscutari/fsbatch/internal/entry"
	"github.com/michaelscutari/fsbatch/internal/journal"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [RUN]",
	Short: "Display a recorded run and its operations",
	Long: `Print metadata about a run from the journal followed by its operations.
RUN is a run ID or a unique prefix of one; it defaults to the latest run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInfo,
}

var (
	infoSort  string
	infoLimit int
)

func init() {
	infoCmd.Flags().StringVarP(&infoSort, "sort", "s", "seq", "Sort operations by: seq, size, source, target, status")
	infoCmd.Flags().IntVarP(&infoLimit, "limit", "n", 50, "Maximum number of operations (0 = all, -1 = none)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	switch infoSort {
	case "seq", "size", "source", "target", "status":
	default:
		return fmt.Errorf("invalid sort %q (expected seq|size|source|target|status)", infoSort)
	}

	database, err := journal.OpenReader(journalPath())
	if err != nil {
		return err
	}
	defer database.Close()

	ref := ""
	if len(args) > 0 {
		ref = args[0]
	}
	run, err := journal.GetRun(database, ref)
	if err != nil {
		return err
	}

	fmt.Printf("Run Information\n")
	fmt.Printf("===============\n\n")
	fmt.Printf("ID:          %s\n", run.ID)
	fmt.Printf("Command:     fsbatch %s %s\n", run.Command, run.Args)
	fmt.Printf("Status:      %s\n", run.Status)
	fmt.Printf("Start Time:  %s\n", run.StartTime.Format(time.RFC3339))
	if !run.EndTime.IsZero() {
		fmt.Printf("End Time:    %s\n", run.EndTime.Format(time.RFC3339))
		fmt.Printf("Duration:    %s\n", formatDuration(run.StartTime, run.EndTime))
	}
	if run.Message != "" {
		fmt.Printf("Message:     %s\n", run.Message)
	}

	counts, err := journal.CountByStatus(database, run.ID)
	if err != nil {
		return fmt.Errorf("failed to count operations: %w", err)
	}
	fmt.Printf("\nStatistics\n")
	fmt.Printf("----------\n")
	fmt.Printf("Operations:  %s\n", humanize.Comma(run.OpCount))
	for _, s := range []entry.OpStatus{entry.StatusDone, entry.StatusPlanned, entry.StatusUnchanged, entry.StatusSkipped, entry.StatusFailed} {
		if n := counts[s]; n > 0 {
			fmt.Printf("  %-10s %s\n", string(s)+":", humanize.Comma(n))
		}
	}
	fmt.Printf("Bytes:       %s\n", humanize.Bytes(uint64(run.Bytes)))

	if infoLimit < 0 || run.OpCount == 0 {
		return nil
	}
	ops, err := journal.LoadOperations(database, run.ID, infoSort, infoLimit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Printf("\nOperations\n")
	fmt.Printf("----------\n")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SEQ\tSTATUS\tKIND\tSIZE\tSOURCE\tTARGET\tMESSAGE\n")
	for _, op := range ops {
		size := ""
		if op.Size > 0 {
			size = humanize.Bytes(uint64(op.Size))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", op.Seq, op.Status, op.Kind, size, op.Source, op.Target, op.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if infoLimit > 0 && int64(len(ops)) < run.OpCount {
		fmt.Printf("... %s more (use -n 0 to show all)\n", humanize.Comma(run.OpCount-int64(len(ops))))
	}
	return nil
}
