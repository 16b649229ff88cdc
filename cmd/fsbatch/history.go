package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/michaelscutari/fsbatch/internal/journal"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the journal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	database, err := journal.OpenReader(journalPath())
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := journal.ListRuns(database, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tSTARTED\tCOMMAND\tSTATUS\tOPS\tERRORS\tBYTES\tDURATION\tARGS\n")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(r.ID),
			humanize.Time(r.StartTime),
			r.Command,
			r.Status,
			humanize.Comma(r.OpCount),
			humanize.Comma(r.ErrorCount),
			humanize.Bytes(uint64(r.Bytes)),
			formatDuration(r.StartTime, r.EndTime),
			r.Args,
		)
	}
	return w.Flush()
}
