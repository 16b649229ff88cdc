package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var silent *silentError
		if !errors.As(err, &silent) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fsbatch",
	Short: "Batch file utilities: numbered copy, rename to folder, merge and sync",
	Long: `fsbatch copies files into one folder with sequential numbering, renames
files after the folder they live in, and merges, copies or mirrors directory
trees, optionally watching them for changes. Every run is recorded in a
local journal that can be inspected with history, info and tui.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: loadApp,
}

var (
	configPath string
	journalDir string
	noJournal  bool
	verbose    bool
	quiet      bool
)

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (.toml, .yaml or .yml); default $FSBATCH_CONFIG or the user config dir")
	rootCmd.PersistentFlags().StringVar(&journalDir, "journal", "", "Journal directory (default: user cache dir)")
	rootCmd.PersistentFlags().BoolVar(&noJournal, "no-journal", false, "Do not record this run in the journal")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print every file operation")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Print only warnings and errors")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(tuiCmd)
}
