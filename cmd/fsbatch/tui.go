package main

import (
	"fmt"

	"github.com/michaelscutari/fsbatch/internal/journal"
	"github.com/michaelscutari/fsbatch/internal/tui"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [RUN]",
	Short: "Browse the journal interactively",
	Long:  `Open an interactive browser over recorded runs and their operations.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	database, err := journal.OpenReader(journalPath())
	if err != nil {
		return err
	}
	defer database.Close()

	ref := ""
	if len(args) > 0 {
		ref = args[0]
	}
	model := tui.NewModel(database, ref)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
