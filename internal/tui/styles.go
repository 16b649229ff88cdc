package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/michaelscutari/fsbatch/internal/entry"
)

var (
	// Colors
	colorPrimary   = lipgloss.Color("39")  // Blue
	colorSecondary = lipgloss.Color("245") // Gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("76")  // Green
	colorWarning   = lipgloss.Color("214") // Orange
	colorError     = lipgloss.Color("196") // Red
	colorMuted     = lipgloss.Color("240") // Dark gray

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorMuted).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorMuted)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(colorPrimary)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	filterStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	statsStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			MarginBottom(1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)

	commandStyle = lipgloss.NewStyle().
			Foreground(colorHighlight)
)

var statusStyles = map[string]lipgloss.Style{
	string(entry.StatusDone):      lipgloss.NewStyle().Foreground(colorSuccess),
	string(entry.RunOK):           lipgloss.NewStyle().Foreground(colorSuccess),
	string(entry.StatusUnchanged): lipgloss.NewStyle().Foreground(colorSecondary),
	string(entry.StatusSkipped):   lipgloss.NewStyle().Foreground(colorSecondary),
	string(entry.StatusPlanned):   lipgloss.NewStyle().Foreground(colorPrimary),
	string(entry.RunRunning):      lipgloss.NewStyle().Foreground(colorPrimary),
	string(entry.StatusFailed):    lipgloss.NewStyle().Foreground(colorError).Bold(true),
	string(entry.RunCanceled):     lipgloss.NewStyle().Foreground(colorWarning),
}

func renderStatus(status string) string {
	if s, ok := statusStyles[status]; ok {
		return s.Render(status)
	}
	return status
}

// FormatSize formats a byte count for display.
func FormatSize(bytes int64) string {
	return humanize.Bytes(uint64(bytes))
}

// FormatCount formats a count for display.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}
