package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/michaelscutari/fsbatch/internal/entry"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nEsc: back to runs | q: quit", m.err)
	}
	if m.loading && m.runs == nil && m.run == nil {
		return m.spinner.View() + " Loading journal..."
	}

	var b strings.Builder
	headerLines := 0
	writeLine := func(line string) {
		b.WriteString(line)
		b.WriteString("\n")
		headerLines += 1 + strings.Count(line, "\n")
	}

	writeLine(titleStyle.Render("fsbatch - Run Journal"))

	var rows []string
	var cursor int
	if m.screen == screenRuns {
		runs := m.visibleRuns()
		writeLine(statsStyle.Render(fmt.Sprintf("Runs: %s", FormatCount(int64(len(m.runs))))))
		m.writeFilter(writeLine)
		writeLine(headerStyle.Render(runHeader()))
		for _, r := range runs {
			rows = append(rows, formatRun(r, m.width))
		}
		cursor = m.runCursor
	} else {
		writeLine(statsStyle.Render(m.runSummary()))
		status := fmt.Sprintf("Operations: %s | Sort: %s", FormatCount(int64(len(m.ops))), m.sort)
		if m.loading {
			status += " " + m.spinner.View()
		}
		writeLine(statusStyle.Render(status))
		m.writeFilter(writeLine)
		writeLine(headerStyle.Render(opHeader(m.sort)))
		for _, op := range m.ops {
			rows = append(rows, formatOp(op, m.width))
		}
		cursor = m.opCursor
	}

	footerLines := 2
	visibleRows := max(5, m.height-headerLines-footerLines)
	startIdx := 0
	if cursor >= visibleRows {
		startIdx = cursor - visibleRows + 1
	}
	endIdx := min(len(rows), startIdx+visibleRows)

	for i := startIdx; i < endIdx; i++ {
		if i == cursor {
			b.WriteString(selectedStyle.Render(rows[i]))
		} else {
			b.WriteString(rows[i])
		}
		b.WriteString("\n")
	}
	for i := endIdx - startIdx; i < visibleRows; i++ {
		b.WriteString("\n")
	}

	help := m.helpLine()
	if len(rows) > 0 {
		help = fmt.Sprintf("%s [%d/%d]", help, cursor+1, len(rows))
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m *Model) writeFilter(writeLine func(string)) {
	if m.filtering {
		writeLine(m.filter.View())
	} else if v := m.filter.Value(); v != "" {
		writeLine(filterStyle.Render("Filter: " + v))
	}
}

func (m *Model) runSummary() string {
	r := m.run
	if r == nil {
		return ""
	}
	line := fmt.Sprintf("Run %s | %s %s | %s | %s",
		shortID(r.ID),
		commandStyle.Render(r.Command), r.Args,
		renderStatus(string(r.Status)),
		r.StartTime.Format("2006-01-02 15:04:05"),
	)
	if !r.EndTime.IsZero() {
		line += fmt.Sprintf(" (%s)", r.EndTime.Sub(r.StartTime).Round(time.Millisecond))
	}
	var parts []string
	for _, s := range []entry.OpStatus{entry.StatusDone, entry.StatusPlanned, entry.StatusUnchanged, entry.StatusSkipped, entry.StatusFailed} {
		if n := m.counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", FormatCount(n), s))
		}
	}
	if len(parts) > 0 {
		line += "\n" + strings.Join(parts, " | ") + " | " + FormatSize(r.Bytes)
	}
	if r.Message != "" {
		line += "\n" + r.Message
	}
	return line
}

const (
	colStarted = 19
	colCommand = 8
	colStatus  = 9
	colCount   = 8
	colSize    = 10
	colID      = 8
	colKind    = 7

	minTailWidth = 10
)

func runHeader() string {
	return fmt.Sprintf("%-*s  %-*s  %-*s  %*s  %*s  %*s  %-*s  ARGS",
		colStarted, "STARTED", colCommand, "COMMAND", colStatus, "STATUS",
		colCount, "OPS", colCount, "ERRORS", colSize, "BYTES", colID, "ID")
}

func formatRun(r entry.RunMeta, width int) string {
	prefix := fmt.Sprintf("%-*s  %-*s  %s  %*s  %*s  %*s  %-*s  ",
		colStarted, r.StartTime.Format("2006-01-02 15:04:05"),
		colCommand, truncateRight(r.Command, colCommand),
		padStatus(string(r.Status)),
		colCount, FormatCount(r.OpCount),
		colCount, FormatCount(r.ErrorCount),
		colSize, FormatSize(r.Bytes),
		colID, shortID(r.ID),
	)
	return prefix + fitTail(r.Args, width, prefix)
}

func opHeader(sort SortColumn) string {
	label := func(name string, col SortColumn) string {
		if sort == col {
			return name + "v"
		}
		return name
	}
	return fmt.Sprintf("%*s  %-*s  %-*s  %*s  %s",
		colCount, label("SEQ", SortBySeq), colStatus, label("STATUS", SortByStatus),
		colKind, "KIND", colSize, label("SIZE", SortBySize),
		label("SOURCE", SortBySource)+" -> "+label("TARGET", SortByTarget))
}

func formatOp(op entry.Operation, width int) string {
	path := op.Source
	if op.Target != "" {
		if path != "" {
			path += " -> "
		}
		path += op.Target
	}
	if op.Message != "" {
		path += "  (" + op.Message + ")"
	}
	size := ""
	if op.Size > 0 {
		size = FormatSize(op.Size)
	}
	prefix := fmt.Sprintf("%*d  %s  %-*s  %*s  ",
		colCount, op.Seq,
		padStatus(string(op.Status)),
		colKind, op.Kind,
		colSize, size,
	)
	return prefix + fitTail(path, width, prefix)
}

func padStatus(status string) string {
	pad := colStatus - len(status)
	if pad < 0 {
		pad = 0
	}
	return renderStatus(status) + strings.Repeat(" ", pad)
}

func shortID(id string) string {
	if len(id) > colID {
		return id[:colID]
	}
	return id
}

// fitTail truncates the unstyled tail of a row so the row fits in width.
func fitTail(tail string, width int, prefix string) string {
	if width <= 0 {
		return tail
	}
	return truncateRight(tail, max(minTailWidth, width-lipgloss.Width(prefix)))
}

// truncateRight shortens s to maxLen runes.
func truncateRight(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
