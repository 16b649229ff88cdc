package tui

import (
	"github.com/charmbracelet/bubbles/spinner"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filter.Width = max(10, msg.Width-10)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.runs = msg.runs
		m.screen = screenRuns
		if m.runCursor >= len(m.runs) {
			m.runCursor = 0
		}
		return m, nil

	case opsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.run = msg.run
		m.counts = msg.counts
		m.screen = screenOps
		m.setOps(msg.ops)
		return m, nil
	}

	return m, nil
}

func (m *Model) startLoad(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.String() {
		case "enter":
			m.filtering = false
			m.filter.Blur()
			return m, nil

		case "esc":
			m.clearFilter()
			m.applyFilter()
			return m, nil

		case "ctrl+c":
			return m, tea.Quit
		}

		before := m.filter.Value()
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		if m.filter.Value() != before {
			m.applyFilter()
		}
		return m, cmd
	}

	if m.err != nil {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "backspace":
			m.err = nil
			return m.startLoad(m.loadRuns)
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.filtering = true
		return m, m.filter.Focus()

	case "up", "k":
		m.moveCursor(-1)
		return m, nil

	case "down", "j":
		m.moveCursor(1)
		return m, nil

	case "pgup":
		m.moveCursor(-10)
		return m, nil

	case "pgdown":
		m.moveCursor(10)
		return m, nil

	case "home", "g":
		m.moveCursor(-m.listLen())
		return m, nil

	case "end", "G":
		m.moveCursor(m.listLen())
		return m, nil
	}

	if m.screen == screenRuns {
		switch msg.String() {
		case "enter", "l", "right":
			runs := m.visibleRuns()
			if m.runCursor < len(runs) {
				m.sort = SortBySeq
				m.clearFilter()
				return m.startLoad(m.loadRun(runs[m.runCursor].ID))
			}
		case "r":
			return m.startLoad(m.loadRuns)
		}
		return m, nil
	}

	switch msg.String() {
	case "backspace", "h", "left", "esc":
		m.clearFilter()
		m.run = nil
		m.allOps, m.ops = nil, nil
		return m.startLoad(m.loadRuns)
	case "o":
		return m.resort(SortBySeq)
	case "s":
		return m.resort(SortBySize)
	case "n":
		return m.resort(SortBySource)
	case "t":
		return m.resort(SortByTarget)
	case "u":
		return m.resort(SortByStatus)
	}
	return m, nil
}

func (m *Model) resort(col SortColumn) (tea.Model, tea.Cmd) {
	if m.run == nil {
		return m, nil
	}
	m.sort = col
	return m.startLoad(m.loadRun(m.run.ID))
}

func (m *Model) listLen() int {
	if m.screen == screenRuns {
		return len(m.visibleRuns())
	}
	return len(m.ops)
}

func (m *Model) moveCursor(delta int) {
	cursor := &m.opCursor
	if m.screen == screenRuns {
		cursor = &m.runCursor
	}
	*cursor += delta
	if n := m.listLen(); *cursor >= n {
		*cursor = n - 1
	}
	if *cursor < 0 {
		*cursor = 0
	}
}
