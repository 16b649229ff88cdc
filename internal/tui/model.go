package tui

import (
	"database/sql"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/michaelscutari/fsbatch/internal/entry"
	"github.com/michaelscutari/fsbatch/internal/journal"

	tea "github.com/charmbracelet/bubbletea"
)

// SortColumn represents the current operation sort field.
type SortColumn int

const (
	SortBySeq SortColumn = iota
	SortBySize
	SortBySource
	SortByTarget
	SortByStatus
)

func (s SortColumn) String() string {
	switch s {
	case SortBySize:
		return "size"
	case SortBySource:
		return "source"
	case SortByTarget:
		return "target"
	case SortByStatus:
		return "status"
	default:
		return "seq"
	}
}

type screen int

const (
	screenRuns screen = iota
	screenOps
)

const (
	runLimit = 500
	opLimit  = 5000
)

// Model holds the TUI state.
type Model struct {
	db      *sql.DB
	screen  screen
	loading bool
	width   int
	height  int
	err     error

	runs      []entry.RunMeta
	runCursor int

	run       *entry.RunMeta
	counts    map[entry.OpStatus]int64
	allOps    []entry.Operation
	ops       []entry.Operation
	opCursor  int
	sort      SortColumn
	startRef  string
	filter    textinput.Model
	filtering bool
	spinner   spinner.Model
}

// NewModel creates a journal browser. A non-empty runRef opens that run's
// operations directly.
func NewModel(database *sql.DB, runRef string) *Model {
	ti := textinput.New()
	ti.Prompt = "Filter: "
	ti.PromptStyle = filterStyle
	ti.TextStyle = filterStyle
	ti.CharLimit = 256
	ti.Cursor.SetMode(cursor.CursorStatic)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &Model{
		db:       database,
		sort:     SortBySeq,
		startRef: runRef,
		filter:   ti,
		spinner:  sp,
		loading:  true,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	load := m.loadRuns
	if m.startRef != "" {
		load = m.loadRun(m.startRef)
	}
	return tea.Batch(m.spinner.Tick, load)
}

type runsLoadedMsg struct {
	runs []entry.RunMeta
	err  error
}

func (m *Model) loadRuns() tea.Msg {
	runs, err := journal.ListRuns(m.db, runLimit)
	return runsLoadedMsg{runs: runs, err: err}
}

type opsLoadedMsg struct {
	run    *entry.RunMeta
	ops    []entry.Operation
	counts map[entry.OpStatus]int64
	err    error
}

func (m *Model) loadRun(ref string) tea.Cmd {
	sortBy := m.sort.String()
	return func() tea.Msg {
		run, err := journal.GetRun(m.db, ref)
		if err != nil {
			return opsLoadedMsg{err: err}
		}
		ops, err := journal.LoadOperations(m.db, run.ID, sortBy, opLimit)
		if err != nil {
			return opsLoadedMsg{err: err}
		}
		counts, err := journal.CountByStatus(m.db, run.ID)
		if err != nil {
			return opsLoadedMsg{err: err}
		}
		return opsLoadedMsg{run: run, ops: ops, counts: counts}
	}
}

func (m *Model) helpLine() string {
	if m.filtering {
		return "Type to filter | Enter: apply | Esc: clear | ctrl+c: quit"
	}
	if m.screen == screenRuns {
		return "↑/↓ move | Enter: open run | r: reload | /: filter | q: quit"
	}
	return "↑/↓ move | Backspace: runs | o/s/n/t/u: sort | /: filter | q: quit"
}

func (m *Model) setOps(ops []entry.Operation) {
	m.allOps = ops
	m.applyFilter()
}

// visibleRuns returns the runs matching the filter.
func (m *Model) visibleRuns() []entry.RunMeta {
	needle := strings.ToLower(m.filter.Value())
	if needle == "" {
		return m.runs
	}
	out := make([]entry.RunMeta, 0, len(m.runs))
	for _, r := range m.runs {
		if strings.Contains(strings.ToLower(r.Command+" "+r.Args+" "+r.ID+" "+string(r.Status)), needle) {
			out = append(out, r)
		}
	}
	return out
}

func (m *Model) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	if m.screen == screenRuns {
		m.runCursor = 0
		return
	}
	if needle == "" {
		m.ops = m.allOps
	} else {
		filtered := make([]entry.Operation, 0, len(m.allOps))
		for _, op := range m.allOps {
			hay := strings.ToLower(op.Source + " " + op.Target + " " + string(op.Status) + " " + string(op.Kind))
			if strings.Contains(hay, needle) {
				filtered = append(filtered, op)
			}
		}
		m.ops = filtered
	}
	m.opCursor = 0
}

func (m *Model) clearFilter() {
	m.filter.Reset()
	m.filter.Blur()
	m.filtering = false
}
