// Package console writes leveled, optionally colored progress output for the
// fsbatch commands.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/michaelscutari/fsbatch/internal/entry"
)

// Level controls how much is printed.
type Level int

const (
	LevelQuiet Level = iota
	LevelNormal
	LevelVerbose
)

// Reporter prints Info and Verbose messages to out and warnings and errors
// to errOut. Warnings and errors are printed at every level. It is safe for
// concurrent use.
type Reporter struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	level  Level

	infoStyle    lipgloss.Style
	verboseStyle lipgloss.Style
	warnStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	planStyle    lipgloss.Style
}

// New creates a Reporter. Colors are used only when the writer is a
// terminal that supports them.
func New(out, errOut io.Writer, level Level) *Reporter {
	outR := lipgloss.NewRenderer(out)
	errR := lipgloss.NewRenderer(errOut)
	return &Reporter{
		out:    out,
		errOut: errOut,
		level:  level,

		infoStyle:    outR.NewStyle(),
		verboseStyle: outR.NewStyle().Foreground(lipgloss.Color("245")),
		warnStyle:    errR.NewStyle().Foreground(lipgloss.Color("214")),
		errorStyle:   errR.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		successStyle: outR.NewStyle().Foreground(lipgloss.Color("76")),
		planStyle:    outR.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

// Level returns the configured level.
func (r *Reporter) Level() Level { return r.level }

func (r *Reporter) Info(format string, args ...any) {
	if r.level >= LevelNormal {
		r.println(r.out, r.infoStyle, "", format, args)
	}
}

func (r *Reporter) Verbose(format string, args ...any) {
	if r.level >= LevelVerbose {
		r.println(r.out, r.verboseStyle, "", format, args)
	}
}

func (r *Reporter) Warn(format string, args ...any) {
	r.println(r.errOut, r.warnStyle, "warning: ", format, args)
}

func (r *Reporter) Error(format string, args ...any) {
	r.println(r.errOut, r.errorStyle, "error: ", format, args)
}

func (r *Reporter) Success(format string, args ...any) {
	if r.level >= LevelNormal {
		r.println(r.out, r.successStyle, "", format, args)
	}
}

func (r *Reporter) println(w io.Writer, style lipgloss.Style, prefix, format string, args []any) {
	msg := prefix + fmt.Sprintf(format, args...)
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(w, style.Render(msg))
}

// PlanRecorder returns a Recorder that prints planned operations, for dry
// runs. Other operations are ignored.
func (r *Reporter) PlanRecorder() entry.Recorder {
	return entry.RecorderFunc(func(op entry.Operation) {
		if op.Status != entry.StatusPlanned || r.level < LevelNormal {
			return
		}
		line := fmt.Sprintf("would %s '%s'", op.Kind, op.Source)
		if op.Target != "" {
			line += fmt.Sprintf(" -> '%s'", op.Target)
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		fmt.Fprintln(r.out, r.planStyle.Render(line))
	})
}

// Summary describes the outcome of a run.
type Summary struct {
	Verb      string // past tense, e.g. "Copied"
	Done      int
	Unchanged int
	Skipped   int
	Deleted   int
	Failed    int
	Bytes     int64
	Elapsed   time.Duration
	DryRun    bool
}

// String renders the summary as a single line.
func (s Summary) String() string {
	var b strings.Builder
	verb := s.Verb
	if s.DryRun {
		verb = "Would have " + strings.ToLower(verb)
	}
	fmt.Fprintf(&b, "%s %s %s", verb, humanize.Comma(int64(s.Done)), plural(s.Done, "file", "files"))
	if s.Bytes > 0 {
		fmt.Fprintf(&b, " (%s)", humanize.Bytes(uint64(s.Bytes)))
	}
	var extra []string
	if s.Unchanged > 0 {
		extra = append(extra, fmt.Sprintf("%s unchanged", humanize.Comma(int64(s.Unchanged))))
	}
	if s.Skipped > 0 {
		extra = append(extra, fmt.Sprintf("%s skipped", humanize.Comma(int64(s.Skipped))))
	}
	if s.Deleted > 0 {
		extra = append(extra, fmt.Sprintf("%s deleted", humanize.Comma(int64(s.Deleted))))
	}
	if s.Failed > 0 {
		extra = append(extra, fmt.Sprintf("%s failed", humanize.Comma(int64(s.Failed))))
	}
	if len(extra) > 0 {
		b.WriteString(", ")
		b.WriteString(strings.Join(extra, ", "))
	}
	if s.Elapsed > 0 {
		fmt.Fprintf(&b, " in %s", s.Elapsed.Round(time.Millisecond))
	}
	return b.String()
}

// Summary prints s as a success line, or as a warning when anything failed.
func (r *Reporter) Summary(s Summary) {
	if s.Failed > 0 {
		r.Warn("%s", s)
		return
	}
	r.Success("%s", s)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
