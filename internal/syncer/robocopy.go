package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/michaelscutari/fsbatch/internal/entry"
)

// robocopy exit codes at or above this value mean at least one failure.
const robocopyFailureCode = 8

var robocopySilentFlags = []string{"/NFL", "/NDL", "/NJH", "/NJS", "/nc", "/ns", "/np"}

// RobocopyError reports a robocopy run that exited with a failure code.
type RobocopyError struct {
	Code   int
	Stderr string
}

func (e *RobocopyError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("robocopy exited with code %d", e.Code)
	}
	return fmt.Sprintf("robocopy exited with code %d: %s", e.Code, msg)
}

// CommandRunner runs an external command and returns its exit code. A
// non-nil error means the command could not be run at all.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) (int, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

// RobocopyBackend transfers trees by running robocopy.
type RobocopyBackend struct {
	path    string
	runner  CommandRunner
	verbose bool
	out     io.Writer
	rec     entry.Recorder
}

// NewRobocopyBackend creates a backend that runs the robocopy binary at
// path. Output is shown on out only when verbose.
func NewRobocopyBackend(path string, runner CommandRunner, verbose bool, out io.Writer, rec entry.Recorder) *RobocopyBackend {
	if out == nil || !verbose {
		out = io.Discard
	}
	if rec == nil {
		rec = entry.Discard
	}
	return &RobocopyBackend{path: path, runner: runner, verbose: verbose, out: out, rec: rec}
}

func (b *RobocopyBackend) Name() string { return BackendRobocopy }

// Args returns the robocopy command line for a transfer, without the
// program name.
func (b *RobocopyBackend) Args(src, dst string, p Policy) []string {
	args := []string{src, dst}
	switch {
	case p.Purge:
		args = append(args, "/MIR", "/E", "/Z", "/J", "/IT", "/IS", "/W:5")
	case p.Overwrite == OverwriteNever:
		args = append(args, "/COPY:DAT", "/DCOPY:T", "/E", "/Z", "/J", "/W:5", "/XO", "/XN", "/XC")
	default:
		args = append(args, "/COPY:DAT", "/DCOPY:T", "/E", "/Z", "/J", "/IT", "/IS", "/W:5")
	}
	if p.Overwrite == OverwriteKeepNewer {
		args = append(args, "/XO")
	}
	if !b.verbose {
		args = append(args, robocopySilentFlags...)
	}
	return args
}

// Transfer runs robocopy once. Robocopy does not report per-file results
// back, so the returned stats are empty and one sync operation is recorded.
func (b *RobocopyBackend) Transfer(ctx context.Context, src, dst string, p Policy) (TransferStats, error) {
	var stderr bytes.Buffer
	code, err := b.runner.Run(ctx, b.path, b.Args(src, dst, p), b.out, &stderr)
	op := entry.Operation{Kind: entry.OpSync, Source: src, Target: dst, Status: entry.StatusDone, Time: time.Now()}
	if err != nil {
		op.Status = entry.StatusFailed
		op.Message = err.Error()
		b.rec.Record(op)
		return TransferStats{}, fmt.Errorf("failed to run robocopy: %w", err)
	}
	op.Message = fmt.Sprintf("exit code %d", code)
	if code >= robocopyFailureCode {
		op.Status = entry.StatusFailed
		b.rec.Record(op)
		return TransferStats{}, &RobocopyError{Code: code, Stderr: stderr.String()}
	}
	b.rec.Record(op)
	return TransferStats{}, nil
}
