package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/michaelscutari/fsbatch/internal/entry"
)

// ErrBackendUnavailable is returned when the requested backend cannot run
// on this system.
var ErrBackendUnavailable = errors.New("sync backend unavailable")

// Overwrite decides what happens to a destination file that already exists.
type Overwrite int

const (
	// OverwriteAlways replaces the destination file.
	OverwriteAlways Overwrite = iota
	// OverwriteKeepNewer replaces it unless it was modified after the source.
	OverwriteKeepNewer
	// OverwriteNever leaves existing destination files alone.
	OverwriteNever
)

func (o Overwrite) String() string {
	switch o {
	case OverwriteAlways:
		return "always"
	case OverwriteKeepNewer:
		return "keep-newer"
	case OverwriteNever:
		return "never"
	default:
		return fmt.Sprintf("Overwrite(%d)", int(o))
	}
}

// Policy configures one directory transfer.
type Policy struct {
	Overwrite Overwrite
	// Purge removes destination entries that do not exist in the source.
	Purge bool
}

// TransferStats counts what a transfer did.
type TransferStats struct {
	Copied  int
	Skipped int
	Deleted int
	Bytes   int64
}

func (t *TransferStats) add(o TransferStats) {
	t.Copied += o.Copied
	t.Skipped += o.Skipped
	t.Deleted += o.Deleted
	t.Bytes += o.Bytes
}

// Backend copies a directory tree onto another one.
type Backend interface {
	Name() string
	Transfer(ctx context.Context, src, dst string, p Policy) (TransferStats, error)
}

// Backend names accepted by SelectBackend.
const (
	BackendAuto     = "auto"
	BackendNative   = "native"
	BackendRobocopy = "robocopy"
)

// BackendConfig configures SelectBackend. Zero fields get defaults.
type BackendConfig struct {
	Name     string
	Verbose  bool
	Output   io.Writer // robocopy output when Verbose
	Log      Logger
	Rec      entry.Recorder
	Runner   CommandRunner
	GOOS     string
	LookPath func(file string) (string, error)
}

// SelectBackend returns the backend named by cfg.Name. "auto" picks robocopy
// on Windows when it is on PATH and the native backend otherwise.
func SelectBackend(cfg BackendConfig) (Backend, error) {
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	if cfg.LookPath == nil {
		cfg.LookPath = exec.LookPath
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}

	robocopy := func() (Backend, error) {
		path, err := cfg.LookPath("robocopy")
		if err != nil {
			return nil, fmt.Errorf("%w: robocopy not found: %w", ErrBackendUnavailable, err)
		}
		return NewRobocopyBackend(path, cfg.Runner, cfg.Verbose, cfg.Output, cfg.Rec), nil
	}

	switch cfg.Name {
	case "", BackendAuto:
		if cfg.GOOS == "windows" {
			if b, err := robocopy(); err == nil {
				return b, nil
			}
		}
		return NewNativeBackend(cfg.Log, cfg.Rec), nil
	case BackendNative:
		return NewNativeBackend(cfg.Log, cfg.Rec), nil
	case BackendRobocopy:
		return robocopy()
	default:
		return nil, fmt.Errorf("unknown sync backend %q (want auto, native or robocopy)", cfg.Name)
	}
}
