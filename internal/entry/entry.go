package entry

import (
	"os"
	"time"

	"github.com/michaelscutari/fsbatch/internal/pathutil"
)

// Kind represents the type of filesystem entry.
type Kind uint8

const (
	KindFile    Kind = 0
	KindDir     Kind = 1
	KindSymlink Kind = 2
	KindOther   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// KindFromMode derives the Kind from an os.FileMode.
func KindFromMode(mode os.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	case mode&os.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}

// PathEntry is a path split into its components. It is never modified after
// NewPathEntry returns it.
type PathEntry struct {
	Path string
	Dir  string
	Name string // base name without extension
	Ext  string // extension including the leading dot
}

// NewPathEntry splits path into a PathEntry.
func NewPathEntry(path string) PathEntry {
	dir, name, ext := pathutil.Split(path)
	return PathEntry{Path: path, Dir: dir, Name: name, Ext: ext}
}

// OpKind identifies what a journaled operation did.
type OpKind string

const (
	OpCopy   OpKind = "copy"
	OpRename OpKind = "rename"
	OpMerge  OpKind = "merge"
	OpDelete OpKind = "delete"
	OpSync   OpKind = "sync"
)

// OpStatus is the outcome of an operation.
type OpStatus string

const (
	StatusDone      OpStatus = "done"
	StatusUnchanged OpStatus = "unchanged"
	StatusSkipped   OpStatus = "skipped"
	StatusFailed    OpStatus = "failed"
	StatusPlanned   OpStatus = "planned"
)

// Operation is one filesystem action performed (or planned) during a run.
type Operation struct {
	Seq     int64
	Kind    OpKind
	Source  string
	Target  string
	Size    int64
	Status  OpStatus
	Message string
	Time    time.Time
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunOK       RunStatus = "ok"
	RunFailed   RunStatus = "failed"
	RunCanceled RunStatus = "canceled"
)

// RunMeta holds metadata about a single fsbatch invocation.
type RunMeta struct {
	ID         string
	Command    string
	Args       string
	StartTime  time.Time
	EndTime    time.Time
	Status     RunStatus
	OpCount    int64
	ErrorCount int64
	Bytes      int64
	Message    string
}

// Recorder receives operations as they happen.
type Recorder interface {
	Record(op Operation)
}

// RecorderFunc adapts a function to a Recorder.
type RecorderFunc func(op Operation)

// Record calls f(op).
func (f RecorderFunc) Record(op Operation) { f(op) }

// Discard is a Recorder that drops everything.
var Discard Recorder = RecorderFunc(func(Operation) {})

// Multi fans an operation out to every non-nil recorder.
func Multi(recorders ...Recorder) Recorder {
	var rs []Recorder
	for _, r := range recorders {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return RecorderFunc(func(op Operation) {
		for _, r := range rs {
			r.Record(op)
		}
	})
}
