package resolve

import (
	"errors"
	"fmt"
)

var (
	// ErrExhausted is returned when no free candidate was found within the
	// probe limit.
	ErrExhausted = errors.New("no free name within probe limit")

	// ErrZeroStep is returned for a probing counter with Step == 0.
	ErrZeroStep = errors.New("counter step must not be zero")

	// ErrSameFile is returned when a copy's destination is its own source.
	ErrSameFile = errors.New("source and destination are the same file")
)

// CommitError reports a rename or copy that failed for a reason other than
// the target already existing. Probing stops on it.
type CommitError struct {
	Op     string // "rename" or "copy"
	Source string
	Target string
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s %q to %q: %v", e.Op, e.Source, e.Target, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
