package scan

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNotDirectory is returned for a configured path that is not an
	// existing directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrDestinationUncreatable is returned when a missing destination
	// cannot be created.
	ErrDestinationUncreatable = errors.New("destination cannot be created")
)

// PathError ties a validation failure to the offending path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// CheckDirs verifies that every path is an existing directory. All failures
// are collected; the result is nil or an errors.Join of *PathError values
// wrapping ErrNotDirectory.
func CheckDirs(paths ...string) error {
	var errs []error
	for _, p := range paths {
		info, err := os.Stat(p)
		if err == nil && info.IsDir() {
			continue
		}
		errs = append(errs, &PathError{Path: p, Err: ErrNotDirectory})
	}
	return errors.Join(errs...)
}

// InvalidPaths lists the paths carried by an error returned from CheckDirs.
func InvalidPaths(err error) []string {
	var paths []string
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			paths = append(paths, InvalidPaths(e)...)
		}
		return paths
	}
	var pe *PathError
	if errors.As(err, &pe) {
		paths = append(paths, pe.Path)
	}
	return paths
}

// EnsureDir creates path if it does not exist. It reports whether the
// directory was created.
func EnsureDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false, &PathError{Path: path, Err: ErrNotDirectory}
		}
		return false, nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, &PathError{Path: path, Err: fmt.Errorf("%w: %w", ErrDestinationUncreatable, err)}
	}
	return true, nil
}
