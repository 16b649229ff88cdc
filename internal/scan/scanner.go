package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/michaelscutari/fsbatch/internal/entry"
)

type dirWork struct {
	path  string
	depth int
}

// List returns the files (or directories, with opts.Dirs) under root in
// top-down order: the entries of a directory come before those of its
// subdirectories, and each directory is read in name order. The root itself
// is never included. Symlinks are classified by their target; symlinked
// directories are listed but not descended into.
func List(ctx context.Context, root string, opts *ScanOptions) ([]string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	var out []string
	stack := []dirWork{{path: root, depth: 0}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		work := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dirEntries, err := os.ReadDir(work.path)
		if err != nil {
			if work.depth == 0 || opts.OnError == nil {
				return out, fmt.Errorf("failed to read %s: %w", work.path, err)
			}
			opts.OnError(work.path, err)
			continue
		}

		var subdirs []dirWork
		for _, de := range dirEntries {
			childPath := filepath.Join(work.path, de.Name())
			if opts.ShouldExclude(childPath) {
				continue
			}

			kind, err := classify(childPath, de)
			if err != nil {
				if opts.OnError == nil {
					return out, fmt.Errorf("failed to stat %s: %w", childPath, err)
				}
				opts.OnError(childPath, err)
				continue
			}

			switch kind {
			case entry.KindDir:
				if opts.Dirs {
					out = append(out, childPath)
				}
				if opts.Deep && de.Type()&os.ModeSymlink == 0 {
					subdirs = append(subdirs, dirWork{path: childPath, depth: work.depth + 1})
				}
			case entry.KindFile:
				if !opts.Dirs {
					out = append(out, childPath)
				}
			}
		}

		// Push in reverse so the first subdirectory is read next.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return out, nil
}

// Subdirs returns the immediate subdirectories of root in name order.
func Subdirs(ctx context.Context, root string) ([]string, error) {
	return List(ctx, root, DefaultOptions().WithDirs(true))
}

func classify(path string, de os.DirEntry) (entry.Kind, error) {
	if de.Type()&os.ModeSymlink == 0 {
		return entry.KindFromMode(de.Type()), nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		// Dangling link.
		return entry.KindSymlink, nil
	}
	if err != nil {
		return entry.KindOther, err
	}
	return entry.KindFromMode(info.Mode()), nil
}
