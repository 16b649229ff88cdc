// Package watch triggers callbacks when anything below a set of directory
// trees changes.
//
// Events are coalesced: a callback runs once the tree has been quiet for the
// debounce window, and receives every path that changed. Callbacks from all
// watchers in a Group are serialized.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a callback runs.
const DefaultDebounce = 500 * time.Millisecond

// Func is called with the root that changed and the changed paths, sorted.
type Func func(ctx context.Context, root string, changed []string) error

// Logger receives watcher diagnostics.
type Logger interface {
	Verbose(format string, args ...any)
	Warn(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Verbose(string, ...any) {}
func (nopLogger) Warn(string, ...any)    {}

// Option configures a Group.
type Option func(*Group)

// WithDebounce sets the quiet period. Values below zero are ignored.
func WithDebounce(d time.Duration) Option {
	return func(g *Group) {
		if d >= 0 {
			g.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log Logger) Option {
	return func(g *Group) {
		if log != nil {
			g.log = log
		}
	}
}

// WithIgnore drops events for paths whose base name matches fn.
func WithIgnore(fn func(name string) bool) Option {
	return func(g *Group) {
		g.ignore = fn
	}
}

// Group runs one recursive watcher per root.
type Group struct {
	debounce time.Duration
	log      Logger
	ignore   func(name string) bool

	mu       sync.Mutex // serializes callbacks
	watchers []*watcher
}

type watcher struct {
	root string
	fn   Func
	fsw  *fsnotify.Watcher
}

// NewGroup creates an empty Group.
func NewGroup(opts ...Option) *Group {
	g := &Group{debounce: DefaultDebounce, log: nopLogger{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Add starts watching root and every directory below it. fn runs after
// changes under root.
func (g *Group) Add(root string, fn Func) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &watcher{root: root, fn: fn, fsw: fsw}
	if err := g.addTree(w, root); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	g.watchers = append(g.watchers, w)
	return nil
}

// Run processes events until ctx is canceled, then closes every watcher.
func (g *Group) Run(ctx context.Context) error {
	if len(g.watchers) == 0 {
		return errors.New("nothing to watch")
	}
	var wg sync.WaitGroup
	for _, w := range g.watchers {
		wg.Add(1)
		go func(w *watcher) {
			defer wg.Done()
			g.loop(ctx, w)
		}(w)
	}
	wg.Wait()
	return g.Close()
}

// Close releases all watchers.
func (g *Group) Close() error {
	var errs []error
	for _, w := range g.watchers {
		if err := w.fsw.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *Group) addTree(w *watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			g.log.Warn("cannot watch %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && g.ignored(path) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if path == dir {
				return err
			}
			g.log.Warn("cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func (g *Group) ignored(path string) bool {
	return g.ignore != nil && g.ignore(filepath.Base(path))
}

func (g *Group) loop(ctx context.Context, w *watcher) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Attribute-only changes include our own timestamp fixes.
			if event.Op == fsnotify.Chmod || g.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
					if err := g.addTree(w, event.Name); err != nil {
						g.log.Warn("cannot watch %s: %v", event.Name, err)
					}
				}
			}
			g.log.Verbose("%s %s", event.Op, event.Name)
			pending[event.Name] = struct{}{}
			timer.Reset(g.debounce)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			g.dispatch(ctx, w, changed)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			g.log.Warn("watcher error on %s: %v", w.root, err)
		}
	}
}

func (g *Group) dispatch(ctx context.Context, w *watcher, changed []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if err := w.fn(ctx, w.root, changed); err != nil {
		g.log.Warn("sync after change in %s failed: %v", w.root, err)
	}
}
