// Package resolve finds conflict-free destination paths for files being
// renamed, merged or copied with sequential numbering.
//
// Three strategies are provided:
//
//   - Renamer (rename-style): try the bare name, then {base}{prefix}{n}{suffix}{ext}
//     with a configurable counter; the rename is committed on the first free slot.
//   - Merger (merge-style): try the bare name, then {base}_{n}{ext} for n = 1, 2, ...;
//     the copy is committed with exclusive create.
//   - Sequencer (numbering copy): no probing; names are computed from a running
//     counter and collisions are the caller's problem.
//
// Existence is checked before each commit. Any other failure is returned as a
// *CommitError and ends the probe loop. Probing gives up with ErrExhausted
// after MaxProbes counter candidates. None of this is atomic with respect to
// other writers.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/michaelscutari/fsbatch/internal/entry"
)

// DefaultMaxProbes bounds the counter candidates tried for one file.
const DefaultMaxProbes = 1 << 20

// Result describes a committed resolution.
type Result struct {
	Source    string
	Target    string
	Probes    int // candidates examined, including the bare name
	Unchanged bool
	Bytes     int64
}

// Option configures a resolver.
type Option func(*prober)

// WithMaxProbes overrides DefaultMaxProbes. Values below 1 are ignored.
func WithMaxProbes(n int) Option {
	return func(p *prober) {
		if n > 0 {
			p.maxProbes = n
		}
	}
}

// WithTrace registers a callback invoked with every candidate path examined.
func WithTrace(fn func(candidate string)) Option {
	return func(p *prober) {
		p.trace = fn
	}
}

type prober struct {
	maxProbes int
	trace     func(string)
}

func newProber(opts []Option) prober {
	p := prober{maxProbes: DefaultMaxProbes}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// claimFunc attempts to commit at target. claimed=false means the name is
// taken and probing continues.
type claimFunc func(target string) (claimed bool, err error)

func (p prober) probe(dir, base, ext string, c Counter, claim claimFunc) (string, int, error) {
	probes := 0
	for i := -1; i < p.maxProbes; i++ {
		target, ok := c.candidate(dir, base, ext, i)
		if !ok {
			return "", probes, fmt.Errorf("%s in %s: counter overflows after %d candidates: %w", base+ext, dir, i, ErrExhausted)
		}
		probes++
		if p.trace != nil {
			p.trace(target)
		}
		claimed, err := claim(target)
		if err != nil {
			return target, probes, err
		}
		if claimed {
			return target, probes, nil
		}
	}
	return "", probes, fmt.Errorf("%s in %s after %d candidates: %w", base+ext, dir, p.maxProbes, ErrExhausted)
}

// Renamer moves a file to the first free name in its target directory.
type Renamer struct {
	fs      FileSystem
	counter Counter
	prober  prober
}

// NewRenamer creates a rename-style resolver.
func NewRenamer(fsys FileSystem, counter Counter, opts ...Option) (*Renamer, error) {
	if err := counter.validateProbing(); err != nil {
		return nil, err
	}
	return &Renamer{fs: fsys, counter: counter, prober: newProber(opts)}, nil
}

// Rename moves source to dir/base+ext, or to the first free counter variant.
// If source already has the bare name the result is Unchanged and nothing
// moves.
func (r *Renamer) Rename(source, dir, base, ext string) (Result, error) {
	res := Result{Source: source}
	srcInfo, err := r.fs.Lstat(source)
	if err != nil {
		return res, &CommitError{Op: "rename", Source: source, Err: err}
	}

	cleanSource := filepath.Clean(source)
	target, probes, err := r.prober.probe(dir, base, ext, r.counter, func(target string) (bool, error) {
		if filepath.Clean(target) == cleanSource {
			res.Unchanged = true
			return true, nil
		}
		info, taken, err := exists(r.fs, target)
		if err != nil {
			return false, &CommitError{Op: "stat", Source: source, Target: target, Err: err}
		}
		// A case-only rename on a case-insensitive filesystem sees itself.
		if taken && !(strings.EqualFold(filepath.Clean(target), cleanSource) && os.SameFile(srcInfo, info)) {
			return false, nil
		}
		if err := r.fs.Rename(source, target); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return false, nil
			}
			return false, &CommitError{Op: "rename", Source: source, Target: target, Err: err}
		}
		return true, nil
	})
	res.Target = target
	res.Probes = probes
	return res, err
}

// Merger copies a file next to an existing one without replacing it.
type Merger struct {
	fs     FileSystem
	prober prober
}

// NewMerger creates a merge-style resolver using MergeCounter.
func NewMerger(fsys FileSystem, opts ...Option) *Merger {
	return &Merger{fs: fsys, prober: newProber(opts)}
}

// Copy copies source to dir/base+ext, or to the first free base_N+ext.
func (m *Merger) Copy(source, dir, base, ext string) (Result, error) {
	res := Result{Source: source}
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return res, &CommitError{Op: "copy", Source: source, Target: dir, Err: err}
	}

	target, probes, err := m.prober.probe(dir, base, ext, MergeCounter(), func(target string) (bool, error) {
		_, taken, err := exists(m.fs, target)
		if err != nil {
			return false, &CommitError{Op: "stat", Source: source, Target: target, Err: err}
		}
		if taken {
			return false, nil
		}
		n, err := m.fs.CopyFile(source, target, true)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				return false, nil
			}
			return false, &CommitError{Op: "copy", Source: source, Target: target, Err: err}
		}
		res.Bytes = n
		return true, nil
	})
	res.Target = target
	res.Probes = probes
	return res, err
}

// NextFree returns the first unoccupied candidate for base/ext in dir
// without committing anything.
func NextFree(fsys FileSystem, dir, base, ext string, c Counter, opts ...Option) (string, error) {
	if err := c.validateProbing(); err != nil {
		return "", err
	}
	p := newProber(opts)
	target, _, err := p.probe(dir, base, ext, c, func(target string) (bool, error) {
		_, taken, err := exists(fsys, target)
		if err != nil {
			return false, &CommitError{Op: "stat", Target: target, Err: err}
		}
		return !taken, nil
	})
	return target, err
}

// Sequencer computes sequential-numbering destination names. It does not
// look at the filesystem.
type Sequencer struct {
	counter  Counter
	override bool
	i        int
}

// NewSequencer creates a Sequencer. With override the original name is
// dropped and only {prefix}{n}{suffix}{ext} remains.
func NewSequencer(counter Counter, override bool) *Sequencer {
	return &Sequencer{counter: counter, override: override}
}

// Next returns the destination for e and advances the counter.
func (s *Sequencer) Next(destDir string, e entry.PathEntry) string {
	label := s.counter.Label(s.counter.At(s.i))
	s.i++
	name := label
	if !s.override {
		name = e.Name + label
	}
	return filepath.Join(destDir, name+e.Ext)
}

// Value returns the counter value the next call to Next will use.
func (s *Sequencer) Value() int {
	return s.counter.At(s.i)
}
