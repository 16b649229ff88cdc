// Package sortkey derives numeric ordering keys from file and directory
// names so that "img_2" sorts before "img_10" regardless of padding.
package sortkey

import (
	"math/big"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/michaelscutari/fsbatch/internal/pathutil"
)

// Options controls which characters are removed before parsing.
type Options struct {
	// StripAlpha removes all letters.
	StripAlpha bool
	// StripSpecial removes everything that is not a letter or a number.
	// Applied after StripAlpha.
	StripSpecial bool
}

// Both strips letters and special characters. Path sorting always uses it.
var Both = Options{StripAlpha: true, StripSpecial: true}

// Key is a numeric sort key or the not-a-number sentinel.
// The zero value is the sentinel.
type Key struct {
	digits  string // ASCII digits, leading zeros trimmed
	numeric bool
}

// NaN returns the not-a-number sentinel.
func NaN() Key { return Key{} }

// Parse derives a Key from name.
func Parse(name string, opts Options) Key {
	s := name
	if opts.StripAlpha {
		s = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) {
				return -1
			}
			return r
		}, s)
	}
	if opts.StripSpecial {
		s = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsNumber(r) {
				return r
			}
			return -1
		}, s)
	}

	s, ok := asciiDigits(s)
	if !ok {
		return NaN()
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		s = "0"
	}
	return Key{digits: s, numeric: true}
}

// asciiDigits maps every decimal digit of s, from any script, to its ASCII
// form. ok is false if s is empty or holds anything else.
func asciiDigits(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return "", false
		}
		b.WriteByte(byte('0' + digitValue(r)))
	}
	return b.String(), true
}

// digitValue returns the value of a decimal digit. Unicode assigns each
// script's digits a contiguous run starting at zero, and adjacent runs are
// whole sets of ten.
func digitValue(r rune) int {
	if r >= '0' && r <= '9' {
		return int(r - '0')
	}
	n := 0
	for unicode.IsDigit(r - rune(n) - 1) {
		n++
	}
	return n % 10
}

// IsNaN reports whether k is the sentinel.
func (k Key) IsNaN() bool { return !k.numeric }

// Uint64 returns the key value. ok is false for the sentinel or when the
// value does not fit in a uint64.
func (k Key) Uint64() (v uint64, ok bool) {
	if !k.numeric {
		return 0, false
	}
	v, err := strconv.ParseUint(k.digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Big returns the exact key value, or nil for the sentinel.
func (k Key) Big() *big.Int {
	if !k.numeric {
		return nil
	}
	v, _ := new(big.Int).SetString(k.digits, 10)
	return v
}

func (k Key) String() string {
	if !k.numeric {
		return "NaN"
	}
	return k.digits
}

// Compare orders numeric keys by value and places the sentinel after every
// numeric key. Two sentinels compare equal.
func Compare(a, b Key) int {
	switch {
	case !a.numeric && !b.numeric:
		return 0
	case !a.numeric:
		return 1
	case !b.numeric:
		return -1
	}
	if len(a.digits) != len(b.digits) {
		if len(a.digits) < len(b.digits) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.digits, b.digits)
}

// Mode selects which part of a path the key is derived from.
type Mode int

const (
	// Files keys on the base name without extension.
	Files Mode = iota
	// Dirs keys on the final path segment.
	Dirs
)

// ForPath derives the key of a path in the given mode.
func ForPath(path string, mode Mode) Key {
	var name string
	if mode == Dirs {
		name = filepath.Base(pathutil.Normalize(path))
	} else {
		_, name, _ = pathutil.Split(path)
	}
	return Parse(name, Both)
}

// SortPaths returns a copy of paths stably sorted by key. Paths whose
// names hold no number keep their relative order at the end.
func SortPaths(paths []string, mode Mode) []string {
	type keyed struct {
		path string
		key  Key
	}
	items := make([]keyed, len(paths))
	for i, p := range paths {
		items[i] = keyed{path: p, key: ForPath(p, mode)}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		return Compare(a.key, b.key)
	})

	sorted := make([]string, len(items))
	for i, it := range items {
		sorted[i] = it.path
	}
	return sorted
}
