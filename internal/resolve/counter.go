package resolve

import (
	"math"
	"path/filepath"
	"strconv"
)

// Counter defines the candidate suffix sequence {Prefix}{n}{Suffix} for
// n = Initial, Initial+Step, Initial+2*Step, ...
// It is a value type; resolvers copy it on construction.
type Counter struct {
	Initial int
	Step    int
	Prefix  string
	Suffix  string
}

// CopyCounter returns the sequential-copy defaults (start at 0).
func CopyCounter() Counter {
	return Counter{Initial: 0, Step: 1}
}

// RenameCounter returns the rename defaults (start at 2, so the second file
// named after a directory becomes "<dir>2").
func RenameCounter() Counter {
	return Counter{Initial: 2, Step: 1}
}

// MergeCounter is the fixed sequence used when merging: _1, _2, _3, ...
func MergeCounter() Counter {
	return Counter{Initial: 1, Step: 1, Prefix: "_"}
}

// At returns the counter value after i steps, clamped to the int range.
func (c Counter) At(i int) int {
	if v, ok := c.checkedAt(i); ok {
		return v
	}
	if (c.Step > 0) == (i > 0) {
		return math.MaxInt
	}
	return math.MinInt
}

// checkedAt is At without clamping. ok is false when the value overflows.
func (c Counter) checkedAt(i int) (int, bool) {
	if i == 0 || c.Step == 0 {
		return c.Initial, true
	}
	p := i * c.Step
	if p/c.Step != i {
		return 0, false
	}
	v := c.Initial + p
	if (p > 0 && v < c.Initial) || (p < 0 && v > c.Initial) {
		return 0, false
	}
	return v, true
}

// Label renders the counter suffix for value n.
func (c Counter) Label(n int) string {
	return c.Prefix + strconv.Itoa(n) + c.Suffix
}

// Candidate returns the i-th probed path for base/ext inside dir.
// i < 0 means the bare name with no counter.
func (c Counter) Candidate(dir, base, ext string, i int) string {
	if i < 0 {
		return filepath.Join(dir, base+ext)
	}
	return filepath.Join(dir, base+c.Label(c.At(i))+ext)
}

// candidate is Candidate that reports a counter overflow instead of clamping.
func (c Counter) candidate(dir, base, ext string, i int) (string, bool) {
	if i < 0 {
		return filepath.Join(dir, base+ext), true
	}
	n, ok := c.checkedAt(i)
	if !ok {
		return "", false
	}
	return filepath.Join(dir, base+c.Label(n)+ext), true
}

// validateProbing rejects counters that would probe the same candidate
// forever.
func (c Counter) validateProbing() error {
	if c.Step == 0 {
		return ErrZeroStep
	}
	return nil
}
