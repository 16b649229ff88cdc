package scan

import "regexp"

// ScanOptions configures a directory listing.
type ScanOptions struct {
	// Deep descends into every subdirectory instead of listing only the
	// direct children of the root.
	Deep bool

	// Dirs lists directories instead of files.
	Dirs bool

	// ExcludePatterns are regular expressions for paths to skip. An excluded
	// directory is not descended into.
	ExcludePatterns []*regexp.Regexp

	// OnError is called for unreadable entries below the root. When nil the
	// first such error aborts the listing.
	OnError func(path string, err error)
}

// DefaultOptions returns a shallow file listing.
func DefaultOptions() *ScanOptions {
	return &ScanOptions{}
}

// WithDeep sets recursive traversal.
func (o *ScanOptions) WithDeep(deep bool) *ScanOptions {
	o.Deep = deep
	return o
}

// WithDirs switches between listing files and directories.
func (o *ScanOptions) WithDirs(dirs bool) *ScanOptions {
	o.Dirs = dirs
	return o
}

// WithErrorHandler sets OnError.
func (o *ScanOptions) WithErrorHandler(fn func(path string, err error)) *ScanOptions {
	o.OnError = fn
	return o
}

// AddExcludePattern adds a pattern to exclude.
func (o *ScanOptions) AddExcludePattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	o.ExcludePatterns = append(o.ExcludePatterns, re)
	return nil
}

// ShouldExclude checks if a path matches any exclude pattern.
func (o *ScanOptions) ShouldExclude(path string) bool {
	for _, re := range o.ExcludePatterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}
