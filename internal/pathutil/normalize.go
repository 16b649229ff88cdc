package pathutil

import (
	"path/filepath"
	"strings"
)

// Normalize returns a canonical filesystem path string.
// It removes trailing slashes, collapses "." and "..", and
// preserves relative paths when provided.
func Normalize(path string) string {
	if path == "" {
		return path
	}
	return filepath.Clean(path)
}

// Split breaks a file path into its parent directory, base name without
// extension, and extension (with leading dot). Leading dots do not start an
// extension, so ".bashrc" has none.
func Split(path string) (dir, name, ext string) {
	dir = filepath.Dir(path)
	file := filepath.Base(path)
	trimmed := strings.TrimLeft(file, ".")
	ext = filepath.Ext(trimmed)
	name = strings.TrimSuffix(file, ext)
	return dir, name, ext
}

// ImmediateDir returns the last segment of a directory path, ignoring
// trailing separators.
func ImmediateDir(dir string) string {
	return filepath.Base(Normalize(dir))
}

// Rel returns path relative to root with no leading or trailing separators.
// Paths outside root are returned cleaned but otherwise unchanged.
func Rel(root, path string) string {
	rel, err := filepath.Rel(Normalize(root), Normalize(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Normalize(path)
	}
	return rel
}
