package resolve

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// FileSystem abstracts the filesystem calls the resolvers commit through.
type FileSystem interface {
	Lstat(path string) (os.FileInfo, error)
	Rename(oldpath, newpath string) error
	// CopyFile copies src to dst and returns the bytes written. With
	// exclusive set it fails with fs.ErrExist instead of replacing dst.
	CopyFile(src, dst string, exclusive bool) (int64, error)
	MkdirAll(path string, perm os.FileMode) error
}

// OSFileSystem implements FileSystem using the real OS filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Lstat(path string) (os.FileInfo, error) {
	return os.Lstat(path)
}

func (OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// CopyFile copies contents, permission bits and modification time. Copying
// a file onto itself fails with ErrSameFile and leaves it untouched.
func (OSFileSystem) CopyFile(src, dst string, exclusive bool) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, &fs.PathError{Op: "copy", Path: src, Err: errors.New("is a directory")}
	}

	if !exclusive {
		if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
			return 0, &fs.PathError{Op: "copy", Path: dst, Err: ErrSameFile}
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exclusive {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	out, err := os.OpenFile(dst, flags, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if exclusive {
			os.Remove(dst)
		}
		return n, err
	}

	// Best effort, matching a plain copy that keeps metadata.
	_ = os.Chmod(dst, info.Mode().Perm())
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return n, nil
}

// exists reports whether path is occupied. Errors other than "not exist"
// are returned so callers can fail fast.
func exists(fsys FileSystem, path string) (os.FileInfo, bool, error) {
	info, err := fsys.Lstat(path)
	if err == nil {
		return info, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	return nil, false, err
}
