package resolve

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PlanFileSystem is a dry-run FileSystem. Reads fall through to a base
// FileSystem; renames and copies only update an in-memory overlay, so a
// resolver run against it plans exactly the names a real run would pick.
type PlanFileSystem struct {
	base FileSystem

	mu      sync.Mutex
	overlay map[string]*plannedInfo // nil value means removed
}

// NewPlanFileSystem wraps base for dry runs.
func NewPlanFileSystem(base FileSystem) *PlanFileSystem {
	return &PlanFileSystem{base: base, overlay: make(map[string]*plannedInfo)}
}

func (p *PlanFileSystem) Lstat(path string) (os.FileInfo, error) {
	p.mu.Lock()
	info, ok := p.overlay[filepath.Clean(path)]
	p.mu.Unlock()
	if ok {
		if info == nil {
			return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
		}
		return info, nil
	}
	return p.base.Lstat(path)
}

func (p *PlanFileSystem) Rename(oldpath, newpath string) error {
	info, err := p.Lstat(oldpath)
	if err != nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrNotExist}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay[filepath.Clean(oldpath)] = nil
	p.overlay[filepath.Clean(newpath)] = &plannedInfo{name: filepath.Base(newpath), size: info.Size(), mode: info.Mode()}
	return nil
}

func (p *PlanFileSystem) CopyFile(src, dst string, exclusive bool) (int64, error) {
	info, err := p.Lstat(src)
	if err != nil {
		return 0, err
	}
	if !exclusive && p.sameFile(src, dst) {
		return 0, &fs.PathError{Op: "copy", Path: dst, Err: ErrSameFile}
	}
	if exclusive {
		if _, err := p.Lstat(dst); err == nil {
			return 0, &fs.PathError{Op: "open", Path: dst, Err: fs.ErrExist}
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay[filepath.Clean(dst)] = &plannedInfo{name: filepath.Base(dst), size: info.Size(), mode: info.Mode()}
	return info.Size(), nil
}

// sameFile reports whether src and dst name the same file, as planned or on
// disk.
func (p *PlanFileSystem) sameFile(src, dst string) bool {
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	if src == dst {
		return true
	}
	p.mu.Lock()
	_, srcPlanned := p.overlay[src]
	_, dstPlanned := p.overlay[dst]
	p.mu.Unlock()
	if srcPlanned || dstPlanned {
		return false
	}
	a, err := p.base.Lstat(src)
	if err != nil {
		return false
	}
	b, err := p.base.Lstat(dst)
	return err == nil && os.SameFile(a, b)
}

func (p *PlanFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if _, err := p.Lstat(path); err == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overlay[filepath.Clean(path)] = &plannedInfo{name: filepath.Base(path), mode: fs.ModeDir | perm}
	return nil
}

type plannedInfo struct {
	name string
	size int64
	mode os.FileMode
}

func (i *plannedInfo) Name() string       { return i.name }
func (i *plannedInfo) Size() int64        { return i.size }
func (i *plannedInfo) Mode() os.FileMode  { return i.mode }
func (i *plannedInfo) ModTime() time.Time { return time.Time{} }
func (i *plannedInfo) IsDir() bool        { return i.mode.IsDir() }
func (i *plannedInfo) Sys() any           { return nil }
