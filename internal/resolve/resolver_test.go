package resolve

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelscutari/fsbatch/internal/entry"
)

type fakeFS struct {
	LstatFunc    func(path string) (os.FileInfo, error)
	RenameFunc   func(oldpath, newpath string) error
	CopyFileFunc func(src, dst string, exclusive bool) (int64, error)
	MkdirAllFunc func(path string, perm os.FileMode) error
}

func (f *fakeFS) Lstat(path string) (os.FileInfo, error) {
	if f.LstatFunc != nil {
		return f.LstatFunc(path)
	}
	return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
}

func (f *fakeFS) Rename(oldpath, newpath string) error {
	if f.RenameFunc != nil {
		return f.RenameFunc(oldpath, newpath)
	}
	return nil
}

func (f *fakeFS) CopyFile(src, dst string, exclusive bool) (int64, error) {
	if f.CopyFileFunc != nil {
		return f.CopyFileFunc(src, dst, exclusive)
	}
	return 0, nil
}

func (f *fakeFS) MkdirAll(path string, perm os.FileMode) error {
	if f.MkdirAllFunc != nil {
		return f.MkdirAllFunc(path, perm)
	}
	return nil
}

type stubInfo struct{ name string }

func (s stubInfo) Name() string       { return s.name }
func (s stubInfo) Size() int64        { return 0 }
func (s stubInfo) Mode() os.FileMode  { return 0o644 }
func (s stubInfo) ModTime() time.Time { return time.Time{} }
func (s stubInfo) IsDir() bool        { return false }
func (s stubInfo) Sys() any           { return nil }

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
}

func TestMergerPicksFirstFreeUnderscoreName(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	touch(t, filepath.Join(src, "a.txt"))
	touch(t, filepath.Join(dst, "a.txt"))

	m := NewMerger(OSFileSystem{})

	res, err := m.Copy(filepath.Join(src, "a.txt"), dst, "a", ".txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "a_1.txt"), res.Target)
	assert.Equal(t, 2, res.Probes)

	res, err = m.Copy(filepath.Join(src, "a.txt"), dst, "a", ".txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "a_2.txt"), res.Target)

	data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", string(data), "existing file must not be replaced")
}

func TestMergerFillsGaps(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	touch(t, filepath.Join(src, "a.txt"))
	touch(t, filepath.Join(dst, "a.txt"))
	touch(t, filepath.Join(dst, "a_2.txt"))

	res, err := NewMerger(OSFileSystem{}).Copy(filepath.Join(src, "a.txt"), dst, "a", ".txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "a_1.txt"), res.Target)
}

func TestMergerCreatesDestinationDir(t *testing.T) {
	src := t.TempDir()
	touch(t, filepath.Join(src, "a.txt"))
	dst := filepath.Join(t.TempDir(), "nested", "dir")

	res, err := NewMerger(OSFileSystem{}).Copy(filepath.Join(src, "a.txt"), dst, "a", ".txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "a.txt"), res.Target)
	assert.Equal(t, int64(len("a.txt")), res.Bytes)
}

func TestRenamerProbesWithCounter(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "x.txt"))
	touch(t, filepath.Join(dir, "d.txt"))
	touch(t, filepath.Join(dir, "dv2.txt"))
	touch(t, filepath.Join(dir, "dv5.txt"))

	var probed []string
	r, err := NewRenamer(OSFileSystem{}, Counter{Initial: 2, Step: 3, Prefix: "v"}, WithTrace(func(c string) {
		probed = append(probed, filepath.Base(c))
	}))
	require.NoError(t, err)

	res, err := r.Rename(filepath.Join(dir, "x.txt"), dir, "d", ".txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"d.txt", "dv2.txt", "dv5.txt", "dv8.txt"}, probed)
	assert.Equal(t, filepath.Join(dir, "dv8.txt"), res.Target)
	assert.Equal(t, 4, res.Probes)
	assert.NoFileExists(t, filepath.Join(dir, "x.txt"))
	assert.FileExists(t, filepath.Join(dir, "dv8.txt"))
}

func TestRenamerBareNameFirst(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "x.txt"))

	r, err := NewRenamer(OSFileSystem{}, RenameCounter())
	require.NoError(t, err)

	res, err := r.Rename(filepath.Join(dir, "x.txt"), dir, "photos", ".txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "photos.txt"), res.Target)
	assert.Equal(t, 1, res.Probes)
	assert.False(t, res.Unchanged)
}

func TestRenamerUnchangedWhenAlreadyNamed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "photos")
	touch(t, filepath.Join(dir, "photos.jpg"))

	r, err := NewRenamer(OSFileSystem{}, RenameCounter())
	require.NoError(t, err)

	res, err := r.Rename(filepath.Join(dir, "photos.jpg"), dir, "photos", ".jpg")
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.FileExists(t, filepath.Join(dir, "photos.jpg"))
}

func TestRenamerCaseOnlyRenameWithUncleanSource(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "A.txt"))
	// A second link makes the lower-case name exist as the same file, as it
	// would on a case-insensitive filesystem.
	if err := os.Link(filepath.Join(dir, "A.txt"), filepath.Join(dir, "a.txt")); err != nil {
		t.Skipf("hard links unsupported: %v", err)
	}

	r, err := NewRenamer(OSFileSystem{}, RenameCounter())
	require.NoError(t, err)

	source := dir + string(filepath.Separator) + "." + string(filepath.Separator) + "A.txt"
	res, err := r.Rename(source, dir, "a", ".txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.txt"), res.Target)
	assert.Equal(t, 1, res.Probes)
	assert.NoFileExists(t, filepath.Join(dir, "a2.txt"))
}

func TestRenamerCounterOverflowExhausts(t *testing.T) {
	fsys := &fakeFS{
		LstatFunc: func(path string) (os.FileInfo, error) {
			return stubInfo{name: filepath.Base(path)}, nil
		},
	}
	var seen []string
	r, err := NewRenamer(fsys, Counter{Initial: math.MaxInt - 1, Step: 1},
		WithTrace(func(c string) { seen = append(seen, c) }))
	require.NoError(t, err)

	res, err := r.Rename("d/src.txt", "d", "n", ".txt")
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, res.Probes)
	assert.Equal(t, []string{
		filepath.Join("d", "n.txt"),
		filepath.Join("d", "n"+strconv.Itoa(math.MaxInt-1)+".txt"),
		filepath.Join("d", "n"+strconv.Itoa(math.MaxInt)+".txt"),
	}, seen)
}

func TestOSCopyFileOntoItself(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.jpg")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	_, err := OSFileSystem{}.CopyFile(path, path, false)
	require.ErrorIs(t, err, ErrSameFile)

	link := filepath.Join(dir, "link.jpg")
	if err := os.Link(path, link); err == nil {
		_, err = OSFileSystem{}.CopyFile(path, link, false)
		require.ErrorIs(t, err, ErrSameFile)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestPlanCopyOntoItself(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.jpg")
	touch(t, path)

	_, err := NewPlanFileSystem(OSFileSystem{}).CopyFile(path, filepath.Join(dir, ".", "0.jpg"), false)
	require.ErrorIs(t, err, ErrSameFile)
}

func TestRenamerSurfacesPermissionError(t *testing.T) {
	fsys := &fakeFS{
		LstatFunc: func(path string) (os.FileInfo, error) {
			if path == "/dir/x.txt" {
				return stubInfo{name: "x.txt"}, nil
			}
			return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
		},
		RenameFunc: func(oldpath, newpath string) error {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrPermission}
		},
	}

	var probes int
	r, err := NewRenamer(fsys, RenameCounter(), WithTrace(func(string) { probes++ }))
	require.NoError(t, err)

	_, err = r.Rename("/dir/x.txt", "/dir", "dir", ".txt")
	require.Error(t, err)

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, "rename", commitErr.Op)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, 1, probes, "a commit failure must not continue probing")
}

func TestRenamerSurfacesStatError(t *testing.T) {
	fsys := &fakeFS{
		LstatFunc: func(path string) (os.FileInfo, error) {
			if path == "/dir/x.txt" {
				return stubInfo{name: "x.txt"}, nil
			}
			return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrPermission}
		},
	}
	r, err := NewRenamer(fsys, RenameCounter())
	require.NoError(t, err)

	_, err = r.Rename("/dir/x.txt", "/dir", "dir", ".txt")
	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, "stat", commitErr.Op)
}

func TestRenamerExhausted(t *testing.T) {
	fsys := &fakeFS{
		LstatFunc: func(path string) (os.FileInfo, error) {
			return stubInfo{name: filepath.Base(path)}, nil
		},
		RenameFunc: func(oldpath, newpath string) error {
			t.Fatalf("unexpected rename to %s", newpath)
			return nil
		},
	}
	var probes int
	r, err := NewRenamer(fsys, RenameCounter(), WithMaxProbes(3), WithTrace(func(string) { probes++ }))
	require.NoError(t, err)

	_, err = r.Rename("/dir/x.txt", "/dir", "dir", ".txt")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 4, probes)
}

func TestZeroStepRejected(t *testing.T) {
	_, err := NewRenamer(OSFileSystem{}, Counter{Initial: 1, Step: 0})
	assert.ErrorIs(t, err, ErrZeroStep)

	_, err = NextFree(OSFileSystem{}, t.TempDir(), "a", ".txt", Counter{Step: 0})
	assert.ErrorIs(t, err, ErrZeroStep)
}

func TestNextFreeDoesNotCommit(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.txt"))
	touch(t, filepath.Join(dir, "a_1.txt"))

	got, err := NextFree(OSFileSystem{}, dir, "a", ".txt", MergeCounter())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a_2.txt"), got)
	assert.NoFileExists(t, got)

	got, err = NextFree(OSFileSystem{}, dir, "b", ".txt", MergeCounter())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.txt"), got)
}

func TestSequencerOverride(t *testing.T) {
	seq := NewSequencer(Counter{Initial: 0, Step: 1, Prefix: "img_"}, true)

	inputs := []string{"/src/zeta.ext", "/src/alpha.ext", "/src/beta.ext"}
	var got []string
	for _, in := range inputs {
		got = append(got, seq.Next("/dst", entry.NewPathEntry(in)))
	}
	assert.Equal(t, []string{
		filepath.Join("/dst", "img_0.ext"),
		filepath.Join("/dst", "img_1.ext"),
		filepath.Join("/dst", "img_2.ext"),
	}, got)
	assert.Equal(t, 3, seq.Value())
}

func TestSequencerKeepName(t *testing.T) {
	seq := NewSequencer(Counter{Initial: 10, Step: 5, Suffix: "x"}, false)

	assert.Equal(t, filepath.Join("/dst", "a10x.jpg"), seq.Next("/dst", entry.NewPathEntry("/s/a.jpg")))
	assert.Equal(t, filepath.Join("/dst", "b15x.jpg"), seq.Next("/dst", entry.NewPathEntry("/s/b.jpg")))
	assert.Equal(t, 20, seq.Value())
}

func TestPlanFileSystemLeavesDiskUntouched(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "trip")
	touch(t, filepath.Join(dir, "a.jpg"))
	touch(t, filepath.Join(dir, "b.jpg"))

	plan := NewPlanFileSystem(OSFileSystem{})
	r, err := NewRenamer(plan, RenameCounter())
	require.NoError(t, err)

	first, err := r.Rename(filepath.Join(dir, "a.jpg"), dir, "trip", ".jpg")
	require.NoError(t, err)
	second, err := r.Rename(filepath.Join(dir, "b.jpg"), dir, "trip", ".jpg")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "trip.jpg"), first.Target)
	assert.Equal(t, filepath.Join(dir, "trip2.jpg"), second.Target)

	assert.FileExists(t, filepath.Join(dir, "a.jpg"))
	assert.FileExists(t, filepath.Join(dir, "b.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "trip.jpg"))

	_, err = plan.Lstat(filepath.Join(dir, "a.jpg"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestPlanFileSystemMergeCopies(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	touch(t, filepath.Join(src, "a.txt"))
	touch(t, filepath.Join(dst, "a.txt"))

	m := NewMerger(NewPlanFileSystem(OSFileSystem{}))
	first, err := m.Copy(filepath.Join(src, "a.txt"), dst, "a", ".txt")
	require.NoError(t, err)
	second, err := m.Copy(filepath.Join(src, "a.txt"), dst, "a", ".txt")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dst, "a_1.txt"), first.Target)
	assert.Equal(t, filepath.Join(dst, "a_2.txt"), second.Target)
	assert.NoFileExists(t, first.Target)
}
