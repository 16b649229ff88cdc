package journal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelscutari/fsbatch/internal/entry"
)

func openManager(t *testing.T, dir string, retention int) *Manager {
	t.Helper()
	mgr := NewManager(dir, retention)
	require.NoError(t, mgr.Open())
	return mgr
}

func TestRunRecordsOperations(t *testing.T) {
	dir := t.TempDir()
	mgr := openManager(t, dir, 0)

	run, err := mgr.Begin("copy", []string{"dest", "-s", "src"})
	require.NoError(t, err)
	run.Record(entry.Operation{Kind: entry.OpCopy, Source: "src/b", Target: "dest/1", Size: 10, Status: entry.StatusDone})
	run.Record(entry.Operation{Kind: entry.OpCopy, Source: "src/a", Target: "dest/0", Size: 30, Status: entry.StatusDone})
	run.Record(entry.Operation{Kind: entry.OpCopy, Source: "src/c", Target: "dest/2", Status: entry.StatusFailed, Message: "boom"})

	meta, err := run.Finish(errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, entry.RunFailed, meta.Status)
	assert.Equal(t, int64(3), meta.OpCount)
	assert.Equal(t, int64(1), meta.ErrorCount)
	assert.Equal(t, int64(40), meta.Bytes)
	require.NoError(t, mgr.Close())

	db, err := OpenReader(dir)
	require.NoError(t, err)
	defer db.Close()

	got, err := GetRun(db, run.ID()[:8])
	require.NoError(t, err)
	assert.Equal(t, run.ID(), got.ID)
	assert.Equal(t, "copy", got.Command)
	assert.Equal(t, "dest -s src", got.Args)
	assert.Equal(t, entry.RunFailed, got.Status)
	assert.Equal(t, "boom", got.Message)
	assert.False(t, got.EndTime.IsZero())

	ops, err := LoadOperations(db, run.ID(), "seq", 0)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, int64(1), ops[0].Seq)
	assert.Equal(t, "src/b", ops[0].Source)
	assert.Equal(t, entry.OpCopy, ops[0].Kind)

	ops, err = LoadOperations(db, run.ID(), "size", 1)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "src/a", ops[0].Source)

	counts, err := CountByStatus(db, run.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[entry.StatusDone])
	assert.Equal(t, int64(1), counts[entry.StatusFailed])
}

func TestFinishStatus(t *testing.T) {
	mgr := openManager(t, t.TempDir(), 0)
	defer mgr.Close()

	run, err := mgr.Begin("rename", nil)
	require.NoError(t, err)
	meta, err := run.Finish(nil)
	require.NoError(t, err)
	assert.Equal(t, entry.RunOK, meta.Status)

	run, err = mgr.Begin("rename", nil)
	require.NoError(t, err)
	meta, err = run.Finish(fmt.Errorf("stopped: %w", context.Canceled))
	require.NoError(t, err)
	assert.Equal(t, entry.RunCanceled, meta.Status)
}

func TestRecordAfterFinishIsDropped(t *testing.T) {
	mgr := openManager(t, t.TempDir(), 0)
	defer mgr.Close()

	run, err := mgr.Begin("copy", nil)
	require.NoError(t, err)
	_, err = run.Finish(nil)
	require.NoError(t, err)
	run.Record(entry.Operation{Kind: entry.OpCopy, Status: entry.StatusDone})
	assert.Equal(t, int64(0), run.Progress().Ops)
}

func TestRetentionPrunesOldestRuns(t *testing.T) {
	dir := t.TempDir()
	mgr := openManager(t, dir, 2)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := mgr.Begin("copy", []string{fmt.Sprint(i)})
		require.NoError(t, err)
		run.Record(entry.Operation{Kind: entry.OpCopy, Source: fmt.Sprint(i), Status: entry.StatusDone})
		_, err = run.Finish(nil)
		require.NoError(t, err)
		ids = append(ids, run.ID())
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, mgr.Close())

	db, err := OpenReader(dir)
	require.NoError(t, err)
	defer db.Close()

	runs, err := ListRuns(db, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	ops, err := LoadOperations(db, ids[0], "", 0)
	require.NoError(t, err)
	assert.Empty(t, ops)

	_, err = GetRun(db, ids[0])
	assert.ErrorIs(t, err, ErrRunNotFound)

	latest, err := GetRun(db, "latest")
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.ID)
}

func TestLockRejectsSecondManager(t *testing.T) {
	dir := t.TempDir()
	first := openManager(t, dir, 0)

	second := NewManager(dir, 0)
	assert.ErrorIs(t, second.Open(), ErrLocked)

	require.NoError(t, first.Close())
	require.NoError(t, second.Open())
	require.NoError(t, second.Close())
}

func TestInterruptedRunsAreMarkedFailed(t *testing.T) {
	dir := t.TempDir()
	mgr := openManager(t, dir, 0)
	run, err := mgr.Begin("sync", nil)
	require.NoError(t, err)
	require.NoError(t, run.writer.Close())
	require.NoError(t, mgr.Close())

	mgr = openManager(t, dir, 0)
	require.NoError(t, mgr.Close())

	db, err := OpenReader(dir)
	require.NoError(t, err)
	defer db.Close()
	got, err := GetRun(db, run.ID())
	require.NoError(t, err)
	assert.Equal(t, entry.RunFailed, got.Status)
	assert.Equal(t, "interrupted", got.Message)
}

func TestGetRunAmbiguousPrefix(t *testing.T) {
	mgr := openManager(t, t.TempDir(), 0)
	defer mgr.Close()
	db := mgr.DB()

	for _, id := range []string{"abc-1", "abc-2"} {
		_, err := db.Exec(`INSERT INTO runs (id, command, args, start_time, status) VALUES (?, 'copy', '', 1, 'ok')`, id)
		require.NoError(t, err)
	}

	_, err := GetRun(db, "abc")
	assert.ErrorIs(t, err, ErrAmbiguousRun)
	got, err := GetRun(db, "abc-2")
	require.NoError(t, err)
	assert.Equal(t, "abc-2", got.ID)
	_, err = GetRun(db, "zzz")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestOpenReaderMissingJournal(t *testing.T) {
	_, err := OpenReader(t.TempDir())
	assert.Error(t, err)
}
