// Package journal records fsbatch runs and their operations in a SQLite
// database and reads them back for history, info and the browser.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/michaelscutari/fsbatch/internal/entry"

	_ "modernc.org/sqlite"
)

const (
	dbName   = "journal.db"
	lockName = ".fsbatch.lock"

	// DefaultRetention is the number of runs kept.
	DefaultRetention = 200
)

// ErrLocked is returned when another process holds the journal lock.
var ErrLocked = errors.New("another fsbatch run is using the journal")

// DefaultDir returns the journal directory used when none is configured.
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "fsbatch")
}

// Manager owns the journal database for one process: it holds the lock,
// starts and finishes runs and prunes old ones.
type Manager struct {
	dir       string
	retention int
	lockFile  *os.File
	db        *sql.DB

	batchSize     int
	flushInterval time.Duration
}

// NewManager creates a manager for the journal in dir keeping at most
// retention runs (zero or less keeps everything).
func NewManager(dir string, retention int) *Manager {
	return &Manager{
		dir:           dir,
		retention:     retention,
		batchSize:     256,
		flushInterval: time.Second,
	}
}

// Path returns the database file path.
func (m *Manager) Path() string {
	return filepath.Join(m.dir, dbName)
}

// Open takes the journal lock and opens the database for writing. Runs left
// in the running state by a process that died are marked failed.
func (m *Manager) Open() error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	if err := m.acquireLock(); err != nil {
		return err
	}

	database, err := sql.Open("sqlite", m.Path())
	if err != nil {
		m.releaseLock()
		return fmt.Errorf("failed to open journal: %w", err)
	}
	// Pragmas are per connection and writes are serialized anyway.
	database.SetMaxOpenConns(1)
	if err := ApplyWritePragmas(database); err != nil {
		database.Close()
		m.releaseLock()
		return err
	}
	if err := InitSchema(database); err != nil {
		database.Close()
		m.releaseLock()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := database.Exec(
		`UPDATE runs SET status = ?, message = 'interrupted' WHERE status = ?`,
		string(entry.RunFailed), string(entry.RunRunning),
	); err != nil {
		database.Close()
		m.releaseLock()
		return fmt.Errorf("failed to recover stale runs: %w", err)
	}

	m.db = database
	return nil
}

// DB returns the open database handle.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Close prunes old runs, closes the database and releases the lock.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	var errs []error
	if err := m.prune(); err != nil {
		errs = append(errs, fmt.Errorf("failed to prune journal: %w", err))
	}
	if err := m.db.Close(); err != nil {
		errs = append(errs, err)
	}
	m.db = nil
	m.releaseLock()
	return errors.Join(errs...)
}

// Run is one journaled invocation.
type Run struct {
	meta   entry.RunMeta
	db     *sql.DB
	writer *Writer
}

// Begin inserts a new run and starts its operation writer.
func (m *Manager) Begin(command string, args []string) (*Run, error) {
	if m.db == nil {
		return nil, errors.New("journal is not open")
	}
	meta := entry.RunMeta{
		ID:        uuid.New().String(),
		Command:   command,
		Args:      strings.Join(args, " "),
		StartTime: time.Now(),
		Status:    entry.RunRunning,
	}
	_, err := m.db.Exec(
		`INSERT INTO runs (id, command, args, start_time, status) VALUES (?, ?, ?, ?, ?)`,
		meta.ID, meta.Command, meta.Args, meta.StartTime.UnixNano(), string(meta.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	w := NewWriter(m.db, meta.ID, m.batchSize, m.flushInterval)
	w.Start(context.Background())
	return &Run{meta: meta, db: m.db, writer: w}, nil
}

// ID returns the run UUID.
func (r *Run) ID() string { return r.meta.ID }

// Record implements entry.Recorder.
func (r *Run) Record(op entry.Operation) { r.writer.Record(op) }

// Progress returns the totals recorded so far.
func (r *Run) Progress() Progress { return r.writer.Progress() }

// Finish flushes all operations and stores the final status, derived from
// runErr: nil is ok, a context cancellation is canceled, anything else
// failed.
func (r *Run) Finish(runErr error) (entry.RunMeta, error) {
	writeErr := r.writer.Close()

	meta := r.meta
	meta.EndTime = time.Now()
	p := r.writer.Progress()
	meta.OpCount, meta.ErrorCount, meta.Bytes = p.Ops, p.Errors, p.Bytes
	switch {
	case runErr == nil:
		meta.Status = entry.RunOK
	case errors.Is(runErr, context.Canceled):
		meta.Status = entry.RunCanceled
		meta.Message = runErr.Error()
	default:
		meta.Status = entry.RunFailed
		meta.Message = runErr.Error()
	}
	if writeErr != nil && meta.Message == "" {
		meta.Message = writeErr.Error()
	}

	_, err := r.db.Exec(
		`UPDATE runs SET end_time = ?, status = ?, op_count = ?, error_count = ?, bytes = ?, message = ? WHERE id = ?`,
		meta.EndTime.UnixNano(), string(meta.Status), meta.OpCount, meta.ErrorCount, meta.Bytes, meta.Message, meta.ID,
	)
	if err != nil {
		return meta, fmt.Errorf("failed to finish run: %w", err)
	}
	return meta, writeErr
}

func (m *Manager) acquireLock() error {
	lockPath := filepath.Join(m.dir, lockName)
	f, err := openLockFile(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrLocked
		}
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return ErrLocked
	}

	m.lockFile = f
	return nil
}

func (m *Manager) releaseLock() {
	if m.lockFile != nil {
		unlockFile(m.lockFile)
		m.lockFile.Close()
		removeLockFile(m.lockFile.Name())
		m.lockFile = nil
	}
}

// prune deletes runs beyond the retention count, oldest first.
func (m *Manager) prune() error {
	if m.retention <= 0 {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	const stale = `SELECT id FROM runs ORDER BY start_time DESC LIMIT -1 OFFSET ?`
	if _, err := tx.Exec(`DELETE FROM operations WHERE run_id IN (`+stale+`)`, m.retention); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM runs WHERE id IN (`+stale+`)`, m.retention); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// OpenReader opens the journal in dir for read-only browsing. It does not
// take the lock.
func OpenReader(dir string) (*sql.DB, error) {
	path := filepath.Join(dir, dbName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no journal found in %s: %w", dir, err)
	}
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	database.SetMaxOpenConns(1)
	if err := ApplyReadPragmas(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
