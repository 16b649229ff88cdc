package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/michaelscutari/fsbatch/internal/entry"
)

const insertOperationSQL = `INSERT INTO operations (run_id, seq, kind, source, target, size, status, message, time) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Progress holds running totals for a run.
type Progress struct {
	Ops    int64
	Errors int64
	Bytes  int64
}

// Writer batches operations of one run and writes them to the database.
// It implements entry.Recorder; Record is safe for concurrent use.
type Writer struct {
	db            *sql.DB
	runID         string
	opCh          chan entry.Operation
	batchSize     int
	flushInterval time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan error

	batch []entry.Operation
	seq   int64

	opCount    int64
	errorCount int64
	bytes      int64

	stmt *sql.Stmt
}

// NewWriter creates a writer for runID. Call Start before Record.
func NewWriter(db *sql.DB, runID string, batchSize int, flushInterval time.Duration) *Writer {
	if batchSize <= 0 {
		batchSize = 256
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Writer{
		db:            db,
		runID:         runID,
		opCh:          make(chan entry.Operation, batchSize*4),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		batch:         make([]entry.Operation, 0, batchSize),
		done:          make(chan error, 1),
	}
}

// Start runs the writer loop on its own goroutine.
func (w *Writer) Start(ctx context.Context) {
	go func() {
		w.done <- w.Run(ctx)
	}()
}

// Record queues op. Operations recorded after Close are dropped.
func (w *Writer) Record(op entry.Operation) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	w.opCh <- op
}

// Close stops accepting operations, waits for everything queued to be
// written and returns the first write error.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.opCh)
	w.mu.Unlock()
	return <-w.done
}

// Run consumes operations until the channel is closed.
func (w *Writer) Run(ctx context.Context) error {
	var err error
	w.stmt, err = w.db.Prepare(insertOperationSQL)
	if err != nil {
		w.drain()
		return fmt.Errorf("failed to prepare operation statement: %w", err)
	}
	defer w.stmt.Close()

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := w.flush(); err != nil {
				w.drain()
				return err
			}
			w.drain()
			return nil

		case op, ok := <-w.opCh:
			if !ok {
				return w.flush()
			}
			w.track(op)
			w.batch = append(w.batch, op)
			if len(w.batch) >= w.batchSize {
				if err := w.flush(); err != nil {
					w.drain()
					return err
				}
			}

		case <-ticker.C:
			if err := w.flush(); err != nil {
				w.drain()
				return err
			}
		}
	}
}

// drain keeps Record from blocking once the loop has stopped writing.
func (w *Writer) drain() {
	go func() {
		for op := range w.opCh {
			w.track(op)
		}
	}()
}

func (w *Writer) track(op entry.Operation) {
	atomic.AddInt64(&w.opCount, 1)
	if op.Status == entry.StatusFailed {
		atomic.AddInt64(&w.errorCount, 1)
	}
	if op.Status == entry.StatusDone {
		atomic.AddInt64(&w.bytes, op.Size)
	}
}

func (w *Writer) flush() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt := tx.Stmt(w.stmt)
	for _, op := range w.batch {
		w.seq++
		if op.Time.IsZero() {
			op.Time = time.Now()
		}
		_, err := stmt.Exec(w.runID, w.seq, string(op.Kind), op.Source, op.Target, op.Size, string(op.Status), op.Message, op.Time.UnixNano())
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert operation %q: %w", op.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.batch = w.batch[:0]
	return nil
}

// Progress returns current totals (safe for concurrent access).
func (w *Writer) Progress() Progress {
	return Progress{
		Ops:    atomic.LoadInt64(&w.opCount),
		Errors: atomic.LoadInt64(&w.errorCount),
		Bytes:  atomic.LoadInt64(&w.bytes),
	}
}
