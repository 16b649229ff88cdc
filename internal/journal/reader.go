package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/michaelscutari/fsbatch/internal/entry"
)

var (
	// ErrRunNotFound is returned when no run matches a reference.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when an ID prefix matches several runs.
	ErrAmbiguousRun = errors.New("run ID prefix is ambiguous")
)

const runColumns = `id, command, args, start_time, COALESCE(end_time, 0), status, op_count, error_count, bytes, message`

func scanRun(s interface{ Scan(...any) error }) (entry.RunMeta, error) {
	var m entry.RunMeta
	var start, end int64
	var status string
	if err := s.Scan(&m.ID, &m.Command, &m.Args, &start, &end, &status, &m.OpCount, &m.ErrorCount, &m.Bytes, &m.Message); err != nil {
		return m, err
	}
	m.StartTime = time.Unix(0, start)
	if end > 0 {
		m.EndTime = time.Unix(0, end)
	}
	m.Status = entry.RunStatus(status)
	return m, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns all of them.
func ListRuns(db *sql.DB, limit int) ([]entry.RunMeta, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []entry.RunMeta
	for rows.Next() {
		m, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		runs = append(runs, m)
	}
	return runs, rows.Err()
}

// GetRun returns the run identified by ref: a full ID, a unique ID prefix,
// or "" / "latest" for the most recent run.
func GetRun(db *sql.DB, ref string) (*entry.RunMeta, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "latest" {
		runs, err := ListRuns(db, 1)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, ErrRunNotFound
		}
		return &runs[0], nil
	}

	id, err := resolveRunID(db, ref)
	if err != nil {
		return nil, err
	}
	m, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func resolveRunID(db *sql.DB, ref string) (string, error) {
	cache := getRunCache(db)
	if id, ok := cache.Get(ref); ok {
		return id, nil
	}

	rows, err := db.Query(`SELECT id FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(ref)+"%")
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	case 1:
		cache.Set(ref, ids[0])
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, ref)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// LoadOperations loads the operations of a run. sortBy is one of seq, size,
// source, target or status.
func LoadOperations(db *sql.DB, runID, sortBy string, limit int) ([]entry.Operation, error) {
	orderClause := "seq ASC"
	switch sortBy {
	case "size":
		orderClause = "size DESC, seq ASC"
	case "source":
		orderClause = "source ASC, seq ASC"
	case "target":
		orderClause = "target ASC, seq ASC"
	case "status":
		orderClause = "status ASC, seq ASC"
	}
	if limit <= 0 {
		limit = -1
	}

	query := fmt.Sprintf(`
		SELECT seq, kind, source, target, size, status, message, time
		FROM operations
		WHERE run_id = ?
		ORDER BY %s
		LIMIT ?
	`, orderClause)

	rows, err := db.Query(query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var ops []entry.Operation
	for rows.Next() {
		var op entry.Operation
		var kind, status string
		var ts int64
		if err := rows.Scan(&op.Seq, &kind, &op.Source, &op.Target, &op.Size, &status, &op.Message, &ts); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		op.Kind = entry.OpKind(kind)
		op.Status = entry.OpStatus(status)
		op.Time = time.Unix(0, ts)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// CountByStatus returns the number of operations per status for a run.
func CountByStatus(db *sql.DB, runID string) (map[entry.OpStatus]int64, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM operations WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[entry.OpStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[entry.OpStatus(status)] = n
	}
	return counts, rows.Err()
}
