// Package history persists quality filter runs and per-file outcomes to
// SQLite so that removals and errors can be reviewed after the fact.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmunix/kprep/internal/migrations"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Outcome is one evaluated file.
type Outcome struct {
	ID          int64
	RunID       int64
	Path        string
	Status      string
	Reason      string
	Duration    *float64
	FPS         *float64
	Elapsed     time.Duration
	ProcessedAt time.Time
}

// RunSummary holds the counters stored with a finished run.
type RunSummary struct {
	Found       int
	Skipped     int
	Kept        int
	Removed     int
	Errored     int
	Unprobed    int
	Interrupted bool
}

// Run is a persisted filter run.
type Run struct {
	ID         int64
	Root       string
	StartedAt  time.Time
	FinishedAt *time.Time
	RunSummary
}

// Store persists runs and outcomes.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewStore(db), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun inserts a run row and returns its ID.
func (s *Store) BeginRun(ctx context.Context, root string, startedAt time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (root, started_at) VALUES (?, ?)`,
		root, startedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return result.LastInsertId()
}

// Record persists a single outcome.
func (s *Store) Record(ctx context.Context, o Outcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (run_id, path, status, reason, duration, fps, elapsed_ms, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Path, o.Status, o.Reason, nullFloat(o.Duration), nullFloat(o.FPS),
		o.Elapsed.Milliseconds(), o.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// EndRun stores the final counters of a run.
func (s *Store) EndRun(ctx context.Context, runID int64, sum RunSummary, finishedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, found = ?, skipped = ?, kept = ?, removed = ?, errored = ?, unprobed = ?, interrupted = ?
		WHERE id = ?`,
		finishedAt, sum.Found, sum.Skipped, sum.Kept, sum.Removed, sum.Errored, sum.Unprobed, sum.Interrupted,
		runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root, started_at, finished_at, found, skipped, kept, removed, errored, unprobed, interrupted
		FROM runs
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Root, &r.StartedAt, &finished,
			&r.Found, &r.Skipped, &r.Kept, &r.Removed, &r.Errored, &r.Unprobed, &r.Interrupted); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// OutcomeFilter narrows an Outcomes query. Zero values match everything.
type OutcomeFilter struct {
	RunID  int64
	Status string
	Limit  int
}

// Outcomes returns matching outcomes in insertion order.
func (s *Store) Outcomes(ctx context.Context, f OutcomeFilter) ([]Outcome, error) {
	var where []string
	var args []any
	if f.RunID > 0 {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}

	query := `SELECT id, run_id, path, status, reason, duration, fps, elapsed_ms, processed_at FROM outcomes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var duration, fps sql.NullFloat64
		var elapsedMs int64
		if err := rows.Scan(&o.ID, &o.RunID, &o.Path, &o.Status, &o.Reason, &duration, &fps, &elapsedMs, &o.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Duration = floatPtr(duration)
		o.FPS = floatPtr(fps)
		o.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}

// StatusCounts returns the number of outcomes per status for a run.
func (s *Store) StatusCounts(ctx context.Context, runID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM outcomes WHERE run_id = ? GROUP BY status`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
