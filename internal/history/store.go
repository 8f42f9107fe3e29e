package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docledger/constants"
)

// Schema for the runs table. Applied by Open.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	status TEXT NOT NULL,
	page_count INTEGER NOT NULL,
	segment_count INTEGER NOT NULL,
	member_count INTEGER NOT NULL,
	total_sales REAL NOT NULL,
	total_revenue REAL NOT NULL,
	is_valid INTEGER NOT NULL,
	error_count INTEGER NOT NULL,
	warning_count INTEGER NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Run is one pipeline run's persisted summary.
type Run struct {
	ID           uuid.UUID
	FileName     string
	Status       constants.RunStatus
	PageCount    int
	SegmentCount int
	MemberCount  int
	TotalSales   float64
	TotalRevenue float64
	IsValid      bool
	ErrorCount   int
	WarningCount int
	Elapsed      time.Duration
	CreatedAt    time.Time
}

// Store persists run summaries to SQLite. It replaces nothing the pipeline
// depends on: history is write-behind bookkeeping for the operator.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the history database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// Single writer; also keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one run summary.
func (s *Store) Record(ctx context.Context, r Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, file_name, status, page_count, segment_count, member_count,
			total_sales, total_revenue, is_valid, error_count, warning_count,
			elapsed_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.FileName, string(r.Status), r.PageCount, r.SegmentCount,
		r.MemberCount, r.TotalSales, r.TotalRevenue, boolToInt(r.IsValid),
		r.ErrorCount, r.WarningCount, r.Elapsed.Milliseconds(), r.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	s.logger.Info("history.run.recorded", "run_id", r.ID, "file", r.FileName, "status", r.Status)
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, status, page_count, segment_count, member_count,
			total_sales, total_revenue, is_valid, error_count, warning_count,
			elapsed_ms, created_at
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			id        string
			status    string
			valid     int
			elapsedMS int64
			created   int64
		)
		if err := rows.Scan(&id, &r.FileName, &status, &r.PageCount, &r.SegmentCount,
			&r.MemberCount, &r.TotalSales, &r.TotalRevenue, &valid,
			&r.ErrorCount, &r.WarningCount, &elapsedMS, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		r.Status = constants.RunStatus(status)
		r.IsValid = valid != 0
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		r.CreatedAt = time.Unix(created, 0).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
