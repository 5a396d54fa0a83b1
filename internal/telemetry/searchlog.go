// Package telemetry keeps the local search log: one row per executed query,
// stored in SQLite under the data directory. Nothing leaves the machine.
package telemetry

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// LogFileName is the search log database inside the data directory.
const LogFileName = "search_log.db"

// Entry is one logged search.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Query       string    `json:"query"`
	ResultCount int       `json:"result_count"`
	Alpha       float64   `json:"alpha"`
	K           int       `json:"k"`
	LatencyMs   int64     `json:"latency_ms"`
}

// CSVHeader is the first row written by ExportCSV.
var CSVHeader = []string{"id", "timestamp", "query", "result_count", "alpha", "k", "latency_ms"}

// SearchLog is a SQLite-backed search log. It is safe for concurrent use.
type SearchLog struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// OpenSearchLog opens or creates the search log at path. An empty path
// opens an in-memory log.
func OpenSearchLog(path string) (*SearchLog, error) {
	dsn := "file::memory:?cache=private"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create search log directory: %w", err)
		}
		dsn = path + "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open search log: %w", err)
	}
	db.SetMaxOpenConns(1)

	if path != "" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS search_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		timestamp INTEGER NOT NULL,
		query TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		alpha REAL NOT NULL,
		k INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_log_timestamp ON search_log(timestamp DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create search log schema: %w", err)
	}
	return &SearchLog{db: db, now: time.Now}, nil
}

// Record stores e, filling ID and Timestamp when unset, and returns the
// stored entry.
func (l *SearchLog) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	e.Timestamp = e.Timestamp.UTC().Truncate(time.Millisecond)

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO search_log (id, timestamp, query, result_count, alpha, k, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Timestamp.UnixMilli(), e.Query, e.ResultCount, e.Alpha, e.K, e.LatencyMs)
	if err != nil {
		return Entry{}, fmt.Errorf("insert search log entry: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (l *SearchLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, query, result_count, alpha, k, latency_ms
		FROM search_log
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query search log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.Query, &e.ResultCount, &e.Alpha, &e.K, &e.LatencyMs); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of logged searches.
func (l *SearchLog) Count(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM search_log").Scan(&n); err != nil {
		return 0, fmt.Errorf("count search log: %w", err)
	}
	return n, nil
}

// ExportCSV writes every entry, oldest first, as CSV with a header row.
func (l *SearchLog) ExportCSV(ctx context.Context, w io.Writer) error {
	entries, err := l.Recent(ctx, 0)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		record := []string{
			e.ID,
			e.Timestamp.Format(time.RFC3339Nano),
			e.Query,
			strconv.Itoa(e.ResultCount),
			strconv.FormatFloat(e.Alpha, 'f', -1, 64),
			strconv.Itoa(e.K),
			strconv.FormatInt(e.LatencyMs, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Close closes the database.
func (l *SearchLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
